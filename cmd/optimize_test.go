package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

const sampleConversation = `[
  {"role": "user", "content": "fix the build"},
  {"role": "assistant", "content": [{"type": "text", "text": "On it."}]},
  {"role": "user", "content": "also run the tests"}
]`

func TestOptimizeCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	if err := os.WriteFile(path, []byte(sampleConversation), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("reminders go to the last user message", func(t *testing.T) {
		out, err := execute(t, dir, "optimize", path)
		if err != nil {
			t.Fatalf("optimize error = %v", err)
		}
		if !gjson.Valid(out) {
			t.Fatalf("output is not JSON: %s", out)
		}
		if strings.Contains(gjson.Get(out, "0.content").String(), "THIS IS IMPORTANT") {
			t.Error("reminders added to the wrong message")
		}
		last := gjson.Get(out, "2.content").String()
		if !strings.HasPrefix(last, "also run the tests") || !strings.Contains(last, "THIS IS IMPORTANT") {
			t.Errorf("last user message = %q", last)
		}
	})

	t.Run("explicit index", func(t *testing.T) {
		out, err := execute(t, dir, "optimize", path, "--index", "0")
		if err != nil {
			t.Fatalf("optimize error = %v", err)
		}
		if !strings.Contains(gjson.Get(out, "0.content").String(), "THIS IS IMPORTANT") {
			t.Errorf("reminders missing from message 0: %s", out)
		}
	})

	t.Run("yaml output", func(t *testing.T) {
		out, err := execute(t, dir, "optimize", path, "-f", "yaml")
		if err != nil {
			t.Fatalf("optimize error = %v", err)
		}
		if !strings.Contains(out, "role: user") || !strings.Contains(out, "THIS IS IMPORTANT") {
			t.Errorf("yaml output = %s", out)
		}
	})

	t.Run("unknown profile", func(t *testing.T) {
		if _, err := execute(t, dir, "optimize", path, "-p", "nobody"); err == nil {
			t.Error("expected error for unknown profile")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := execute(t, dir, "optimize", filepath.Join(dir, "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
