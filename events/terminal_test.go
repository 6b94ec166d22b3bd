package events

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func plain(buf *bytes.Buffer) string {
	return ansi.ReplaceAllString(buf.String(), "")
}

func TestTerminalSinkRendering(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, false)

	sink.Send(TypeUserMessage, UserMessageData{Content: "fix it"})
	sink.Send(TypeResponseChunk, ResponseChunkData{Chunk: "Look"})
	sink.Send(TypeResponseChunk, ResponseChunkData{Chunk: "ing"})
	sink.Send(TypeTool, ToolData{ServerName: "fs", ToolName: "read", Args: map[string]any{"path": "a"}})
	sink.Send(TypeTool, ToolData{ServerName: "fs", ToolName: "read", Response: "line1\nline2"})
	sink.Send(TypeLog, LogData{Level: LogError, Message: "boom"})

	out := plain(&buf)
	for _, want := range []string{"> fix it", "Looking\n", "tool fs/read", "fs/read -> line1 ...", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "path=a") || strings.Contains(out, "line2") {
		t.Errorf("non-verbose output shows detail:\n%s", out)
	}
}

func TestTerminalSinkVerbose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, true)

	sink.Send(TypeTool, ToolData{ServerName: "fs", ToolName: "read", Args: map[string]any{"path": "a"}})
	sink.Send(TypeTool, ToolData{ServerName: "fs", ToolName: "read", Response: "line1\nline2"})

	out := plain(&buf)
	if !strings.Contains(out, "path=a") || !strings.Contains(out, "line2") {
		t.Errorf("verbose output missing detail:\n%s", out)
	}
}

func TestTerminalSinkClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, false)

	sink.Send(TypeResponseChunk, ResponseChunkData{Chunk: "partial"})
	sink.Close()
	if !sink.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	sink.Send(TypeUserMessage, UserMessageData{Content: "late"})

	if got := plain(&buf); !strings.HasSuffix(got, "partial\n") || strings.Contains(got, "late") {
		t.Errorf("output after close = %q", got)
	}
}

func TestTerminalSinkQuestion(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, false)

	sink.Send(TypeAskQuestion, QuestionData{
		Text:    "Approve running write_file from fs?",
		Answers: []Answer{{Text: "(Y)es", Shortkey: "y"}, {Text: "(N)o", Shortkey: "n"}},
	})

	if out := plain(&buf); !strings.Contains(out, "? Approve running write_file from fs? [y/n]") {
		t.Errorf("question not rendered:\n%s", out)
	}
}
