package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aiderdesk/model"
)

// isolate points every config location into a temp dir and clears the
// environment overrides.
func isolate(t *testing.T) (settingsPath, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	t.Setenv("AIDERDESK_DATA_DIR", dataDir)
	t.Setenv("AIDERDESK_LISTEN", "")
	t.Setenv("AIDERDESK_EVENT_QUEUE_SIZE", "")
	t.Setenv("AIDERDESK_DEBUG", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OLLAMA_HOST", "")
	return filepath.Join(dir, "settings.toml"), dataDir
}

func TestLoadFromCreatesDefaults(t *testing.T) {
	settingsPath, dataDir := isolate(t)

	cfg, err := LoadFrom(settingsPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if !FileExists(settingsPath) {
		t.Error("system settings were not created")
	}
	if !FileExists(filepath.Join(dataDir, "config.toml")) {
		t.Error("user config was not created")
	}
	if cfg.Listen != DefaultListen || cfg.EventQueueSize != DefaultEventQueueSize {
		t.Errorf("server defaults = %q, %d", cfg.Listen, cfg.EventQueueSize)
	}
	if cfg.DataDir() != dataDir {
		t.Errorf("DataDir() = %q, want %q", cfg.DataDir(), dataDir)
	}

	p, err := cfg.Profile("")
	if err != nil {
		t.Fatalf("Profile(\"\") error = %v", err)
	}
	if p.ID != "default" || !p.UseTodoTools || !p.UseSubagents {
		t.Errorf("default profile = %+v", p)
	}
	if cfg.CacheControlOptions() == nil {
		t.Error("cache control should be on by default")
	}
}

func TestLoadFromTemplateMatchesDefaults(t *testing.T) {
	settingsPath, _ := isolate(t)

	first, err := LoadFrom(settingsPath)
	if err != nil {
		t.Fatalf("first LoadFrom() error = %v", err)
	}
	// The second load parses the generated template instead of using defaults.
	second, err := LoadFrom(settingsPath)
	if err != nil {
		t.Fatalf("second LoadFrom() error = %v", err)
	}

	if len(second.Settings.AgentProfiles) != len(first.Settings.AgentProfiles) {
		t.Fatalf("profiles = %d, want %d", len(second.Settings.AgentProfiles), len(first.Settings.AgentProfiles))
	}
	checker, ok := second.Settings.Profile("code-checker")
	if !ok {
		t.Fatal("code-checker profile missing from template")
	}
	if !checker.Subagent.Enabled || checker.Subagent.InvocationMode != model.InvocationAutomatic {
		t.Errorf("code-checker subagent = %+v", checker.Subagent)
	}
	if len(second.Providers) != 3 {
		t.Errorf("providers = %+v", second.Providers)
	}
}

func TestLoadFromUserConfig(t *testing.T) {
	settingsPath, dataDir := isolate(t)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		t.Fatal(err)
	}

	userCfg := `
[server]
event_queue_size = 8

[agent]
default_profile = "reviewer"
cache_control = false

[[providers]]
id = "local"
type = "ollama"
base_url = "http://ollama:11434"

[[agent_profiles]]
id = "reviewer"
provider = "local"
enabled_servers = ["fs"]

[agent_profiles.tool_approvals]
"fs---write_file" = "never"

[[mcp_servers]]
id = "fs"
command = "mcp-fs"
args = ["."]
`
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte(userCfg), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(settingsPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Listen != DefaultListen {
		t.Errorf("unset listen should keep default, got %q", cfg.Listen)
	}
	if cfg.EventQueueSize != 8 {
		t.Errorf("EventQueueSize = %d", cfg.EventQueueSize)
	}
	if cfg.CacheControlOptions() != nil {
		t.Error("cache control should be disabled")
	}
	p, err := cfg.Profile("")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.ApprovalFor("fs---write_file") != model.ToolApprovalNever {
		t.Errorf("tool approvals = %+v", p.ToolApprovals)
	}
	if len(cfg.MCPServers) != 1 || cfg.MCPServers[0].Command != "mcp-fs" {
		t.Errorf("MCPServers = %+v", cfg.MCPServers)
	}
}

func TestEnvOverrides(t *testing.T) {
	settingsPath, _ := isolate(t)
	t.Setenv("AIDERDESK_LISTEN", "0.0.0.0:9000")
	t.Setenv("AIDERDESK_EVENT_QUEUE_SIZE", "32")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("OLLAMA_HOST", "http://gpu:11434")

	cfg, err := LoadFrom(settingsPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" || cfg.EventQueueSize != 32 {
		t.Errorf("server = %q, %d", cfg.Listen, cfg.EventQueueSize)
	}
	if p, _ := cfg.Provider("anthropic"); p.APIKey != "sk-test" {
		t.Errorf("anthropic key = %q", p.APIKey)
	}
	if p, _ := cfg.Provider("ollama"); p.BaseURL != "http://gpu:11434" {
		t.Errorf("ollama base url = %q", p.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Listen:         DefaultListen,
			EventQueueSize: 4,
			DefaultProfile: "a",
			Providers:      []ProviderConfig{{ID: "p", Type: "ollama"}},
			Settings: model.Settings{AgentProfiles: []model.AgentProfile{
				{ID: "a", Provider: "p"},
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty listen", func(c *Config) { c.Listen = "" }, "listen"},
		{"zero queue", func(c *Config) { c.EventQueueSize = 0 }, "queue size"},
		{"missing id", func(c *Config) {
			c.Settings.AgentProfiles = append(c.Settings.AgentProfiles, model.AgentProfile{Name: "x", Provider: "p"})
		}, "no id"},
		{"duplicate id", func(c *Config) {
			c.Settings.AgentProfiles = append(c.Settings.AgentProfiles, model.AgentProfile{ID: "a", Provider: "p"})
		}, "duplicate"},
		{"unknown provider", func(c *Config) { c.Settings.AgentProfiles[0].Provider = "nope" }, "unknown provider"},
		{"bad invocation mode", func(c *Config) { c.Settings.AgentProfiles[0].Subagent.InvocationMode = "sometimes" }, "invocation mode"},
		{"undefined default", func(c *Config) { c.DefaultProfile = "zzz" }, "not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestProfileUnknown(t *testing.T) {
	cfg := &Config{DefaultProfile: "a"}
	if _, err := cfg.Profile("missing"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("AIDERDESK_TEST_DIR", "/srv")

	tests := map[string]string{
		"":                      "",
		"~/data":                "/home/tester/data",
		"$AIDERDESK_TEST_DIR/x": "/srv/x",
		"/a/../b":               "/b",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
