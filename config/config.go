package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"aiderdesk/model"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type ServerConfig struct {
	Listen         string `toml:"listen"`
	EventQueueSize int    `toml:"event_queue_size"`
}

type AgentConfig struct {
	DefaultProfile string `toml:"default_profile"`
	CacheControl   bool   `toml:"cache_control"`
}

type ProviderConfig struct {
	ID      string `toml:"id"`
	Type    string `toml:"type"`
	BaseURL string `toml:"base_url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
	Enabled bool   `toml:"enabled"`
}

type MCPServerConfig struct {
	ID      string            `toml:"id"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args,omitempty"`
	Env     map[string]string `toml:"env,omitempty"`
}

type UserConfig struct {
	Server        ServerConfig         `toml:"server"`
	Agent         AgentConfig          `toml:"agent"`
	Providers     []ProviderConfig     `toml:"providers"`
	AgentProfiles []model.AgentProfile `toml:"agent_profiles"`
	MCPServers    []MCPServerConfig    `toml:"mcp_servers"`
}

type Config struct {
	DataDirectory  string
	Listen         string
	EventQueueSize int
	DefaultProfile string
	CacheControl   bool
	Providers      []ProviderConfig
	Settings       model.Settings
	MCPServers     []MCPServerConfig
}

var Debug = false
var DebugLog *log.Logger

var (
	fallbackOnce sync.Once
	fallbackLog  *log.Logger
)

// Logger returns the debug logger when debugging is enabled, otherwise a
// stderr logger that only reports warnings and errors.
func Logger() *log.Logger {
	if DebugLog != nil {
		return DebugLog
	}
	fallbackOnce.Do(func() {
		fallbackLog = log.NewWithOptions(os.Stderr, log.Options{
			Level:           log.WarnLevel,
			ReportTimestamp: true,
		})
	})
	return fallbackLog
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Provider returns the provider entry with the given id.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Profile returns the named agent profile, falling back to the default profile.
func (c *Config) Profile(id string) (model.AgentProfile, error) {
	if id == "" {
		id = c.DefaultProfile
	}
	p, ok := c.Settings.Profile(id)
	if !ok {
		return model.AgentProfile{}, fmt.Errorf("unknown agent profile: %q", id)
	}
	return p, nil
}

// CacheControlOptions returns the cache marker for optimized requests, or nil
// when prompt caching is disabled.
func (c *Config) CacheControlOptions() model.CacheControl {
	if !c.CacheControl {
		return nil
	}
	return model.EphemeralCacheControl()
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("AIDERDESK_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if listen := os.Getenv("AIDERDESK_LISTEN"); listen != "" {
		c.Listen = listen
	}
	if size := os.Getenv("AIDERDESK_EVENT_QUEUE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			c.EventQueueSize = n
		}
	}

	keys := map[string]string{
		"anthropic": os.Getenv("ANTHROPIC_API_KEY"),
		"openai":    os.Getenv("OPENAI_API_KEY"),
	}
	for i := range c.Providers {
		if key := keys[c.Providers[i].Type]; key != "" && c.Providers[i].APIKey == "" {
			c.Providers[i].APIKey = key
		}
		if c.Providers[i].Type == "ollama" {
			if host := os.Getenv("OLLAMA_HOST"); host != "" {
				c.Providers[i].BaseURL = host
			}
		}
	}
}

func CheckDebug() bool {
	debug := os.Getenv("AIDERDESK_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: may contain prompts and tool output
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.NewWithOptions(f, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
		ReportCaller:    true,
	})
	DebugLog.Debug("debug logging started", "AIDERDESK_DEBUG", os.Getenv("AIDERDESK_DEBUG"))
	DebugLog.Debug("log path", "path", logPath)
}

// Load reads the system settings file and the user config it points to.
func Load() (*Config, error) {
	return LoadFrom(GetSettingsFilePath())
}

// LoadFrom is Load with an explicit system settings path.
func LoadFrom(settingsPath string) (*Config, error) {
	systemCfg, err := LoadSystemConfig(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{DataDirectory: systemCfg.DataDirectory}
	if dataDir := os.Getenv("AIDERDESK_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	cfg.Listen = userCfg.Server.Listen
	cfg.EventQueueSize = userCfg.Server.EventQueueSize
	cfg.DefaultProfile = userCfg.Agent.DefaultProfile
	cfg.CacheControl = userCfg.Agent.CacheControl
	cfg.Providers = userCfg.Providers
	cfg.Settings = model.Settings{AgentProfiles: userCfg.AgentProfiles}
	cfg.MCPServers = userCfg.MCPServers
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks references between config sections.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("server listen address is empty")
	}
	if c.EventQueueSize <= 0 {
		return fmt.Errorf("event queue size must be positive, got %d", c.EventQueueSize)
	}

	seen := make(map[string]bool, len(c.Settings.AgentProfiles))
	for _, p := range c.Settings.AgentProfiles {
		if p.ID == "" {
			return fmt.Errorf("agent profile %q has no id", p.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate agent profile id: %q", p.ID)
		}
		seen[p.ID] = true
		if _, ok := c.Provider(p.Provider); !ok {
			return fmt.Errorf("agent profile %q references unknown provider %q", p.ID, p.Provider)
		}
		switch p.Subagent.InvocationMode {
		case "", model.InvocationOnDemand, model.InvocationAutomatic:
		default:
			return fmt.Errorf("agent profile %q has invalid invocation mode %q", p.ID, p.Subagent.InvocationMode)
		}
	}

	if c.DefaultProfile != "" && !seen[c.DefaultProfile] {
		return fmt.Errorf("default profile %q is not defined", c.DefaultProfile)
	}

	return nil
}
