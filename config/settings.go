package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

func LoadSystemConfig(settingsPath string) (*SystemConfig, error) {
	cfg := DefaultSystemConfig()

	if !FileExists(settingsPath) {
		if err := CreateDefaultSystemConfig(settingsPath); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		return cfg, nil
	}

	md, err := toml.DecodeFile(settingsPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}
	logUndecoded(settingsPath, md)

	return cfg, nil
}

func LoadUserConfig(dataDir string) (*UserConfig, error) {
	cfg := DefaultUserConfig()
	userConfigPath := filepath.Join(dataDir, "config.toml")

	if !FileExists(userConfigPath) {
		if err := CreateDefaultUserConfig(dataDir); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
		return cfg, nil
	}

	// Decode onto an empty config so arrays from the file replace the defaults
	// instead of merging element by element.
	fileCfg := &UserConfig{}
	md, err := toml.DecodeFile(userConfigPath, fileCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}
	logUndecoded(userConfigPath, md)

	if md.IsDefined("server", "listen") {
		cfg.Server.Listen = fileCfg.Server.Listen
	}
	if md.IsDefined("server", "event_queue_size") {
		cfg.Server.EventQueueSize = fileCfg.Server.EventQueueSize
	}
	if md.IsDefined("agent", "default_profile") {
		cfg.Agent.DefaultProfile = fileCfg.Agent.DefaultProfile
	}
	if md.IsDefined("agent", "cache_control") {
		cfg.Agent.CacheControl = fileCfg.Agent.CacheControl
	}
	if md.IsDefined("providers") {
		cfg.Providers = fileCfg.Providers
	}
	if md.IsDefined("agent_profiles") {
		cfg.AgentProfiles = fileCfg.AgentProfiles
	}
	cfg.MCPServers = fileCfg.MCPServers

	return cfg, nil
}

// logUndecoded reports keys the config types do not know. They are ignored,
// not rejected.
func logUndecoded(path string, md toml.MetaData) {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	Logger().Warn("ignoring unknown config keys", "path", path, "keys", keys)
}

func SaveUserConfig(cfg *UserConfig, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	userConfigPath := filepath.Join(dataDir, "config.toml")
	// 0600: may contain API keys
	f, err := os.OpenFile(userConfigPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create user config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}

	return nil
}

func CreateDefaultSystemConfig(settingsPath string) error {
	if err := EnsureDir(filepath.Dir(settingsPath)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(settingsPath, []byte(GenerateSystemConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("failed to write system config: %w", err)
	}

	return nil
}

func CreateDefaultUserConfig(dataDir string) error {
	if err := EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	userConfigPath := filepath.Join(dataDir, "config.toml")
	if err := os.WriteFile(userConfigPath, []byte(GenerateUserConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}
