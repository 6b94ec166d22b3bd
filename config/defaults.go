package config

import "aiderdesk/model"

const (
	DefaultListen         = "127.0.0.1:24337"
	DefaultEventQueueSize = 256
	DefaultMaxIterations  = 25
)

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/aiderdesk",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Server: ServerConfig{
			Listen:         DefaultListen,
			EventQueueSize: DefaultEventQueueSize,
		},
		Agent: AgentConfig{
			DefaultProfile: "default",
			CacheControl:   true,
		},
		Providers: []ProviderConfig{
			{ID: "anthropic", Type: "anthropic", Model: "claude-sonnet-4-5-20250929", Enabled: true},
			{ID: "openai", Type: "openai", Model: "gpt-4o-mini", Enabled: false},
			{ID: "ollama", Type: "ollama", BaseURL: "http://localhost:11434", Model: "qwen3-coder:latest", Enabled: false},
		},
		AgentProfiles: []model.AgentProfile{
			{
				ID:            "default",
				Name:          "Default Agent",
				Provider:      "anthropic",
				MaxIterations: DefaultMaxIterations,
				MaxTokens:     8192,
				UseTodoTools:  true,
				UseSubagents:  true,
			},
			{
				ID:            "code-checker",
				Name:          "Code Checker",
				Provider:      "anthropic",
				MaxIterations: 10,
				MaxTokens:     4096,
				AutoApprove:   true,
				IsSubagent:    true,
				Subagent: model.SubagentConfig{
					Enabled:        true,
					InvocationMode: model.InvocationAutomatic,
					Description:    "Reviews recent changes for bugs and style issues.",
				},
			},
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# AiderDesk System Configuration
# Location: ~/.config/aiderdesk/settings.toml
# This file uses TOML format: https://toml.io

# Directory where tasks, logs and user config are stored
data_directory = "~/.local/share/aiderdesk"
`
}

func GenerateUserConfigTemplate() string {
	return `# AiderDesk User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[server]
# Address of the websocket event server
listen = "127.0.0.1:24337"

# Events buffered per remote subscriber before it is dropped as unresponsive
event_queue_size = 256

[agent]
default_profile = "default"

# Mark the last message of every request as cacheable
cache_control = true

[[providers]]
id = "anthropic"
type = "anthropic"
model = "claude-sonnet-4-5-20250929"
enabled = true
# api_key = "" (or set ANTHROPIC_API_KEY)

[[providers]]
id = "openai"
type = "openai"
model = "gpt-4o-mini"
enabled = false

[[providers]]
id = "ollama"
type = "ollama"
base_url = "http://localhost:11434"
model = "qwen3-coder:latest"
enabled = false

[[agent_profiles]]
id = "default"
name = "Default Agent"
provider = "anthropic"
max_iterations = 25
max_tokens = 8192
use_todo_tools = true
use_subagents = true
auto_approve = false

[[agent_profiles]]
id = "code-checker"
name = "Code Checker"
provider = "anthropic"
max_iterations = 10
max_tokens = 4096
auto_approve = true
is_subagent = true

[agent_profiles.subagent]
enabled = true
invocation_mode = "automatic"
description = "Reviews recent changes for bugs and style issues."

# MCP servers expose additional tools as <id>---<tool>
# [[mcp_servers]]
# id = "fs"
# command = "npx"
# args = ["-y", "@modelcontextprotocol/server-filesystem", "."]
`
}
