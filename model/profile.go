package model

// InvocationMode controls how a subagent profile is invoked by a parent agent.
type InvocationMode string

const (
	InvocationOnDemand  InvocationMode = "on-demand"
	InvocationAutomatic InvocationMode = "automatic"
)

// ToolApprovalState is the approval policy for a single tool.
type ToolApprovalState string

const (
	ToolApprovalAlways ToolApprovalState = "always"
	ToolApprovalAsk    ToolApprovalState = "ask"
	ToolApprovalNever  ToolApprovalState = "never"
)

// SubagentConfig describes how a profile behaves when used as a subagent.
type SubagentConfig struct {
	Enabled        bool           `toml:"enabled" json:"enabled"`
	InvocationMode InvocationMode `toml:"invocation_mode" json:"invocationMode"`
	Description    string         `toml:"description" json:"description"`
	SystemPrompt   string         `toml:"system_prompt,omitempty" json:"systemPrompt,omitempty"`
}

// AgentProfile is a named bundle of agent behaviour flags applied to a task.
type AgentProfile struct {
	ID                 string                       `toml:"id" json:"id"`
	Name               string                       `toml:"name" json:"name"`
	Provider           string                       `toml:"provider" json:"provider"`
	Model              string                       `toml:"model" json:"model"`
	MaxIterations      int                          `toml:"max_iterations" json:"maxIterations"`
	MaxTokens          int                          `toml:"max_tokens" json:"maxTokens"`
	Temperature        float64                      `toml:"temperature" json:"temperature"`
	EnabledServers     []string                     `toml:"enabled_servers" json:"enabledServers"`
	ToolApprovals      map[string]ToolApprovalState `toml:"tool_approvals" json:"toolApprovals"`
	UseTodoTools       bool                         `toml:"use_todo_tools" json:"useTodoTools"`
	UseSubagents       bool                         `toml:"use_subagents" json:"useSubagents"`
	AutoApprove        bool                         `toml:"auto_approve" json:"autoApprove"`
	IsSubagent         bool                         `toml:"is_subagent" json:"isSubagent"`
	CustomInstructions string                       `toml:"custom_instructions" json:"customInstructions"`
	Subagent           SubagentConfig               `toml:"subagent" json:"subagent"`
}

// IsSubagentEnabledFor reports whether p can be invoked as a subagent from the
// profile identified by parentID. A profile never delegates to itself.
func (p AgentProfile) IsSubagentEnabledFor(parentID string) bool {
	return p.Subagent.Enabled && p.ID != parentID
}

// ApprovalFor returns the approval state for a tool, defaulting to ask.
func (p AgentProfile) ApprovalFor(toolName string) ToolApprovalState {
	if state, ok := p.ToolApprovals[toolName]; ok {
		return state
	}
	return ToolApprovalAsk
}

// Settings is the subset of application settings consumed by the agent core.
type Settings struct {
	AgentProfiles []AgentProfile `toml:"agent_profiles" json:"agentProfiles"`
}

// Profile looks up an agent profile by id.
func (s *Settings) Profile(id string) (AgentProfile, bool) {
	if s == nil {
		return AgentProfile{}, false
	}
	for _, p := range s.AgentProfiles {
		if p.ID == id {
			return p, true
		}
	}
	return AgentProfile{}, false
}

// AutomaticSubagents returns the profiles the parent should invoke on its own:
// enabled, automatic and described.
func (s *Settings) AutomaticSubagents(parentID string) []AgentProfile {
	if s == nil {
		return nil
	}
	var result []AgentProfile
	for _, p := range s.AgentProfiles {
		if !p.IsSubagentEnabledFor(parentID) {
			continue
		}
		if p.Subagent.InvocationMode == InvocationAutomatic && p.Subagent.Description != "" {
			result = append(result, p)
		}
	}
	return result
}
