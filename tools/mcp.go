package tools

import (
	"context"
	"encoding/json"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/model"
)

// MCPCaller is the part of mcp.Manager the registry needs.
type MCPCaller interface {
	Tools(enabledServers []string) []mcptypes.Tool
	CallTool(ctx context.Context, toolName string, input json.RawMessage) (model.ToolOutput, error)
}

type mcpTool struct {
	def    mcptypes.Tool
	caller MCPCaller
}

func (t mcpTool) Definition() mcptypes.Tool { return t.def }

func (t mcpTool) Execute(ctx context.Context, input json.RawMessage) (model.ToolOutput, error) {
	return t.caller.CallTool(ctx, t.def.Name, input)
}

// RegisterMCPTools adds the tools of the enabled MCP servers.
func RegisterMCPTools(r *Registry, caller MCPCaller, enabledServers []string) {
	if caller == nil {
		return
	}
	for _, def := range caller.Tools(enabledServers) {
		r.Register(mcpTool{def: def, caller: caller})
	}
}

// ForProfile builds the registry for a task run with profile.
func ForProfile(profile model.AgentProfile, settings *model.Settings, todo *TodoList, runner SubagentRunner, caller MCPCaller) *Registry {
	r := NewRegistry()
	if profile.UseTodoTools && todo != nil {
		RegisterTodoTools(r, todo)
	}
	if profile.UseSubagents && !profile.IsSubagent {
		RegisterSubagentTool(r, profile, settings, runner)
	}
	RegisterMCPTools(r, caller, profile.EnabledServers)
	return r
}
