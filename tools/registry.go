// Package tools holds the tools an agent task can call: the built-in todo and
// subagent groups plus tools proxied from MCP servers. Every tool is named
// "<group>---<tool>".
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/model"
)

// ErrUnknownTool is returned when a call names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Tool is a single callable tool.
type Tool interface {
	Definition() mcptypes.Tool
	Execute(ctx context.Context, input json.RawMessage) (model.ToolOutput, error)
}

// Registry manages the tools available to one task.
type Registry struct {
	tools map[string]Tool
	order []string
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Definitions returns the tool definitions offered to the model. Tools the
// profile marks as never approved are left out.
func (r *Registry) Definitions(profile model.AgentProfile) []mcptypes.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]mcptypes.Tool, 0, len(r.order))
	for _, name := range r.order {
		if profile.ApprovalFor(name) == model.ToolApprovalNever {
			continue
		}
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs a tool call. Errors from the tool itself are returned as an
// error-text output so the model can see them; only an unknown tool is an
// error for the caller.
func (r *Registry) Execute(ctx context.Context, call model.ToolCall) (model.ToolOutput, error) {
	tool, ok := r.Get(call.Name)
	if !ok {
		return model.ToolOutput{}, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	out, err := tool.Execute(ctx, call.Input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.ToolOutput{}, ctxErr
		}
		return model.ErrorOutput(err.Error()), nil
	}
	return out, nil
}

// funcTool adapts a definition and a function into a Tool.
type funcTool struct {
	def mcptypes.Tool
	fn  func(ctx context.Context, input json.RawMessage) (model.ToolOutput, error)
}

func (t funcTool) Definition() mcptypes.Tool { return t.def }

func (t funcTool) Execute(ctx context.Context, input json.RawMessage) (model.ToolOutput, error) {
	return t.fn(ctx, input)
}

// decodeInput unmarshals tool input into v. Empty input decodes as {}.
func decodeInput(input json.RawMessage, v any) error {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("invalid tool input: %w", err)
	}
	return nil
}
