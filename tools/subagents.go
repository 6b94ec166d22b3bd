package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/model"
)

// SubagentRunner runs a nested task with a subagent profile and returns the
// nested conversation.
type SubagentRunner interface {
	RunSubagent(ctx context.Context, profile model.AgentProfile, prompt string) ([]model.Message, error)
}

// RegisterSubagentTool adds subagents---run_task. The subagents offered are
// the profiles enabled for delegation from parent.
func RegisterSubagentTool(r *Registry, parent model.AgentProfile, settings *model.Settings, runner SubagentRunner) {
	var available []model.AgentProfile
	if settings != nil {
		for _, p := range settings.AgentProfiles {
			if p.IsSubagentEnabledFor(parent.ID) {
				available = append(available, p)
			}
		}
	}
	if len(available) == 0 || runner == nil {
		return
	}

	var desc strings.Builder
	desc.WriteString("Delegate a self-contained task to a subagent and return its conversation. Available subagents:")
	ids := make([]string, 0, len(available))
	for _, p := range available {
		ids = append(ids, p.ID)
		fmt.Fprintf(&desc, "\n- %s: %s", p.ID, p.Subagent.Description)
	}

	r.Register(funcTool{
		def: mcptypes.NewTool(model.ToolName(model.SubagentsToolGroup, model.SubagentsToolRunTask),
			mcptypes.WithDescription(desc.String()),
			mcptypes.WithString("subagentId", mcptypes.Required(), mcptypes.Enum(ids...)),
			mcptypes.WithString("prompt", mcptypes.Required(), mcptypes.Description("Complete instructions for the subagent")),
		),
		fn: func(ctx context.Context, input json.RawMessage) (model.ToolOutput, error) {
			var args struct {
				SubagentID string `json:"subagentId"`
				Prompt     string `json:"prompt"`
			}
			if err := decodeInput(input, &args); err != nil {
				return model.ToolOutput{}, err
			}

			profile, ok := settings.Profile(args.SubagentID)
			if !ok || !profile.IsSubagentEnabledFor(parent.ID) {
				return model.ToolOutput{}, fmt.Errorf("subagent %q is not available", args.SubagentID)
			}
			profile.IsSubagent = true

			messages, err := runner.RunSubagent(ctx, profile, args.Prompt)
			if err != nil {
				return model.ToolOutput{}, fmt.Errorf("subagent %s failed: %w", profile.ID, err)
			}
			if messages == nil {
				messages = []model.Message{}
			}
			return model.JSONOutputOf(map[string]any{"messages": messages})
		},
	})
}
