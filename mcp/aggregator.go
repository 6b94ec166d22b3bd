package mcp

import (
	"context"
	"fmt"
	"slices"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/model"
)

// ToolAggregator merges the tools of several servers into one namespaced
// list and routes calls back to the owning server.
type ToolAggregator struct {
	processManager *ProcessManager
}

func NewToolAggregator(pm *ProcessManager) *ToolAggregator {
	return &ToolAggregator{
		processManager: pm,
	}
}

// ToolsForServers returns the tools of the given servers named
// "<server>---<tool>". Servers that are not running are skipped.
func (ta *ToolAggregator) ToolsForServers(serverIDs []string) []mcptypes.Tool {
	ids := slices.Clone(serverIDs)
	slices.Sort(ids)

	var all []mcptypes.Tool
	for _, id := range ids {
		tools, err := ta.processManager.GetTools(id)
		if err != nil {
			continue
		}
		for _, tool := range tools {
			namespaced := tool
			namespaced.Name = model.ToolName(id, tool.Name)
			all = append(all, namespaced)
		}
	}
	return all
}

// ExecuteTool calls a namespaced tool on its server.
func (ta *ToolAggregator) ExecuteTool(ctx context.Context, toolName string, args map[string]any) (*mcptypes.CallToolResult, error) {
	serverID, name := model.SplitToolName(toolName)
	if serverID == "" {
		return nil, fmt.Errorf("tool %q is not namespaced", toolName)
	}

	c, err := ta.processManager.GetClient(serverID)
	if err != nil {
		return nil, err
	}

	return c.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
}
