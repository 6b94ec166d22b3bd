package model

import "strings"

// ToolGroupSeparator joins a tool group and a tool name, e.g. "todo---get_items".
const ToolGroupSeparator = "---"

const (
	AiderToolGroup     = "aider"
	AiderToolRunPrompt = "run_prompt"

	SubagentsToolGroup   = "subagents"
	SubagentsToolRunTask = "run_task"

	TodoToolGroup                = "todo"
	TodoToolGetItems             = "get_items"
	TodoToolSetItems             = "set_items"
	TodoToolUpdateItemCompletion = "update_item_completion"
	TodoToolClearItems           = "clear_items"
)

// ToolName returns the fully qualified name of a tool within a group.
func ToolName(group, tool string) string {
	return group + ToolGroupSeparator + tool
}

// SplitToolName splits a qualified tool name into group and tool. Names
// without a separator have an empty group.
func SplitToolName(name string) (group, tool string) {
	idx := strings.Index(name, ToolGroupSeparator)
	if idx == -1 {
		return "", name
	}
	return name[:idx], name[idx+len(ToolGroupSeparator):]
}
