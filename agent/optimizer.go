// Package agent shapes a task's conversation before it is sent to a model.
//
// OptimizeMessages runs a fixed sequence of transforms over a snapshot of the
// history. Each transform returns a new slice and copies any message it
// changes, so the caller's history is never modified.
package agent

import (
	"aiderdesk/config"
	"aiderdesk/model"
)

// OptimizeMessages prepares messages for a model call. It reduces token usage
// and works around model quirks:
//
//  1. reminders are appended to the user request at userRequestIndex
//  2. single-image tool results are re-surfaced as user messages
//  3. immediately repeated tool calls get an error result
//  4. Aider run_prompt results lose their UI-only fields
//  5. subagent transcripts collapse to their final answer
//
// cacheControl, when non-nil, is merged into the provider options of the
// message that was last in the input, wherever it ended up in the output.
func OptimizeMessages(profile model.AgentProfile, userRequestIndex int, messages []model.Message, cacheControl model.CacheControl, settings *model.Settings) []model.Message {
	if len(messages) == 0 {
		return []model.Message{}
	}

	optimized := addImportantReminders(profile, userRequestIndex, messages, settings)
	optimized, origins := convertImageToolResults(optimized)
	optimized = removeDoubleToolCalls(optimized)
	optimized = optimizeAiderMessages(optimized)
	optimized = optimizeSubagentMessages(optimized)

	config.Logger().Debug("Optimized messages",
		"beforeCount", len(messages), "beforeRoles", roles(messages),
		"afterCount", len(optimized), "afterRoles", roles(optimized))

	if cacheControl != nil {
		last := lastOriginalIndex(origins, len(messages)-1)
		marked := optimized[last].Clone()
		marked.ProviderOptions = marked.ProviderOptions.Merge(cacheControl)
		optimized[last] = marked
	}

	return optimized
}

// lastOriginalIndex finds the output position of input message original.
func lastOriginalIndex(origins []int, original int) int {
	for i := len(origins) - 1; i >= 0; i-- {
		if origins[i] == original {
			return i
		}
	}
	return original
}

func roles(messages []model.Message) []model.Role {
	r := make([]model.Role, len(messages))
	for i, m := range messages {
		r[i] = m.Role
	}
	return r
}
