package agent

import (
	"bytes"

	"github.com/tidwall/sjson"

	"aiderdesk/config"
	"aiderdesk/model"
)

// Fields of the Aider run_prompt result that only matter to the UI.
var aiderResultDroppedFields = []string{"responses", "promptContext"}

// optimizeAiderMessages strips the verbose fields from Aider run_prompt
// results. Results that are not JSON objects are left alone.
func optimizeAiderMessages(messages []model.Message) []model.Message {
	runPrompt := model.ToolName(model.AiderToolGroup, model.AiderToolRunPrompt)

	return mapToolResults(messages, func(part model.Part) (model.ToolOutput, bool) {
		if part.ToolName != runPrompt || part.Output.Type != model.OutputJSON {
			return model.ToolOutput{}, false
		}
		value, changed := deleteFields(part.Output.Value, aiderResultDroppedFields)
		if !changed {
			return model.ToolOutput{}, false
		}
		return model.JSONOutput(value), true
	})
}

// optimizeSubagentMessages replaces subagent transcripts with the text of
// their final message, which is all the parent model needs.
func optimizeSubagentMessages(messages []model.Message) []model.Message {
	runTask := model.ToolName(model.SubagentsToolGroup, model.SubagentsToolRunTask)

	return mapToolResults(messages, func(part model.Part) (model.ToolOutput, bool) {
		if part.ToolName != runTask {
			return model.ToolOutput{}, false
		}
		shape := transcriptShape(*part.Output)
		if shape.kind != shapeTranscript {
			return model.ToolOutput{}, false
		}
		return model.TextOutput(ExtractTextContent(shape.lastContent)), true
	})
}

// mapToolResults applies fn to every tool-result part of every tool message.
// Messages are copied only when fn reports a change.
func mapToolResults(messages []model.Message, fn func(model.Part) (model.ToolOutput, bool)) []model.Message {
	result := make([]model.Message, len(messages))
	copy(result, messages)

	for i, msg := range messages {
		if msg.Role != model.RoleTool {
			continue
		}

		var updated *model.Message
		for j, part := range msg.Parts {
			if part.Type != model.PartToolResult || part.Output == nil {
				continue
			}
			out, changed := fn(part)
			if !changed {
				continue
			}
			if updated == nil {
				clone := msg.Clone()
				updated = &clone
			}
			updated.Parts[j].Output = &out
		}

		if updated != nil {
			result[i] = *updated
		}
	}

	return result
}

// deleteFields removes top-level keys from a JSON object. It reports false
// when the value is not an object or none of the keys were present.
func deleteFields(value []byte, fields []string) ([]byte, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return value, false
	}

	out := bytes.Clone(trimmed)
	changed := false
	for _, field := range fields {
		next, err := sjson.DeleteBytes(out, field)
		if err != nil {
			config.Logger().Debug("failed to drop tool result field", "field", field, "err", err)
			return value, false
		}
		if !bytes.Equal(next, out) {
			changed = true
		}
		out = next
	}
	return out, changed
}
