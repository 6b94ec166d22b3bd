package agent

import (
	"bytes"
	"encoding/json"

	"aiderdesk/config"
	"aiderdesk/model"
)

const duplicateToolCallError = "Error: Duplicate tool call detected. Do not call the same tool with the same arguments twice in a row. The previous result is still valid."

// removeDoubleToolCalls breaks loops where a model repeats the same tool call
// right after receiving its result. For every window
// assistant(call) -> tool -> assistant(same call) -> tool, the second result is
// replaced with an error telling the model to stop. Matched windows are not
// re-scanned.
func removeDoubleToolCalls(messages []model.Message) []model.Message {
	if len(messages) < 4 {
		return messages
	}

	result := make([]model.Message, len(messages))
	copy(result, messages)

	for i := 0; i <= len(result)-4; i++ {
		first, second, third, fourth := result[i], result[i+1], result[i+2], result[i+3]
		if first.Role != model.RoleAssistant || second.Role != model.RoleTool ||
			third.Role != model.RoleAssistant || fourth.Role != model.RoleTool {
			continue
		}

		firstCall, ok := firstToolCall(first)
		if !ok {
			continue
		}
		thirdCall, ok := firstToolCall(third)
		if !ok {
			continue
		}

		if firstCall.ToolName != thirdCall.ToolName || !sameInput(firstCall.Input, thirdCall.Input) {
			continue
		}

		config.Logger().Info("Found duplicate sequential tool call. Modifying subsequent tool result.",
			"toolName", thirdCall.ToolName, "input", string(thirdCall.Input))

		result[i+3] = replaceToolResult(fourth, thirdCall.ToolCallID, model.ErrorOutput(duplicateToolCallError))
		i += 3
	}

	return result
}

func firstToolCall(msg model.Message) (model.Part, bool) {
	for _, p := range msg.Parts {
		if p.Type == model.PartToolCall {
			return p, true
		}
	}
	return model.Part{}, false
}

// replaceToolResult returns a copy of msg where the result part answering
// callID carries output. Other parts are left as they are.
func replaceToolResult(msg model.Message, callID string, output model.ToolOutput) model.Message {
	updated := msg.Clone()
	for i, p := range updated.Parts {
		if p.Type == model.PartToolResult && p.ToolCallID == callID {
			out := output
			updated.Parts[i].Output = &out
		}
	}
	return updated
}

// sameInput compares two tool inputs as JSON values, ignoring key order and
// whitespace. Inputs that are not valid JSON are compared byte for byte.
func sameInput(a, b json.RawMessage) bool {
	ca, okA := canonicalJSON(a)
	cb, okB := canonicalJSON(b)
	if !okA || !okB {
		return bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b))
	}
	return bytes.Equal(ca, cb)
}

func canonicalJSON(raw json.RawMessage) ([]byte, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("null"), true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return out, true
}
