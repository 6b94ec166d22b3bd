package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OutputType discriminates tool result outputs.
type OutputType string

const (
	OutputText      OutputType = "text"
	OutputJSON      OutputType = "json"
	OutputErrorText OutputType = "error-text"
	OutputErrorJSON OutputType = "error-json"
	OutputContent   OutputType = "content"
)

// ToolOutput is the output of a tool call. Text variants keep their string in
// Text; every other variant keeps its value as raw JSON in Value. Outputs of a
// type this package does not know are kept whole in Raw and re-encoded
// unchanged.
type ToolOutput struct {
	Type  OutputType      `json:"type"`
	Text  string          `json:"-"`
	Value json.RawMessage `json:"-"`
	Raw   json.RawMessage `json:"-"`
}

// TextOutput builds a text output.
func TextOutput(text string) ToolOutput {
	return ToolOutput{Type: OutputText, Text: text}
}

// ErrorOutput builds an error-text output.
func ErrorOutput(text string) ToolOutput {
	return ToolOutput{Type: OutputErrorText, Text: text}
}

// JSONOutput builds a structured output from an already encoded JSON value.
func JSONOutput(value json.RawMessage) ToolOutput {
	return ToolOutput{Type: OutputJSON, Value: value}
}

// JSONOutputOf marshals v into a structured output.
func JSONOutputOf(v any) (ToolOutput, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ToolOutput{}, fmt.Errorf("failed to marshal tool output: %w", err)
	}
	return JSONOutput(data), nil
}

// IsText reports whether the output carries text (plain or error).
func (o ToolOutput) IsText() bool {
	return o.Type == OutputText || o.Type == OutputErrorText
}

// IsError reports whether the tool reported a failure.
func (o ToolOutput) IsError() bool {
	return o.Type == OutputErrorText || o.Type == OutputErrorJSON
}

func (o ToolOutput) known() bool {
	switch o.Type {
	case OutputText, OutputErrorText, OutputJSON, OutputErrorJSON, OutputContent:
		return true
	}
	return false
}

// String renders the output as text. Structured values are returned as
// their JSON encoding.
func (o ToolOutput) String() string {
	switch {
	case o.IsText():
		return o.Text
	case o.Value != nil:
		return string(o.Value)
	default:
		return string(o.Raw)
	}
}

// Clone returns a deep copy of the output.
func (o ToolOutput) Clone() ToolOutput {
	c := o
	if o.Value != nil {
		c.Value = bytes.Clone(o.Value)
	}
	if o.Raw != nil {
		c.Raw = bytes.Clone(o.Raw)
	}
	return c
}

type toolOutputJSON struct {
	Type  OutputType      `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the output as {"type": ..., "value": ...}.
func (o ToolOutput) MarshalJSON() ([]byte, error) {
	if !o.known() && o.Raw != nil {
		return o.Raw, nil
	}

	var value json.RawMessage
	if o.IsText() {
		encoded, err := json.Marshal(o.Text)
		if err != nil {
			return nil, err
		}
		value = encoded
	} else {
		value = o.Value
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
	}
	return json.Marshal(toolOutputJSON{Type: o.Type, Value: value})
}

// UnmarshalJSON decodes the {"type": ..., "value": ...} form. Unknown types
// are accepted and kept verbatim.
func (o *ToolOutput) UnmarshalJSON(data []byte) error {
	var raw toolOutputJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*o = ToolOutput{Type: raw.Type}
	switch raw.Type {
	case OutputText, OutputErrorText:
		if len(raw.Value) == 0 || bytes.Equal(raw.Value, []byte("null")) {
			return nil
		}
		return json.Unmarshal(raw.Value, &o.Text)
	case OutputJSON, OutputErrorJSON, OutputContent:
		o.Value = bytes.Clone(raw.Value)
		return nil
	default:
		o.Raw = bytes.Clone(data)
		return nil
	}
}

// ToolCall is a tool invocation requested by the model while streaming.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Arguments decodes the call input into a map. Invalid input yields an empty map.
func (c ToolCall) Arguments() map[string]any {
	args := make(map[string]any)
	if len(c.Input) == 0 {
		return args
	}
	if err := json.Unmarshal(c.Input, &args); err != nil {
		return make(map[string]any)
	}
	return args
}
