package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Role identifies the author of a message in a conversation.
// System prompts are handled outside the message history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType discriminates the content parts of a structured message.
type PartType string

const (
	PartText       PartType = "text"
	PartImage      PartType = "image"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

// Part is a single typed piece of message content. Only the fields relevant
// to Type are populated.
type Part struct {
	Type PartType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image: base64 payload (or URL) and its media type
	Image     string `json:"image,omitempty"`
	MediaType string `json:"mediaType,omitempty"`

	// tool-call and tool-result
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     *ToolOutput     `json:"output,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ImagePart builds an image content part.
func ImagePart(image, mediaType string) Part {
	return Part{Type: PartImage, Image: image, MediaType: mediaType}
}

// ToolCallPart builds a tool-call content part.
func ToolCallPart(id, name string, input json.RawMessage) Part {
	return Part{Type: PartToolCall, ToolCallID: id, ToolName: name, Input: input}
}

// ToolResultPart builds a tool-result content part answering the given call.
func ToolResultPart(id, name string, output ToolOutput) Part {
	return Part{Type: PartToolResult, ToolCallID: id, ToolName: name, Output: &output}
}

// Clone returns a deep copy of the part.
func (p Part) Clone() Part {
	c := p
	if p.Input != nil {
		c.Input = bytes.Clone(p.Input)
	}
	if p.Output != nil {
		out := p.Output.Clone()
		c.Output = &out
	}
	return c
}

// Message is a single turn in a conversation. Content is either plain text
// (Parts == nil) or an ordered list of typed parts.
type Message struct {
	Role            Role
	Text            string
	Parts           []Part
	ProviderOptions ProviderOptions
}

// UserMessage builds a plain-text user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage builds an assistant message from parts.
func AssistantMessage(parts ...Part) Message {
	return Message{Role: RoleAssistant, Parts: parts}
}

// ToolMessage builds a tool message from tool-result parts.
func ToolMessage(results ...Part) Message {
	return Message{Role: RoleTool, Parts: results}
}

// IsStructured reports whether the content is a part list rather than plain text.
func (m Message) IsStructured() bool {
	return m.Parts != nil
}

// Clone returns a deep copy of the message so callers can modify it without
// affecting the original history.
func (m Message) Clone() Message {
	c := Message{
		Role:            m.Role,
		Text:            m.Text,
		ProviderOptions: m.ProviderOptions.Clone(),
	}
	if m.Parts != nil {
		c.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			c.Parts[i] = p.Clone()
		}
	}
	return c
}

// CloneMessages deep-copies a conversation sequence.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}

// TextContent returns the plain text of the message: the raw string for plain
// content, or the text parts joined by blank lines for structured content.
func (m Message) TextContent() string {
	if !m.IsStructured() {
		return m.Text
	}
	var buf bytes.Buffer
	for _, p := range m.Parts {
		if p.Type != PartText || p.Text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p.Text)
	}
	return buf.String()
}

// ToolCalls returns the tool-call parts of the message in order.
func (m Message) ToolCalls() []Part {
	var calls []Part
	for _, p := range m.Parts {
		if p.Type == PartToolCall {
			calls = append(calls, p)
		}
	}
	return calls
}

type messageJSON struct {
	Role            Role            `json:"role"`
	Content         json.RawMessage `json:"content"`
	ProviderOptions ProviderOptions `json:"providerOptions,omitempty"`
}

// MarshalJSON encodes content as a JSON string or a JSON array of parts.
func (m Message) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error
	if m.IsStructured() {
		content, err = json.Marshal(m.Parts)
	} else {
		content, err = json.Marshal(m.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{
		Role:            m.Role,
		Content:         content,
		ProviderOptions: m.ProviderOptions,
	})
}

// UnmarshalJSON accepts content as either a JSON string or an array of parts.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Message{Role: raw.Role, ProviderOptions: raw.ProviderOptions}

	content := bytes.TrimSpace(raw.Content)
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
		return nil
	case content[0] == '"':
		return json.Unmarshal(content, &m.Text)
	case content[0] == '[':
		parts := []Part{}
		if err := json.Unmarshal(content, &parts); err != nil {
			return fmt.Errorf("invalid message parts: %w", err)
		}
		m.Parts = parts
		return nil
	default:
		return fmt.Errorf("unsupported message content: %s", content)
	}
}

// ProviderOptions is an opaque bag of provider-specific directives keyed by
// provider name, e.g. {"anthropic": {"cacheControl": {"type": "ephemeral"}}}.
type ProviderOptions map[string]map[string]any

// Clone copies the two outer levels; leaf values are treated as immutable.
func (o ProviderOptions) Clone() ProviderOptions {
	if o == nil {
		return nil
	}
	c := make(ProviderOptions, len(o))
	for provider, opts := range o {
		c[provider] = maps.Clone(opts)
	}
	return c
}

// Merge returns a copy of o with every provider entry of other merged on top.
func (o ProviderOptions) Merge(other ProviderOptions) ProviderOptions {
	merged := o.Clone()
	if merged == nil {
		merged = make(ProviderOptions, len(other))
	}
	for provider, opts := range other {
		dst, ok := merged[provider]
		if !ok {
			dst = make(map[string]any, len(opts))
			merged[provider] = dst
		}
		for k, v := range opts {
			dst[k] = v
		}
	}
	return merged
}

// CacheControl is the provider options stamped onto the final message of a
// sequence to mark the cacheable prefix.
type CacheControl = ProviderOptions

// EphemeralCacheControl returns the cache marker understood by the Anthropic
// and OpenRouter providers.
func EphemeralCacheControl() CacheControl {
	ephemeral := map[string]any{"type": "ephemeral"}
	return CacheControl{
		"anthropic":  {"cacheControl": ephemeral},
		"openrouter": {"cacheControl": ephemeral},
	}
}
