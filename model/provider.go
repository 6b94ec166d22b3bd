package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM provider implementations (Anthropic, OpenAI, Ollama)
// using the provider-agnostic message types of this package.
//
// The interface lives here rather than in the provider package so that the
// task layer can depend on it without importing every SDK.
type Provider interface {
	// ChatWithTools sends the request and streams the response back via
	// callback. It returns the token usage the backend reported.
	ChatWithTools(ctx context.Context, req ChatRequest, callback StreamCallback) (Usage, error)

	// GetModel returns the model name used for API calls.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)
}

// ChatRequest is one model call. System is sent through the backend's own
// system prompt channel and never appears in Messages.
type ChatRequest struct {
	System   string
	Messages []Message
	Tools    []mcptypes.Tool
}

// Usage is the token accounting of one model call. Backends that do not
// report a figure leave it zero.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
}

// Add returns the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + other.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + other.CacheWriteTokens,
	}
}

// StreamCallback is called for each chunk of a streamed response. Tool calls
// are delivered once complete, with an empty chunk.
type StreamCallback func(chunk string, toolCalls []ToolCall) error
