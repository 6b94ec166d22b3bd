package testutil

import (
	"context"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/model"
)

// Response is one scripted model turn: streamed text chunks followed by
// optional tool calls, with the usage the turn reports.
type Response struct {
	Chunks    []string
	ToolCalls []model.ToolCall
	Usage     model.Usage
	Err       error
}

// MockProvider implements model.Provider for testing.
//
// By default it plays back Responses in order, one per call, and repeats a
// plain "Mock response" once the script is exhausted. ChatWithToolsFunc
// overrides the script entirely.
type MockProvider struct {
	ChatWithToolsFunc func(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) (model.Usage, error)
	Responses         []Response

	mu           sync.Mutex
	currentModel string
	requests     []model.ChatRequest
}

// NewMockProvider creates a mock provider with default implementations
func NewMockProvider(modelName string, responses ...Response) *MockProvider {
	return &MockProvider{
		currentModel: modelName,
		Responses:    responses,
	}
}

func (m *MockProvider) ChatWithTools(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) (model.Usage, error) {
	m.mu.Lock()
	recorded := req
	recorded.Messages = model.CloneMessages(req.Messages)
	m.requests = append(m.requests, recorded)
	turn := len(m.requests) - 1
	fn := m.ChatWithToolsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req, callback)
	}

	if err := ctx.Err(); err != nil {
		return model.Usage{}, err
	}

	resp := Response{Chunks: []string{"Mock response"}}
	if turn < len(m.Responses) {
		resp = m.Responses[turn]
	}
	if resp.Err != nil {
		return model.Usage{}, resp.Err
	}

	for _, chunk := range resp.Chunks {
		if err := callback(chunk, nil); err != nil {
			return resp.Usage, err
		}
	}
	if len(resp.ToolCalls) > 0 {
		return resp.Usage, callback("", resp.ToolCalls)
	}
	return resp.Usage, nil
}

// Requests returns the requests the provider received, in order.
func (m *MockProvider) Requests() []model.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChatRequest(nil), m.requests...)
}

// Calls returns the message histories the provider was called with.
func (m *MockProvider) Calls() [][]model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([][]model.Message, len(m.requests))
	for i, r := range m.requests {
		calls[i] = r.Messages
	}
	return calls
}

// Tools returns the tool lists the provider was offered, per call.
func (m *MockProvider) Tools() [][]mcptypes.Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	tools := make([][]mcptypes.Tool, len(m.requests))
	for i, r := range m.requests {
		tools[i] = r.Tools
	}
	return tools
}

func (m *MockProvider) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentModel = model
}
