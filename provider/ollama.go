package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"aiderdesk/config"
	"aiderdesk/model"
	"aiderdesk/ollama"
)

// OllamaProvider wraps ollama.Client to implement the Provider interface.
//
// It converts model.Message to api.Message, mcptypes.Tool to api.Tool and
// api.ToolCall back to model.ToolCall. Ollama does not assign tool call ids,
// so the provider generates them.
type OllamaProvider struct {
	client *ollama.Client
	newID  func() string
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// An empty BaseURL defaults to "http://localhost:11434" and an empty model to
// "llama3.1:latest". MaxTokens and Temperature map to the num_predict and
// temperature runtime options.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	client, err := ollama.NewClient(cfg.BaseURL, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	if cfg.MaxTokens > 0 {
		client.SetOption("num_predict", cfg.MaxTokens)
	}
	if cfg.Temperature > 0 {
		client.SetOption("temperature", cfg.Temperature)
	}

	return &OllamaProvider{
		client: client,
		newID:  uuid.NewString,
	}, nil
}

// ChatWithTools implements Provider.ChatWithTools with type conversions.
//
// Ollama may report tool calls in any chunk; they are forwarded as soon as
// they arrive.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) (model.Usage, error) {
	ollamaMessages := ConvertToOllamaMessages(req.Messages)
	if req.System != "" {
		ollamaMessages = append([]api.Message{{Role: "system", Content: req.System}}, ollamaMessages...)
	}

	var ollamaTools []api.Tool
	if len(req.Tools) > 0 {
		ollamaTools = toOllamaTools(req.Tools)
		if !p.client.SupportsToolCalling() {
			config.Logger().Warn("Model does not support tool calling, tools disabled", "model", p.client.GetModel())
		}
	}

	ollamaCallback := func(chunk string, ollamaCalls []api.ToolCall) error {
		if callback == nil {
			return nil
		}
		return callback(chunk, ConvertToProviderToolCalls(ollamaCalls, p.newID))
	}

	metrics, err := p.client.ChatWithTools(ctx, ollamaMessages, ollamaTools, ollamaCallback)
	usage := model.Usage{
		InputTokens:  int64(metrics.PromptEvalCount),
		OutputTokens: int64(metrics.EvalCount),
	}
	return usage, err
}

// GetModel implements Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// SetModel implements Provider.SetModel.
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}
