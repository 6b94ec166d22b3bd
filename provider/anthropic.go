package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/model"
)

// AnthropicProvider implements the Provider interface using Anthropic's official API.
// It honours per-message cache breakpoints set through provider options.
type AnthropicProvider struct {
	client      *anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Defaults:
//   - BaseURL: "https://api.anthropic.com"
//   - Model: "claude-sonnet-4-5-20250929"
//
// Returns an error if the API key is missing.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if cfg.Model != "" {
		anthropicModel = anthropic.Model(cfg.Model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	return &AnthropicProvider{
		client:      &client,
		model:       anthropicModel,
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.Temperature,
	}, nil
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
func (p *AnthropicProvider) ChatWithTools(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) (model.Usage, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  ConvertToAnthropicMessages(req.Messages),
		MaxTokens: p.maxTokens,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}
	if p.temperature > 0 {
		params.Temperature = anthropic.Float(p.temperature)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return model.Usage{}, fmt.Errorf("error accumulating message: %w", err)
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if callback != nil {
					if err := callback(delta.Text, nil); err != nil {
						return anthropicUsage(msg.Usage), err
					}
				}
			}
		}
	}

	usage := anthropicUsage(msg.Usage)
	if err := stream.Err(); err != nil {
		return usage, fmt.Errorf("Anthropic streaming error: %w", err)
	}

	if callback != nil {
		if toolCalls := extractAnthropicToolCalls(msg.Content); len(toolCalls) > 0 {
			return usage, callback("", toolCalls)
		}
	}
	return usage, nil
}

func anthropicUsage(u anthropic.Usage) model.Usage {
	return model.Usage{
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		CacheReadTokens:  u.CacheReadInputTokens,
		CacheWriteTokens: u.CacheCreationInputTokens,
	}
}

// GetModel implements Provider.GetModel.
func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

// SetModel implements Provider.SetModel.
func (p *AnthropicProvider) SetModel(model string) {
	p.model = anthropic.Model(model)
}

func extractAnthropicToolCalls(content []anthropic.ContentBlockUnion) []model.ToolCall {
	var toolCalls []model.ToolCall
	for _, block := range content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			toolCalls = append(toolCalls, model.ToolCall{
				ID:    toolUse.ID,
				Name:  toolUse.Name,
				Input: toolUse.Input,
			})
		}
	}
	return toolCalls
}
