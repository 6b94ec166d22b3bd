package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"aiderdesk/model"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenAIProvider implements the Provider interface using OpenAI's official API.
// It also serves OpenRouter, which is OpenAI-compatible.
type OpenAIProvider struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	openRouter  bool
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Defaults:
//   - BaseURL: "https://api.openai.com/v1"
//   - Model: "gpt-4o-mini"
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	return &OpenAIProvider{
		client:      client,
		model:       modelName,
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.Temperature,
		openRouter:  cfg.Type == ProviderTypeOpenRouter,
	}, nil
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
// Through OpenRouter, cache markers in provider options become cache_control
// fields of the request body.
func (p *OpenAIProvider) ChatWithTools(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) (model.Usage, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            ConvertToOpenAIMessages(req.System, req.Messages),
		Model:               openai.ChatModel(p.model),
		MaxCompletionTokens: openai.Int(p.maxTokens),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}

	var opts []option.RequestOption
	if p.openRouter {
		for _, patch := range openRouterCachePatches(req.System, req.Messages) {
			opts = append(opts, option.WithJSONSet(patch.Path, patch.Value))
		}
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params, opts...)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	var toolCalls []model.ToolCall

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if tool, ok := acc.JustFinishedToolCall(); ok {
			id := tool.ID
			if id == "" {
				id = uuid.NewString()
			}
			toolCalls = append(toolCalls, model.ToolCall{
				ID:    id,
				Name:  tool.Name,
				Input: []byte(tool.Arguments),
			})
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" && callback != nil {
			if err := callback(chunk.Choices[0].Delta.Content, nil); err != nil {
				return openAIUsage(acc.Usage), err
			}
		}
	}

	usage := openAIUsage(acc.Usage)
	if err := stream.Err(); err != nil {
		return usage, fmt.Errorf("OpenAI streaming error: %w", err)
	}

	if len(toolCalls) > 0 && callback != nil {
		return usage, callback("", toolCalls)
	}
	return usage, nil
}

func openAIUsage(u openai.CompletionUsage) model.Usage {
	return model.Usage{
		InputTokens:     u.PromptTokens,
		OutputTokens:    u.CompletionTokens,
		CacheReadTokens: u.PromptTokensDetails.CachedTokens,
	}
}

// GetModel implements Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}
