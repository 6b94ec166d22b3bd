package provider

import (
	"fmt"

	"aiderdesk/model"
)

// NewProvider creates a provider based on configuration.
//
// Supported provider types:
//   - ProviderTypeAnthropic: Anthropic Messages API
//   - ProviderTypeOpenAI: OpenAI Chat Completions API
//   - ProviderTypeOpenRouter: OpenRouter, through the OpenAI client
//   - ProviderTypeOllama: local Ollama server
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (e.g., missing API key, invalid URL).
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg)
	case ProviderTypeOpenRouter:
		if cfg.BaseURL == "" {
			cfg.BaseURL = openRouterBaseURL
		}
		return NewOpenAIProvider(cfg)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider type string to ProviderType.
//
// Mappings:
//   - "ollama" → ProviderTypeOllama
//   - "openrouter" → ProviderTypeOpenRouter
//   - "openai" → ProviderTypeOpenAI
//   - "anthropic" → ProviderTypeAnthropic
//
// For unknown IDs, returns the ID cast as ProviderType (factory will error).
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "ollama":
		return ProviderTypeOllama
	case "openrouter":
		return ProviderTypeOpenRouter
	case "openai":
		return ProviderTypeOpenAI
	case "anthropic":
		return ProviderTypeAnthropic
	default:
		return ProviderType(id)
	}
}
