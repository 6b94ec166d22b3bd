// Package provider implements model.Provider for the supported LLM backends.
//
// The agent core works with provider-agnostic messages (model.Message) whose
// content is either plain text or typed parts: text, image, tool-call and
// tool-result. Each provider converts that history into its SDK's request
// types, streams the response back through model.StreamCallback, and reports
// completed tool calls with their ids so the task loop can answer them.
//
// # Provider options
//
// Messages may carry provider options keyed by provider name. The Anthropic
// provider honours {"anthropic": {"cacheControl": {...}}} by marking the last
// content block of that message as a prompt-cache breakpoint. Other providers
// ignore options they do not understand.
//
// # Architecture
//
//   - model.Provider defines the contract (in the model package to avoid import cycles)
//   - AnthropicProvider uses the official Anthropic SDK
//   - OpenAIProvider uses the official OpenAI SDK and also serves OpenRouter
//   - OllamaProvider wraps ollama.Client
//   - NewProvider creates a provider from Config; ForProfile resolves one
//     from the application config and an agent profile
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type        ProviderType
	BaseURL     string
	Model       string
	APIKey      string // unused for Ollama
	MaxTokens   int
	Temperature float64
}

const defaultMaxTokens = 4096

func (c Config) maxTokens() int64 {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return int64(c.MaxTokens)
}
