package provider

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"aiderdesk/config"
	"aiderdesk/model"
)

// ParseToolArguments parses JSON arguments into a map. Invalid or empty
// input yields an empty map.
func ParseToolArguments(argsJSON string) map[string]any {
	args := make(map[string]any)
	if strings.TrimSpace(argsJSON) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

// toolInput returns the call input as a JSON object string, "{}" when empty.
func toolInput(p model.Part) string {
	if len(p.Input) == 0 {
		return "{}"
	}
	return string(p.Input)
}

// wantsAnthropicCache reports whether the message carries an Anthropic cache
// breakpoint in its provider options.
func wantsAnthropicCache(msg model.Message) bool {
	_, ok := msg.ProviderOptions["anthropic"]["cacheControl"]
	return ok
}

func imageDataURL(p model.Part) string {
	if strings.HasPrefix(p.Image, "data:") || strings.HasPrefix(p.Image, "http://") || strings.HasPrefix(p.Image, "https://") {
		return p.Image
	}
	return "data:" + p.MediaType + ";base64," + p.Image
}

// ConvertToAnthropicMessages converts a history to Anthropic message params.
// Tool messages become user turns with tool_result blocks.
func ConvertToAnthropicMessages(messages []model.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		blocks := anthropicBlocks(msg)
		if len(blocks) == 0 {
			continue
		}
		if wantsAnthropicCache(msg) {
			markAnthropicCache(blocks[len(blocks)-1])
		}

		switch msg.Role {
		case model.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		default:
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	return result
}

func anthropicBlocks(msg model.Message) []anthropic.ContentBlockParamUnion {
	if !msg.IsStructured() {
		if msg.Text == "" {
			return nil
		}
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Text)}
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Type {
		case model.PartText:
			if p.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(p.Text))
			}
		case model.PartImage:
			blocks = append(blocks, anthropic.NewImageBlockBase64(p.MediaType, p.Image))
		case model.PartToolCall:
			blocks = append(blocks, anthropic.NewToolUseBlock(p.ToolCallID, json.RawMessage(toolInput(p)), p.ToolName))
		case model.PartToolResult:
			out := model.TextOutput("")
			if p.Output != nil {
				out = *p.Output
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(p.ToolCallID, out.String(), out.IsError()))
		}
	}
	return blocks
}

// markAnthropicCache sets an ephemeral cache breakpoint on a content block.
func markAnthropicCache(block anthropic.ContentBlockParamUnion) {
	cache := anthropic.NewCacheControlEphemeralParam()
	switch {
	case block.OfText != nil:
		block.OfText.CacheControl = cache
	case block.OfImage != nil:
		block.OfImage.CacheControl = cache
	case block.OfToolUse != nil:
		block.OfToolUse.CacheControl = cache
	case block.OfToolResult != nil:
		block.OfToolResult.CacheControl = cache
	}
}

// ConvertToOpenAIMessages converts a history to OpenAI chat messages, led by
// the system prompt when one is set. Each tool result becomes its own tool
// message.
func ConvertToOpenAIMessages(system string, messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			if !msg.IsStructured() {
				result = append(result, openai.UserMessage(msg.Text))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts))
			for _, p := range msg.Parts {
				switch p.Type {
				case model.PartText:
					parts = append(parts, openai.TextContentPart(p.Text))
				case model.PartImage:
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: imageDataURL(p),
					}))
				}
			}
			result = append(result, openai.UserMessage(parts))

		case model.RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if text := msg.TextContent(); text != "" {
				assistant.Content.OfString = openai.String(text)
			}
			for _, call := range msg.ToolCalls() {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ToolCallID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.ToolName,
							Arguments: toolInput(call),
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case model.RoleTool:
			for _, p := range msg.Parts {
				if p.Type != model.PartToolResult || p.Output == nil {
					continue
				}
				result = append(result, openai.ToolMessage(p.Output.String(), p.ToolCallID))
			}
		}
	}

	return result
}

// jsonPatch sets one path of an encoded request body.
type jsonPatch struct {
	Path  string
	Value any
}

// openRouterCachePatches places OpenRouter cache_control markers on the
// request messages built from history entries that carry the "openrouter"
// cache option. OpenRouter reads the marker from a content part, so string
// content is rewritten as a single text part.
func openRouterCachePatches(system string, messages []model.Message) []jsonPatch {
	var patches []jsonPatch

	index := 0
	if system != "" {
		index++
	}
	for _, msg := range messages {
		count, text, parts := openAILayout(msg)
		marker, ok := msg.ProviderOptions["openrouter"]["cacheControl"]
		index += count
		if !ok || count == 0 {
			continue
		}

		last := index - 1
		switch {
		case parts > 0:
			patches = append(patches, jsonPatch{
				Path:  fmt.Sprintf("messages.%d.content.%d.cache_control", last, parts-1),
				Value: marker,
			})
		case text != "":
			patches = append(patches, jsonPatch{
				Path:  fmt.Sprintf("messages.%d.content", last),
				Value: []any{map[string]any{"type": "text", "text": text, "cache_control": marker}},
			})
		}
	}
	return patches
}

// openAILayout mirrors ConvertToOpenAIMessages for one history entry: how
// many request messages it becomes, and the content of the last of them,
// either its string text or its number of content parts.
func openAILayout(msg model.Message) (count int, text string, parts int) {
	switch msg.Role {
	case model.RoleUser:
		if !msg.IsStructured() {
			return 1, msg.Text, 0
		}
		for _, p := range msg.Parts {
			if p.Type == model.PartText || p.Type == model.PartImage {
				parts++
			}
		}
		return 1, "", parts
	case model.RoleAssistant:
		return 1, msg.TextContent(), 0
	case model.RoleTool:
		for _, p := range msg.Parts {
			if p.Type == model.PartToolResult && p.Output != nil {
				count++
				text = p.Output.String()
			}
		}
		return count, text, 0
	}
	return 0, "", 0
}

// ConvertToOllamaMessages converts a history to Ollama messages. Base64
// images are decoded; images that fail to decode are dropped with a warning.
func ConvertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleTool:
			for _, p := range msg.Parts {
				if p.Type != model.PartToolResult || p.Output == nil {
					continue
				}
				result = append(result, api.Message{
					Role:     string(model.RoleTool),
					Content:  p.Output.String(),
					ToolName: p.ToolName,
				})
			}

		case model.RoleAssistant:
			out := api.Message{Role: string(msg.Role), Content: msg.TextContent()}
			for _, call := range msg.ToolCalls() {
				out.ToolCalls = append(out.ToolCalls, api.ToolCall{
					Function: api.ToolCallFunction{
						Name:      call.ToolName,
						Arguments: ParseToolArguments(toolInput(call)),
					},
				})
			}
			result = append(result, out)

		default:
			out := api.Message{Role: string(msg.Role), Content: msg.TextContent()}
			for _, p := range msg.Parts {
				if p.Type != model.PartImage {
					continue
				}
				data, err := base64.StdEncoding.DecodeString(p.Image)
				if err != nil {
					config.Logger().Warn("Skipping image that is not base64 encoded", "mediaType", p.MediaType, "err", err)
					continue
				}
				out.Images = append(out.Images, api.ImageData(data))
			}
			result = append(result, out)
		}
	}

	return result
}

// ConvertToProviderToolCalls converts Ollama tool calls to model tool calls.
// Ollama does not assign call ids, so newID supplies them.
func ConvertToProviderToolCalls(ollamaCalls []api.ToolCall, newID func() string) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		input, err := json.Marshal(call.Function.Arguments)
		if err != nil {
			input = []byte("{}")
		}
		result[i] = model.ToolCall{
			ID:    newID(),
			Name:  call.Function.Name,
			Input: input,
		}
	}
	return result
}
