package testutil

import (
	"encoding/json"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/model"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.Message {
	return []model.Message{
		model.UserMessage("Hello, how are you?"),
		model.AssistantMessage(model.TextPart("I'm doing well, thank you!")),
		model.UserMessage("Can you help me with a task?"),
	}
}

// ToolConversation returns a conversation with one completed tool round trip.
func ToolConversation() []model.Message {
	return []model.Message{
		model.UserMessage("Read main.go"),
		model.AssistantMessage(
			model.TextPart("Reading the file."),
			model.ToolCallPart("call-1", "fs---read_file", json.RawMessage(`{"path":"main.go"}`)),
		),
		model.ToolMessage(model.ToolResultPart("call-1", "fs---read_file", model.TextOutput("package main"))),
		{
			Role:  model.RoleUser,
			Parts: []model.Part{model.TextPart("And this screenshot"), model.ImagePart("aGVsbG8=", "image/png")},
		},
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.Message {
	return []model.Message{model.UserMessage(content)}
}

// TestMCPTools returns sample namespaced tools for testing
func TestMCPTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        "todo---get_items",
			Description: "Get the current TODO items",
			InputSchema: mcptypes.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{},
			},
		},
		{
			Name:        "fs---read_file",
			Description: "Read a file from the project",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path relative to the project root",
					},
				},
				Required: []string{"path"},
			},
		},
	}
}

// EmptyMessages returns an empty message slice for edge case testing
func EmptyMessages() []model.Message {
	return []model.Message{}
}
