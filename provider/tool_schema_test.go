package provider

import (
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"aiderdesk/provider/testutil"
)

func TestToOllamaTools(t *testing.T) {
	tests := []struct {
		name     string
		input    []mcptypes.Tool
		expected int
		validate func(t *testing.T, result []api.Tool)
	}{
		{
			name:     "no tools",
			input:    nil,
			expected: 0,
		},
		{
			name:     "namespaced tools",
			input:    testutil.TestMCPTools(),
			expected: 2,
			validate: func(t *testing.T, result []api.Tool) {
				if result[0].Type != "function" {
					t.Errorf("expected type 'function', got %q", result[0].Type)
				}
				if result[0].Function.Name != "todo---get_items" {
					t.Errorf("unexpected name %q", result[0].Function.Name)
				}
				params := result[1].Function.Parameters
				if params.Type != "object" {
					t.Errorf("expected type 'object', got %q", params.Type)
				}
				if len(params.Required) != 1 || params.Required[0] != "path" {
					t.Errorf("unexpected required fields: %v", params.Required)
				}
				if _, ok := params.Properties["path"]; !ok {
					t.Error("path property not found")
				}
			},
		},
		{
			name: "schema without type",
			input: []mcptypes.Tool{
				{Name: "bare", InputSchema: mcptypes.ToolInputSchema{}},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				if result[0].Function.Parameters.Type != "object" {
					t.Errorf("expected default type 'object', got %q", result[0].Function.Parameters.Type)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := toOllamaTools(tt.input)
			if len(result) != tt.expected {
				t.Fatalf("expected %d tools, got %d", tt.expected, len(result))
			}
			if tt.validate != nil {
				tt.validate(t, result)
			}
		})
	}
}

func TestToOllamaProperty(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		validate func(t *testing.T, result api.ToolProperty)
	}{
		{
			name:  "string type",
			input: map[string]any{"type": "string", "description": "A string property"},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.Type) != 1 || result.Type[0] != "string" {
					t.Errorf("expected type [string], got %v", result.Type)
				}
				if result.Description != "A string property" {
					t.Errorf("description mismatch: %q", result.Description)
				}
			},
		},
		{
			name:  "multiple types",
			input: map[string]any{"type": []any{"string", "number"}},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.Type) != 2 {
					t.Errorf("expected 2 types, got %v", result.Type)
				}
			},
		},
		{
			name:  "enum",
			input: map[string]any{"type": "string", "enum": []any{"a", "b", "c"}},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.Enum) != 3 {
					t.Errorf("expected 3 enum values, got %d", len(result.Enum))
				}
			},
		},
		{
			name: "anyOf",
			input: map[string]any{"anyOf": []any{
				map[string]any{"type": "string"},
				map[string]any{"type": "null"},
			}},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.AnyOf) != 2 || result.AnyOf[1].Type[0] != "null" {
					t.Errorf("unexpected anyOf: %+v", result.AnyOf)
				}
			},
		},
		{
			name:  "struct value",
			input: struct {
				Type string `json:"type"`
			}{Type: "boolean"},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.Type) != 1 || result.Type[0] != "boolean" {
					t.Errorf("expected type [boolean], got %v", result.Type)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, toOllamaProperty(tt.input))
		})
	}
}

func TestToOpenAITools(t *testing.T) {
	if toOpenAITools(nil) != nil {
		t.Error("expected nil for no tools")
	}

	result := toOpenAITools(testutil.TestMCPTools())
	if len(result) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(result))
	}
	fn := result[1].OfFunction
	if fn == nil {
		t.Fatal("expected a function tool")
	}
	if fn.Function.Name != "fs---read_file" {
		t.Errorf("unexpected name %q", fn.Function.Name)
	}
	if fn.Function.Parameters["required"] == nil {
		t.Error("required fields missing")
	}
}

func TestToAnthropicTools(t *testing.T) {
	if toAnthropicTools(nil) != nil {
		t.Error("expected nil for no tools")
	}

	result := toAnthropicTools(testutil.TestMCPTools())
	if len(result) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(result))
	}
	tool := result[0].OfTool
	if tool == nil {
		t.Fatal("expected a custom tool")
	}
	if tool.Name != "todo---get_items" {
		t.Errorf("unexpected name %q", tool.Name)
	}
	if !tool.Description.Valid() {
		t.Error("description not set")
	}
}
