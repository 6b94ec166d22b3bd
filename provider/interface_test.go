package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"aiderdesk/model"
	"aiderdesk/provider"
	"aiderdesk/provider/testutil"
)

// Compile-time checks that every provider satisfies model.Provider.
var (
	_ model.Provider = (*provider.AnthropicProvider)(nil)
	_ model.Provider = (*provider.OpenAIProvider)(nil)
	_ model.Provider = (*provider.OllamaProvider)(nil)
	_ model.Provider = (*testutil.MockProvider)(nil)
)

// TestProviderContract checks the streaming contract the task loop relies on:
// text arrives as chunks, tool calls arrive complete with an empty chunk, and
// callback errors abort the stream.
func TestProviderContract(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	call := model.ToolCall{ID: "c1", Name: "todo---get_items", Input: []byte(`{}`)}
	p := testutil.NewMockProvider("test-model", testutil.Response{
		Chunks:    []string{"Hel", "lo"},
		ToolCalls: []model.ToolCall{call},
		Usage:     model.Usage{InputTokens: 10, OutputTokens: 3},
	})

	var text string
	var calls []model.ToolCall
	req := model.ChatRequest{
		System:   "You are a coding agent.",
		Messages: testutil.SingleUserMessage("Hello"),
		Tools:    testutil.TestMCPTools(),
	}
	usage, err := p.ChatWithTools(ctx, req, func(chunk string, toolCalls []model.ToolCall) error {
		if len(toolCalls) > 0 && chunk != "" {
			t.Errorf("tool calls delivered with text %q", chunk)
		}
		text += chunk
		calls = append(calls, toolCalls...)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatWithTools() error = %v", err)
	}
	if text != "Hello" {
		t.Errorf("streamed text = %q", text)
	}
	if len(calls) != 1 || calls[0].ID != "c1" {
		t.Errorf("tool calls = %+v", calls)
	}
	if got := p.Tools(); len(got) != 1 || len(got[0]) != 2 {
		t.Errorf("tools offered = %+v", got)
	}
	if usage.InputTokens != 10 || usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", usage)
	}
	if got := p.Requests(); got[0].System != req.System {
		t.Errorf("system prompt = %q", got[0].System)
	}
}

func TestUsageAdd(t *testing.T) {
	total := model.Usage{InputTokens: 1, CacheReadTokens: 2}.Add(model.Usage{InputTokens: 4, OutputTokens: 5, CacheWriteTokens: 6})
	want := model.Usage{InputTokens: 5, OutputTokens: 5, CacheReadTokens: 2, CacheWriteTokens: 6}
	if total != want {
		t.Errorf("Add() = %+v, want %+v", total, want)
	}
}

func TestMockProviderCallbackError(t *testing.T) {
	p := testutil.NewMockProvider("test-model")
	stop := errors.New("stop")

	req := model.ChatRequest{Messages: testutil.SingleUserMessage("Hi")}
	_, err := p.ChatWithTools(context.Background(), req, func(string, []model.ToolCall) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestMockProviderModelManagement(t *testing.T) {
	p := testutil.NewMockProvider("test-model")
	if p.GetModel() != "test-model" {
		t.Errorf("GetModel() = %q", p.GetModel())
	}
	p.SetModel("new-model")
	if p.GetModel() != "new-model" {
		t.Errorf("GetModel() after SetModel = %q", p.GetModel())
	}
}
