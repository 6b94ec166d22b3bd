package agent

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"aiderdesk/model"
)

func toolCall(id, name, input string) model.Message {
	return model.AssistantMessage(model.ToolCallPart(id, name, json.RawMessage(input)))
}

func toolResult(id, name string, output model.ToolOutput) model.Message {
	return model.ToolMessage(model.ToolResultPart(id, name, output))
}

func imageResultJSON() json.RawMessage {
	return json.RawMessage(`{"content":[{"type":"image","data":"aGVsbG8=","mimeType":"image/png"}]}`)
}

// quietProfile produces no reminders at all.
var quietProfile = model.AgentProfile{ID: "quiet", AutoApprove: true}

func TestOptimizeMessagesEmpty(t *testing.T) {
	result := OptimizeMessages(quietProfile, 0, nil, model.EphemeralCacheControl(), nil)
	if result == nil {
		t.Fatal("expected empty non-nil slice")
	}
	if len(result) != 0 {
		t.Fatalf("expected no messages, got %d", len(result))
	}
}

func TestOptimizeMessagesTodoReminderOnly(t *testing.T) {
	profile := model.AgentProfile{ID: "p", UseTodoTools: true, AutoApprove: true}
	messages := []model.Message{
		model.UserMessage("fix the bug"),
		model.AssistantMessage(model.TextPart("on it")),
		model.UserMessage("thanks"),
	}
	original := model.CloneMessages(messages)

	result := OptimizeMessages(profile, 0, messages, nil, &model.Settings{})

	if len(result) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(result))
	}
	if !strings.HasPrefix(result[0].Text, "fix the bug\n\nTHIS IS IMPORTANT:\n- ") {
		t.Fatalf("reminder block missing: %q", result[0].Text)
	}
	if strings.Count(result[0].Text, "\n- ") != 1 {
		t.Errorf("expected exactly one bullet, got %q", result[0].Text)
	}
	if !strings.Contains(result[0].Text, "todo---get_items") {
		t.Errorf("todo reminder should name the get_items tool: %q", result[0].Text)
	}
	for i := 1; i < len(result); i++ {
		if !reflect.DeepEqual(result[i], original[i]) {
			t.Errorf("message %d changed: %+v", i, result[i])
		}
	}
	if !reflect.DeepEqual(messages, original) {
		t.Error("input messages were modified")
	}
}

func TestBuildReminders(t *testing.T) {
	settings := &model.Settings{AgentProfiles: []model.AgentProfile{
		{ID: "main", Name: "Main", Subagent: model.SubagentConfig{Enabled: true, InvocationMode: model.InvocationAutomatic, Description: "self"}},
		{ID: "checker", Name: "Checker", Subagent: model.SubagentConfig{Enabled: true, InvocationMode: model.InvocationAutomatic, Description: "checks"}},
		{ID: "manual", Name: "Manual", Subagent: model.SubagentConfig{Enabled: true, InvocationMode: model.InvocationOnDemand, Description: "manual"}},
		{ID: "silent", Name: "Silent", Subagent: model.SubagentConfig{Enabled: true, InvocationMode: model.InvocationAutomatic}},
		{ID: "off", Name: "Off", Subagent: model.SubagentConfig{Enabled: false, InvocationMode: model.InvocationAutomatic, Description: "off"}},
	}}

	tests := []struct {
		name     string
		profile  model.AgentProfile
		expected []string
	}{
		{
			name:     "nothing active",
			profile:  model.AgentProfile{ID: "main", AutoApprove: true},
			expected: nil,
		},
		{
			name:     "approval gating",
			profile:  model.AgentProfile{ID: "main"},
			expected: []string{"Before making any complex changes"},
		},
		{
			name:     "subagents never get approval reminder",
			profile:  model.AgentProfile{ID: "main", IsSubagent: true},
			expected: nil,
		},
		{
			name:     "automatic subagents listed",
			profile:  model.AgentProfile{ID: "main", UseSubagents: true, AutoApprove: true},
			expected: []string{"automatic subagents when appropriate based on their descriptions:\n- Checker"},
		},
		{
			name:    "all reminders in order",
			profile: model.AgentProfile{ID: "main", UseTodoTools: true, UseSubagents: true},
			expected: []string{
				"Always use the TODO list tools",
				"- Checker",
				"Before making any complex changes",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reminders := buildReminders(tt.profile, settings)
			if len(reminders) != len(tt.expected) {
				t.Fatalf("got %d reminders, want %d: %q", len(reminders), len(tt.expected), reminders)
			}
			for i, want := range tt.expected {
				if !strings.Contains(reminders[i], want) {
					t.Errorf("reminder %d: %q does not contain %q", i, reminders[i], want)
				}
			}
		})
	}
}

func TestAddImportantRemindersStructuredContent(t *testing.T) {
	profile := model.AgentProfile{ID: "p"}
	messages := []model.Message{{
		Role:  model.RoleUser,
		Parts: []model.Part{model.TextPart("look at this"), model.ImagePart("aGVsbG8=", "image/png")},
	}}

	result := addImportantReminders(profile, 0, messages, nil)

	parts := result[0].Parts
	if len(parts) != 3 {
		t.Fatalf("expected a trailing text part, got %d parts", len(parts))
	}
	if parts[2].Type != model.PartText || !strings.HasPrefix(parts[2].Text, "\n\nTHIS IS IMPORTANT:") {
		t.Errorf("unexpected trailing part: %+v", parts[2])
	}
	if len(messages[0].Parts) != 2 {
		t.Error("input message was modified")
	}
}

func TestAddImportantRemindersIndexOutOfRange(t *testing.T) {
	messages := []model.Message{model.UserMessage("hi")}
	result := addImportantReminders(model.AgentProfile{}, 5, messages, nil)
	if result[0].Text != "hi" {
		t.Errorf("expected no change, got %q", result[0].Text)
	}
}

func TestOptimizeAiderMessagesIdempotent(t *testing.T) {
	runPrompt := model.ToolName(model.AiderToolGroup, model.AiderToolRunPrompt)
	messages := []model.Message{
		toolCall("1", runPrompt, `{"prompt":"add tests"}`),
		toolResult("1", runPrompt, model.JSONOutput(json.RawMessage(
			`{"responses":[{"content":"long"}],"promptContext":{"id":"x"},"updatedFiles":["a.go"]}`))),
		toolResult("2", "other---tool", model.JSONOutput(json.RawMessage(`{"responses":[1]}`))),
	}

	once := optimizeAiderMessages(messages)
	twice := optimizeAiderMessages(once)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("shrinking is not idempotent:\nonce:  %s\ntwice: %s", once[1].Parts[0].Output.Value, twice[1].Parts[0].Output.Value)
	}

	var shrunk map[string]any
	if err := json.Unmarshal(once[1].Parts[0].Output.Value, &shrunk); err != nil {
		t.Fatalf("invalid JSON after shrinking: %v", err)
	}
	if _, ok := shrunk["responses"]; ok {
		t.Error("responses should be removed")
	}
	if _, ok := shrunk["promptContext"]; ok {
		t.Error("promptContext should be removed")
	}
	if _, ok := shrunk["updatedFiles"]; !ok {
		t.Error("updatedFiles should be kept")
	}

	if string(once[2].Parts[0].Output.Value) != `{"responses":[1]}` {
		t.Errorf("other tools must not be touched: %s", once[2].Parts[0].Output.Value)
	}
	if !strings.Contains(string(messages[1].Parts[0].Output.Value), "promptContext") {
		t.Error("input message was modified")
	}
}

func TestOptimizeAiderMessagesNonObject(t *testing.T) {
	runPrompt := model.ToolName(model.AiderToolGroup, model.AiderToolRunPrompt)
	messages := []model.Message{
		toolResult("1", runPrompt, model.JSONOutput(json.RawMessage(`[1,2,3]`))),
		toolResult("2", runPrompt, model.TextOutput(`{"responses":[]}`)),
	}

	result := optimizeAiderMessages(messages)
	if !reflect.DeepEqual(result, messages) {
		t.Errorf("expected pass-through, got %+v", result)
	}
}

func TestOptimizeSubagentMessages(t *testing.T) {
	runTask := model.ToolName(model.SubagentsToolGroup, model.SubagentsToolRunTask)

	tests := []struct {
		name     string
		output   model.ToolOutput
		expected model.ToolOutput
	}{
		{
			name:     "string content",
			output:   model.JSONOutput(json.RawMessage(`{"messages":[{"content":"A"},{"content":"B"}]}`)),
			expected: model.TextOutput("B"),
		},
		{
			name: "part content",
			output: model.JSONOutput(json.RawMessage(
				`{"messages":[{"role":"assistant","content":[{"type":"text","text":"one"},{"type":"tool-call"},{"type":"text","text":"two"}]}]}`)),
			expected: model.TextOutput("one\n\ntwo"),
		},
		{
			name:     "empty messages pass through",
			output:   model.JSONOutput(json.RawMessage(`{"messages":[]}`)),
			expected: model.JSONOutput(json.RawMessage(`{"messages":[]}`)),
		},
		{
			name:     "missing messages pass through",
			output:   model.JSONOutput(json.RawMessage(`{"result":"x"}`)),
			expected: model.JSONOutput(json.RawMessage(`{"result":"x"}`)),
		},
		{
			name:     "text output pass through",
			output:   model.TextOutput(`{"messages":[{"content":"A"}]}`),
			expected: model.TextOutput(`{"messages":[{"content":"A"}]}`),
		},
		{
			name:     "non-object last message pass through",
			output:   model.JSONOutput(json.RawMessage(`{"messages":["A"]}`)),
			expected: model.JSONOutput(json.RawMessage(`{"messages":["A"]}`)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := []model.Message{toolResult("1", runTask, tt.output)}
			result := optimizeSubagentMessages(messages)

			got := *result[0].Parts[0].Output
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %+v (%s), want %+v (%s)", got, got.String(), tt.expected, tt.expected.String())
			}
		})
	}
}

func TestConvertImageToolResults(t *testing.T) {
	messages := []model.Message{
		model.UserMessage("take a screenshot"),
		toolCall("1", "browser---screenshot", `{}`),
		toolResult("1", "browser---screenshot", model.JSONOutput(imageResultJSON())),
		model.AssistantMessage(model.TextPart("done")),
	}

	result, origins := convertImageToolResults(messages)

	if len(result) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(result))
	}
	wantRoles := []model.Role{model.RoleUser, model.RoleAssistant, model.RoleTool, model.RoleUser, model.RoleAssistant}
	if !reflect.DeepEqual(roles(result), wantRoles) {
		t.Errorf("roles: got %v, want %v", roles(result), wantRoles)
	}
	if !reflect.DeepEqual(origins, []int{0, 1, 2, -1, 3}) {
		t.Errorf("origins: got %v", origins)
	}

	out := result[2].Parts[0].Output
	if out.Type != model.OutputText || out.Text != "Image rendered." {
		t.Errorf("placeholder: got %+v", out)
	}

	img := result[3].Parts
	if len(img) != 1 || img[0].Type != model.PartImage || img[0].Image != "aGVsbG8=" || img[0].MediaType != "image/png" {
		t.Errorf("synthetic image message: got %+v", img)
	}

	if messages[2].Parts[0].Output.Type != model.OutputJSON {
		t.Error("input tool message was modified")
	}
}

func TestConvertImageToolResultsMultiPart(t *testing.T) {
	textImage := model.TextOutput(`{"content":[{"type":"image","image":"Zmlyc3Q=","mimeType":"image/jpeg"}]}`)
	messages := []model.Message{
		model.ToolMessage(
			model.ToolResultPart("a", "x---one", textImage),
			model.ToolResultPart("b", "x---two", model.TextOutput("plain")),
			model.ToolResultPart("c", "x---three", model.JSONOutput(imageResultJSON())),
		),
		model.UserMessage("next"),
	}

	result, _ := convertImageToolResults(messages)

	if len(result) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result))
	}
	if result[1].Parts[0].Image != "Zmlyc3Q=" || result[2].Parts[0].Image != "aGVsbG8=" {
		t.Errorf("synthetic messages out of part order: %+v, %+v", result[1].Parts, result[2].Parts)
	}
	if result[3].Text != "next" {
		t.Errorf("original message displaced: %+v", result[3])
	}
	if result[0].Parts[1].Output.Text != "plain" {
		t.Errorf("non-image part changed: %+v", result[0].Parts[1].Output)
	}
}

func TestConvertImageToolResultsRejectsOtherShapes(t *testing.T) {
	outputs := []model.ToolOutput{
		model.TextOutput("not json"),
		model.JSONOutput(json.RawMessage(`{"content":[{"type":"image","data":"a","mimeType":"text/plain"}]}`)),
		model.JSONOutput(json.RawMessage(`{"content":[{"type":"image","mimeType":"image/png"}]}`)),
		model.JSONOutput(json.RawMessage(`{"content":[{"type":"image","data":"a","mimeType":"image/png"},{"type":"text","text":"b"}]}`)),
		model.JSONOutput(json.RawMessage(`{"content":[{"type":"text","text":"b"}]}`)),
		model.JSONOutput(json.RawMessage(`null`)),
		model.ErrorOutput(string(imageResultJSON())),
		{Type: model.OutputErrorJSON, Value: imageResultJSON()},
		{Type: model.OutputContent, Value: imageResultJSON()},
	}

	for i, out := range outputs {
		messages := []model.Message{toolResult("1", "x---y", out)}
		result, _ := convertImageToolResults(messages)
		if len(result) != 1 || !reflect.DeepEqual(result[0], messages[0]) {
			t.Errorf("output %d: expected pass-through, got %+v", i, result)
		}
	}
}

func TestOptimizeMessagesKeepsImageShapedErrors(t *testing.T) {
	messages := []model.Message{
		model.UserMessage("take a screenshot"),
		toolCall("1", "browser---screenshot", `{}`),
		toolResult("1", "browser---screenshot", model.ErrorOutput(string(imageResultJSON()))),
	}

	result := OptimizeMessages(quietProfile, 0, messages, nil, nil)

	if len(result) != 3 {
		t.Fatalf("expected no synthetic image message, got %d messages", len(result))
	}
	out := result[2].Parts[0].Output
	if out.Type != model.OutputErrorText || !out.IsError() || out.Text != string(imageResultJSON()) {
		t.Errorf("error result changed: %+v", out)
	}
}

func TestRemoveDoubleToolCallsScanDiscipline(t *testing.T) {
	messages := []model.Message{
		toolCall("1", "power---grep", `{"pattern":"foo","path":"."}`),
		toolResult("1", "power---grep", model.TextOutput("match")),
		toolCall("2", "power---grep", `{"path":".","pattern":"foo"}`),
		toolResult("2", "power---grep", model.TextOutput("match")),
		toolCall("3", "power---grep", `{"pattern":"foo","path":"."}`),
		toolResult("3", "power---grep", model.TextOutput("match")),
	}

	result := removeDoubleToolCalls(messages)

	if got := result[3].Parts[0].Output; got.Type != model.OutputErrorText || got.Text != duplicateToolCallError {
		t.Errorf("second result not rewritten: %+v", got)
	}
	for _, i := range []int{1, 5} {
		if got := result[i].Parts[0].Output; got.Text != "match" {
			t.Errorf("result %d should be untouched, got %+v", i, got)
		}
	}
	if messages[3].Parts[0].Output.Text != "match" {
		t.Error("input message was modified")
	}
}

func TestRemoveDoubleToolCallsOnlyMatchingPart(t *testing.T) {
	messages := []model.Message{
		toolCall("1", "fs---read", `{"file":"a"}`),
		toolResult("1", "fs---read", model.TextOutput("A")),
		model.AssistantMessage(
			model.ToolCallPart("2", "fs---read", json.RawMessage(`{"file":"a"}`)),
			model.ToolCallPart("3", "fs---read", json.RawMessage(`{"file":"b"}`)),
		),
		model.ToolMessage(
			model.ToolResultPart("2", "fs---read", model.TextOutput("A")),
			model.ToolResultPart("3", "fs---read", model.TextOutput("B")),
		),
	}

	result := removeDoubleToolCalls(messages)

	if result[3].Parts[0].Output.Text != duplicateToolCallError {
		t.Errorf("duplicate result not rewritten: %+v", result[3].Parts[0].Output)
	}
	if result[3].Parts[1].Output.Text != "B" {
		t.Errorf("other part changed: %+v", result[3].Parts[1].Output)
	}
}

func TestRemoveDoubleToolCallsDifferentInput(t *testing.T) {
	messages := []model.Message{
		toolCall("1", "fs---read", `{"file":"a"}`),
		toolResult("1", "fs---read", model.TextOutput("A")),
		toolCall("2", "fs---read", `{"file":"b"}`),
		toolResult("2", "fs---read", model.TextOutput("B")),
	}

	result := removeDoubleToolCalls(messages)
	if !reflect.DeepEqual(result, messages) {
		t.Errorf("expected no change, got %+v", result)
	}
}

func TestOptimizeMessagesCacheMarker(t *testing.T) {
	cache := model.EphemeralCacheControl()

	t.Run("plain history", func(t *testing.T) {
		messages := []model.Message{
			model.UserMessage("a"),
			model.AssistantMessage(model.TextPart("b")),
			model.UserMessage("c"),
		}
		result := OptimizeMessages(quietProfile, 0, messages, cache, nil)
		assertOnlyMarked(t, result, 2)
		if messages[2].ProviderOptions != nil {
			t.Error("input message was modified")
		}
	})

	t.Run("image inserted before the last message", func(t *testing.T) {
		messages := []model.Message{
			model.UserMessage("shot"),
			toolCall("1", "browser---screenshot", `{}`),
			toolResult("1", "browser---screenshot", model.JSONOutput(imageResultJSON())),
			model.AssistantMessage(model.TextPart("done")),
		}
		result := OptimizeMessages(quietProfile, 0, messages, cache, nil)
		if len(result) != 5 {
			t.Fatalf("expected 5 messages, got %d", len(result))
		}
		assertOnlyMarked(t, result, 4)
	})

	t.Run("image inserted after the last message", func(t *testing.T) {
		messages := []model.Message{
			model.UserMessage("shot"),
			toolCall("1", "browser---screenshot", `{}`),
			toolResult("1", "browser---screenshot", model.JSONOutput(imageResultJSON())),
		}
		result := OptimizeMessages(quietProfile, 0, messages, cache, nil)
		assertOnlyMarked(t, result, 2)
	})

	t.Run("existing options are kept", func(t *testing.T) {
		messages := []model.Message{{
			Role:            model.RoleUser,
			Text:            "a",
			ProviderOptions: model.ProviderOptions{"anthropic": {"thinking": true}},
		}}
		result := OptimizeMessages(quietProfile, 0, messages, cache, nil)
		opts := result[0].ProviderOptions["anthropic"]
		if opts["thinking"] != true || opts["cacheControl"] == nil {
			t.Errorf("options not merged: %+v", opts)
		}
		if _, ok := messages[0].ProviderOptions["anthropic"]["cacheControl"]; ok {
			t.Error("input options were modified")
		}
	})

	t.Run("no cache control", func(t *testing.T) {
		messages := []model.Message{model.UserMessage("a")}
		result := OptimizeMessages(quietProfile, 0, messages, nil, nil)
		if result[0].ProviderOptions != nil {
			t.Errorf("unexpected options: %+v", result[0].ProviderOptions)
		}
	})
}

func assertOnlyMarked(t *testing.T, messages []model.Message, index int) {
	t.Helper()
	for i, m := range messages {
		_, marked := m.ProviderOptions["anthropic"]["cacheControl"]
		if marked != (i == index) {
			t.Errorf("message %d: cache marker present=%v, want %v", i, marked, i == index)
		}
	}
}

func TestOptimizeMessagesPreservesOrder(t *testing.T) {
	runTask := model.ToolName(model.SubagentsToolGroup, model.SubagentsToolRunTask)
	messages := []model.Message{
		model.UserMessage("u1"),
		toolCall("1", "browser---screenshot", `{}`),
		toolResult("1", "browser---screenshot", model.JSONOutput(imageResultJSON())),
		toolCall("2", runTask, `{"prompt":"check"}`),
		toolResult("2", runTask, model.JSONOutput(json.RawMessage(`{"messages":[{"content":"ok"}]}`))),
		model.AssistantMessage(model.TextPart("end")),
	}

	result := OptimizeMessages(quietProfile, 0, messages, nil, nil)

	// Every original message appears once, in the original order.
	next := 0
	for _, m := range result {
		if next < len(messages) && m.Role == messages[next].Role && sameCallIDs(m, messages[next]) {
			next++
		}
	}
	if next != len(messages) {
		t.Fatalf("original order not preserved; matched %d of %d", next, len(messages))
	}
	if got := result[5].Parts[0].Output; got.Type != model.OutputText || got.Text != "ok" {
		t.Errorf("subagent result not collapsed: %+v", got)
	}
}

func sameCallIDs(a, b model.Message) bool {
	if len(a.Parts) != len(b.Parts) {
		return false
	}
	for i := range a.Parts {
		if a.Parts[i].ToolCallID != b.Parts[i].ToolCallID || a.Parts[i].Type != b.Parts[i].Type {
			return false
		}
	}
	return a.Text == b.Text
}
