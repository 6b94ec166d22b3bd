package model

import (
	"encoding/json"
	"testing"
)

func TestToolOutputUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantType  OutputType
		wantText  string
		wantValue string
		wantRaw   bool
		wantError bool
	}{
		{name: "text", data: `{"type":"text","value":"ok"}`, wantType: OutputText, wantText: "ok"},
		{name: "text without value", data: `{"type":"text"}`, wantType: OutputText},
		{name: "error text", data: `{"type":"error-text","value":"boom"}`, wantType: OutputErrorText, wantText: "boom", wantError: true},
		{name: "json", data: `{"type":"json","value":{"a":1}}`, wantType: OutputJSON, wantValue: `{"a":1}`},
		{name: "error json", data: `{"type":"error-json","value":{"code":404}}`, wantType: OutputErrorJSON, wantValue: `{"code":404}`, wantError: true},
		{name: "content", data: `{"type":"content","value":[{"type":"text","text":"hi"}]}`, wantType: OutputContent, wantValue: `[{"type":"text","text":"hi"}]`},
		{name: "unknown", data: `{"type":"execution-denied","reason":"no"}`, wantType: "execution-denied", wantRaw: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out ToolOutput
			if err := json.Unmarshal([]byte(tt.data), &out); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if out.Type != tt.wantType || out.Text != tt.wantText || string(out.Value) != tt.wantValue {
				t.Errorf("got %+v", out)
			}
			if (out.Raw != nil) != tt.wantRaw {
				t.Errorf("raw = %s, want raw %v", out.Raw, tt.wantRaw)
			}
			if out.IsError() != tt.wantError {
				t.Errorf("IsError() = %v, want %v", out.IsError(), tt.wantError)
			}
		})
	}
}

func TestToolOutputUnmarshalInvalid(t *testing.T) {
	var out ToolOutput
	if err := json.Unmarshal([]byte(`{"type":"text","value":42}`), &out); err == nil {
		t.Error("expected error for a non-string text value")
	}
}

func TestToolOutputEncodesKnownForms(t *testing.T) {
	tests := []struct {
		out  ToolOutput
		want string
	}{
		{TextOutput("hi"), `{"type":"text","value":"hi"}`},
		{ErrorOutput("bad"), `{"type":"error-text","value":"bad"}`},
		{ToolOutput{Type: OutputErrorJSON, Value: json.RawMessage(`{"code":1}`)}, `{"type":"error-json","value":{"code":1}}`},
		{ToolOutput{Type: OutputJSON}, `{"type":"json","value":null}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.out)
		if err != nil {
			t.Fatalf("Marshal(%+v) error = %v", tt.out, err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%+v) = %s, want %s", tt.out, data, tt.want)
		}
	}
}

func TestToolOutputKeepsUnknownVerbatim(t *testing.T) {
	in := `{"type":"execution-denied","reason":"no"}`
	var out ToolOutput
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != in {
		t.Errorf("re-encoded = %s, want %s", data, in)
	}
	if out.String() != in {
		t.Errorf("String() = %q", out.String())
	}

	clone := out.Clone()
	clone.Raw[0] = 'X'
	if out.Raw[0] != '{' {
		t.Error("Clone shares the raw buffer")
	}
}
