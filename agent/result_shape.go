package agent

import (
	"strings"

	"github.com/tidwall/gjson"

	"aiderdesk/model"
)

// shapeKind tags what a tool result payload turned out to be once parsed.
type shapeKind int

const (
	shapeUnknown shapeKind = iota
	shapeImage
	shapeTranscript
)

// resultShape is the parsed view of a tool result output. Payloads that match
// no known shape are shapeUnknown and must be passed through unchanged.
type resultShape struct {
	kind shapeKind

	// shapeImage
	imageData string
	mimeType  string

	// shapeTranscript: content of the last message
	lastContent gjson.Result
}

// outputPayload returns the JSON document carried by a successful tool output,
// whether it was stored as structured JSON or as text holding JSON. Error
// outputs carry no payload.
func outputPayload(out model.ToolOutput) (gjson.Result, bool) {
	var raw string
	switch out.Type {
	case model.OutputJSON:
		raw = string(out.Value)
	case model.OutputText:
		raw = out.Text
	default:
		return gjson.Result{}, false
	}
	if !gjson.Valid(raw) {
		return gjson.Result{}, false
	}
	return gjson.Parse(raw), true
}

// imageShape matches {"content": [{"type": "image", "data"|"image": ..., "mimeType": "image/..."}]}
// with exactly one content item.
func imageShape(out model.ToolOutput) resultShape {
	payload, ok := outputPayload(out)
	if !ok || !payload.IsObject() {
		return resultShape{}
	}

	content := payload.Get("content")
	if !content.IsArray() {
		return resultShape{}
	}
	items := content.Array()
	if len(items) != 1 || !items[0].IsObject() {
		return resultShape{}
	}

	item := items[0]
	if item.Get("type").String() != "image" {
		return resultShape{}
	}

	data := item.Get("data").String()
	if data == "" {
		data = item.Get("image").String()
	}
	mimeType := item.Get("mimeType")
	if data == "" || mimeType.Type != gjson.String || !strings.HasPrefix(mimeType.String(), "image/") {
		return resultShape{}
	}

	return resultShape{kind: shapeImage, imageData: data, mimeType: mimeType.String()}
}

// transcriptShape matches a structured {"messages": [...]} payload with at
// least one message object.
func transcriptShape(out model.ToolOutput) resultShape {
	if out.Type != model.OutputJSON {
		return resultShape{}
	}
	payload, ok := outputPayload(out)
	if !ok || !payload.IsObject() {
		return resultShape{}
	}

	messages := payload.Get("messages")
	if !messages.IsArray() {
		return resultShape{}
	}
	items := messages.Array()
	if len(items) == 0 {
		return resultShape{}
	}

	last := items[len(items)-1]
	if !last.IsObject() {
		return resultShape{}
	}

	return resultShape{kind: shapeTranscript, lastContent: last.Get("content")}
}
