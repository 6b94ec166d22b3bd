package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"aiderdesk/model"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// formatForPath guesses a conversation format from a file extension.
func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

// decodeConversation reads a message list. YAML documents are converted to
// JSON first so both formats share the message wire shape.
func decodeConversation(data []byte, format string) ([]model.Message, error) {
	switch format {
	case formatJSON:
	case formatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML: %w", err)
		}
		data = converted
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse conversation: %w", err)
	}
	return messages, nil
}

// encodeConversation writes messages in the given format.
func encodeConversation(w io.Writer, messages []model.Message, format string) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(messages, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode conversation: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case formatYAML:
		data, err := json.Marshal(messages)
		if err != nil {
			return fmt.Errorf("failed to encode conversation: %w", err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode conversation: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// lastUserIndex returns the index of the last user message, or -1.
func lastUserIndex(messages []model.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return i
		}
	}
	return -1
}
