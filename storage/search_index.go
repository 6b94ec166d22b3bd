package storage

import (
	"strings"
	"unicode/utf8"

	"aiderdesk/model"
)

// MessageMatch is a task message containing a search query.
type MessageMatch struct {
	TaskID       string
	TaskName     string
	MessageIndex int
	Role         model.Role
	Preview      string
}

const previewLength = 100

// preview cuts text to at most n runes.
func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

// SearchIndex searches message text across stored tasks.
type SearchIndex struct {
	store *TaskStore
}

func NewSearchIndex(store *TaskStore) *SearchIndex {
	return &SearchIndex{store: store}
}

// Search returns case-insensitive matches in the tasks of baseDir (all tasks
// when baseDir is empty).
func (si *SearchIndex) Search(baseDir, query string) ([]MessageMatch, error) {
	if query == "" {
		return []MessageMatch{}, nil
	}

	tasks, err := si.store.ListTasks(baseDir)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	matches := []MessageMatch{}

	for _, task := range tasks {
		messages, err := si.store.Messages(task.ID)
		if err != nil {
			continue
		}

		for i, msg := range messages {
			text := msg.TextContent()
			if !strings.Contains(strings.ToLower(text), queryLower) {
				continue
			}

			matches = append(matches, MessageMatch{
				TaskID:       task.ID,
				TaskName:     task.Name,
				MessageIndex: i,
				Role:         msg.Role,
				Preview:      preview(text, previewLength),
			})
		}
	}
	return matches, nil
}
