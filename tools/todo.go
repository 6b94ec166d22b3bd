package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aiderdesk/model"
)

// TodoItem is one entry of a task's todo list.
type TodoItem struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// TodoList is the per-task list behind the todo tool group.
type TodoList struct {
	mu                sync.Mutex
	initialUserPrompt string
	items             []TodoItem
}

func NewTodoList() *TodoList {
	return &TodoList{}
}

// Items returns a copy of the current items.
func (l *TodoList) Items() []TodoItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Set replaces the list.
func (l *TodoList) Set(initialUserPrompt string, items []TodoItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.initialUserPrompt = initialUserPrompt
	l.items = slices.Clone(items)
}

// Complete updates the completion flag of the named item.
func (l *TodoList) Complete(name string, completed bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].Name == name {
			l.items[i].Completed = completed
			return true
		}
	}
	return false
}

// Clear removes all items.
func (l *TodoList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.initialUserPrompt = ""
	l.items = nil
}

func (l *TodoList) snapshot() (string, []TodoItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialUserPrompt, slices.Clone(l.items)
}

// RegisterTodoTools adds the todo group backed by list.
func RegisterTodoTools(r *Registry, list *TodoList) {
	r.Register(funcTool{
		def: mcptypes.NewTool(model.ToolName(model.TodoToolGroup, model.TodoToolGetItems),
			mcptypes.WithDescription("Get the current todo items and the user prompt they were created for."),
		),
		fn: func(ctx context.Context, input json.RawMessage) (model.ToolOutput, error) {
			prompt, items := list.snapshot()
			if len(items) == 0 {
				return model.TextOutput("No todo items found."), nil
			}
			return model.JSONOutputOf(map[string]any{
				"initialUserPrompt": prompt,
				"items":             items,
			})
		},
	})

	r.Register(funcTool{
		def: mcptypes.NewTool(model.ToolName(model.TodoToolGroup, model.TodoToolSetItems),
			mcptypes.WithDescription("Replace the todo list with the given items."),
			mcptypes.WithArray("items", mcptypes.Required(),
				mcptypes.Description("Todo items"),
				mcptypes.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"completed": map[string]any{"type": "boolean"},
					},
					"required": []string{"name"},
				}),
			),
			mcptypes.WithString("initialUserPrompt", mcptypes.Required(),
				mcptypes.Description("The user prompt the items were derived from"),
			),
		),
		fn: func(ctx context.Context, input json.RawMessage) (model.ToolOutput, error) {
			var args struct {
				Items             []TodoItem `json:"items"`
				InitialUserPrompt string     `json:"initialUserPrompt"`
			}
			if err := decodeInput(input, &args); err != nil {
				return model.ToolOutput{}, err
			}
			list.Set(args.InitialUserPrompt, args.Items)
			return model.TextOutput(fmt.Sprintf("Todo list set with %d items.", len(args.Items))), nil
		},
	})

	r.Register(funcTool{
		def: mcptypes.NewTool(model.ToolName(model.TodoToolGroup, model.TodoToolUpdateItemCompletion),
			mcptypes.WithDescription("Mark a todo item as completed or not completed."),
			mcptypes.WithString("name", mcptypes.Required(), mcptypes.Description("Name of the item")),
			mcptypes.WithBoolean("completed", mcptypes.Required()),
		),
		fn: func(ctx context.Context, input json.RawMessage) (model.ToolOutput, error) {
			var args struct {
				Name      string `json:"name"`
				Completed bool   `json:"completed"`
			}
			if err := decodeInput(input, &args); err != nil {
				return model.ToolOutput{}, err
			}
			if !list.Complete(args.Name, args.Completed) {
				return model.ToolOutput{}, fmt.Errorf("todo item %q not found", args.Name)
			}
			return model.TextOutput(fmt.Sprintf("Todo item %q updated.", args.Name)), nil
		},
	})

	r.Register(funcTool{
		def: mcptypes.NewTool(model.ToolName(model.TodoToolGroup, model.TodoToolClearItems),
			mcptypes.WithDescription("Remove all todo items."),
		),
		fn: func(ctx context.Context, input json.RawMessage) (model.ToolOutput, error) {
			list.Clear()
			return model.TextOutput("All todo items cleared."), nil
		},
	})
}
