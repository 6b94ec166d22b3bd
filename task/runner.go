// Package task runs agent tasks: a user prompt, then alternating model turns
// and tool executions until the model stops calling tools.
package task

import (
	"context"
	"errors"
	"fmt"

	"aiderdesk/config"
	"aiderdesk/events"
	"aiderdesk/model"
	"aiderdesk/storage"
	"aiderdesk/tools"
)

// Store persists tasks and their history. *storage.TaskStore implements it.
type Store interface {
	CreateTask(task *storage.Task) error
	UpdateTask(task *storage.Task) error
	AppendMessages(taskID string, messages ...model.Message) error
}

// Approval answers.
const (
	AnswerYes    = "y"
	AnswerNo     = "n"
	AnswerAlways = "a"
)

var approvalAnswers = []events.Answer{
	{Text: "(Y)es", Shortkey: AnswerYes},
	{Text: "(N)o", Shortkey: AnswerNo},
	{Text: "(A)lways", Shortkey: AnswerAlways},
}

// ErrToolDenied is the result text of a tool call the user refused.
var ErrToolDenied = errors.New("tool execution denied by user")

// Approver answers tool approval questions. Ask blocks until the user picks
// one of the question's answers or ctx ends.
type Approver interface {
	Ask(ctx context.Context, question events.QuestionData) (string, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, question events.QuestionData) (string, error)

func (f ApproverFunc) Ask(ctx context.Context, question events.QuestionData) (string, error) {
	return f(ctx, question)
}

// ProviderFactory returns the model provider for a profile.
type ProviderFactory func(profile model.AgentProfile) (model.Provider, error)

// Options configures a Runner. Only Providers is required.
type Options struct {
	Providers    ProviderFactory
	Events       *events.Manager
	Store        Store
	MCP          tools.MCPCaller
	Settings     *model.Settings
	CacheControl model.CacheControl
	Approver     Approver
}

// Runner executes tasks.
type Runner struct {
	providers    ProviderFactory
	events       *events.Manager
	store        Store
	mcp          tools.MCPCaller
	settings     *model.Settings
	cacheControl model.CacheControl
	approver     Approver
}

func NewRunner(opts Options) *Runner {
	return &Runner{
		providers:    opts.Providers,
		events:       opts.Events,
		store:        opts.Store,
		mcp:          opts.MCP,
		settings:     opts.Settings,
		cacheControl: opts.CacheControl,
		approver:     opts.Approver,
	}
}

// Result is the outcome of a finished task.
type Result struct {
	TaskID     string
	Status     events.TaskStatus
	Messages   []model.Message
	Iterations int
	Usage      model.Usage
}

// Run executes prompt as a new task in baseDir. The returned error is non-nil
// for failed and cancelled tasks; the Result is returned either way.
func (r *Runner) Run(ctx context.Context, baseDir string, profile model.AgentProfile, prompt string) (*Result, error) {
	if r.providers == nil {
		return nil, errors.New("task runner has no provider factory")
	}

	t, err := r.newTask(baseDir, profile, prompt)
	if err != nil {
		return nil, err
	}
	return t.run(ctx, prompt)
}

// Start creates a task and runs it in the background. The channel receives
// the task's outcome once it finishes.
func (r *Runner) Start(ctx context.Context, baseDir string, profile model.AgentProfile, prompt string) (string, <-chan error, error) {
	if r.providers == nil {
		return "", nil, errors.New("task runner has no provider factory")
	}

	t, err := r.newTask(baseDir, profile, prompt)
	if err != nil {
		return "", nil, err
	}

	done := make(chan error, 1)
	go func() {
		_, err := t.run(ctx, prompt)
		done <- err
	}()
	return t.record.ID, done, nil
}

// subagentRunner runs nested tasks in the parent's project.
type subagentRunner struct {
	runner  *Runner
	baseDir string
}

func (s subagentRunner) RunSubagent(ctx context.Context, profile model.AgentProfile, prompt string) ([]model.Message, error) {
	config.Logger().Debug("running subagent", "profile", profile.ID, "baseDir", s.baseDir)

	res, err := s.runner.Run(ctx, s.baseDir, profile, prompt)
	if res == nil {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("subagent task %s: %w", res.TaskID, err)
	}
	return res.Messages, nil
}
