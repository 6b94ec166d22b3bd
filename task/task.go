package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"aiderdesk/agent"
	"aiderdesk/config"
	"aiderdesk/events"
	"aiderdesk/model"
	"aiderdesk/storage"
	"aiderdesk/tools"
)

// ErrMaxIterations is returned when a task stops because it used up its
// iteration budget while the model was still calling tools.
var ErrMaxIterations = errors.New("maximum iterations reached")

type task struct {
	runner   *Runner
	record   storage.Task
	profile  model.AgentProfile
	provider model.Provider
	registry *tools.Registry

	messages         []model.Message
	userRequestIndex int
	usage            model.Usage
	approved         map[string]bool
}

func (r *Runner) newTask(baseDir string, profile model.AgentProfile, prompt string) (*task, error) {
	provider, err := r.providers(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider for profile %s: %w", profile.ID, err)
	}

	t := &task{
		runner:   r,
		profile:  profile,
		provider: provider,
		record: storage.Task{
			ID:        uuid.New().String(),
			BaseDir:   baseDir,
			Name:      taskName(prompt),
			ProfileID: profile.ID,
			Status:    events.TaskStatusCreated,
			CreatedAt: time.Now(),
		},
	}
	t.record.UpdatedAt = t.record.CreatedAt
	t.registry = tools.ForProfile(profile, r.settings, tools.NewTodoList(), subagentRunner{runner: r, baseDir: baseDir}, r.mcp)

	if r.store != nil {
		if err := r.store.CreateTask(&t.record); err != nil {
			return nil, fmt.Errorf("failed to persist task: %w", err)
		}
	}
	r.events.SendTaskCreated(t.data())
	r.events.SendTaskInitialized(t.data())
	return t, nil
}

func (t *task) scope() events.Scope {
	return events.Scope{BaseDir: t.record.BaseDir, TaskID: t.record.ID}
}

func (t *task) data() events.TaskData {
	return t.record.EventData()
}

func (t *task) run(ctx context.Context, prompt string) (*Result, error) {
	ev := t.runner.events

	t.setStatus(events.TaskStatusRunning, "")
	ev.SendTaskStarted(t.data())

	t.userRequestIndex = len(t.messages)
	t.append(model.UserMessage(prompt))
	ev.SendUserMessage(events.UserMessageData{Scope: t.scope(), Content: prompt})

	maxIterations := t.profile.MaxIterations
	if maxIterations <= 0 {
		maxIterations = config.DefaultMaxIterations
	}

	iterations := 0
	var runErr error
	for {
		if iterations >= maxIterations {
			runErr = ErrMaxIterations
			break
		}
		iterations++

		calls, err := t.step(ctx)
		if err != nil {
			runErr = err
			break
		}
		if len(calls) == 0 {
			break
		}
		if err := t.executeTools(ctx, calls); err != nil {
			runErr = err
			break
		}
	}

	return t.finish(ctx, iterations, runErr)
}

func (t *task) finish(ctx context.Context, iterations int, runErr error) (*Result, error) {
	ev := t.runner.events
	log := config.Logger()

	switch {
	case runErr == nil:
		t.setStatus(events.TaskStatusCompleted, "")
		ev.SendTaskCompleted(t.data())
	case errors.Is(runErr, ErrMaxIterations):
		log.Warn("task stopped at iteration limit", "task", t.record.ID, "iterations", iterations)
		ev.SendLog(events.LogData{Scope: t.scope(), Level: events.LogWarning, Message: fmt.Sprintf("Maximum iterations (%d) reached. Stopping agent.", iterations)})
		t.setStatus(events.TaskStatusCompleted, runErr.Error())
		ev.SendTaskCompleted(t.data())
		runErr = nil
	case ctx.Err() != nil:
		t.setStatus(events.TaskStatusCancelled, "")
		ev.SendTaskCancelled(t.data())
		runErr = ctx.Err()
	default:
		log.Error("task failed", "task", t.record.ID, "err", runErr)
		ev.SendLog(events.LogData{Scope: t.scope(), Level: events.LogError, Message: runErr.Error(), Finished: true})
		t.setStatus(events.TaskStatusFailed, runErr.Error())
		ev.SendTaskUpdated(t.data())
	}

	return &Result{
		TaskID:     t.record.ID,
		Status:     t.record.Status,
		Messages:   model.CloneMessages(t.messages),
		Iterations: iterations,
		Usage:      t.usage,
	}, runErr
}

// step runs one model turn and returns the tool calls it requested.
func (t *task) step(ctx context.Context) ([]model.ToolCall, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	optimized := agent.OptimizeMessages(t.profile, t.userRequestIndex, t.messages, t.runner.cacheControl, t.runner.settings)
	defs := t.registry.Definitions(t.profile)

	messageID := uuid.New().String()
	var text strings.Builder
	var calls []model.ToolCall

	req := model.ChatRequest{System: t.systemPrompt(), Messages: optimized, Tools: defs}
	usage, err := t.provider.ChatWithTools(ctx, req, func(chunk string, toolCalls []model.ToolCall) error {
		if chunk != "" {
			text.WriteString(chunk)
			t.runner.events.SendResponseChunk(events.ResponseChunkData{Scope: t.scope(), MessageID: messageID, Chunk: chunk})
		}
		calls = append(calls, toolCalls...)
		return nil
	})
	t.usage = t.usage.Add(usage)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.New().String()
		}
	}

	t.append(assistantMessage(text.String(), calls))
	t.runner.events.SendResponseCompleted(events.ResponseCompletedData{
		Scope:       t.scope(),
		MessageID:   messageID,
		Content:     text.String(),
		UsageReport: usageReport(usage),
	})
	t.runner.events.SendUpdateTokensInfo(events.TokensInfoData{
		Scope:       t.scope(),
		ChatHistory: events.TokensCost{Tokens: usage.InputTokens},
		Agent:       &events.TokensCost{Tokens: t.usage.InputTokens + t.usage.OutputTokens},
	})
	return calls, nil
}

func usageReport(u model.Usage) *events.UsageReport {
	return &events.UsageReport{
		SentTokens:       u.InputTokens,
		ReceivedTokens:   u.OutputTokens,
		CacheWriteTokens: u.CacheWriteTokens,
		CacheReadTokens:  u.CacheReadTokens,
	}
}

// executeTools runs calls in order and appends one tool message answering
// all of them. When a call fails, it and every later call get error results.
func (t *task) executeTools(ctx context.Context, calls []model.ToolCall) error {
	results := make([]model.Part, 0, len(calls))

	for i, call := range calls {
		out, err := t.executeTool(ctx, call)
		if err != nil {
			for _, pending := range calls[i:] {
				msg := fmt.Sprintf("Tool %s was not completed: %v", pending.Name, err)
				results = append(results, model.ToolResultPart(pending.ID, pending.Name, model.ErrorOutput(msg)))
			}
			t.append(model.ToolMessage(results...))
			return err
		}
		results = append(results, model.ToolResultPart(call.ID, call.Name, out))
	}

	t.append(model.ToolMessage(results...))
	return nil
}

func (t *task) executeTool(ctx context.Context, call model.ToolCall) (model.ToolOutput, error) {
	server, name := model.SplitToolName(call.Name)
	toolEvent := events.ToolData{Scope: t.scope(), ID: call.ID, ServerName: server, ToolName: name, Args: call.Arguments()}
	t.runner.events.SendTool(toolEvent)

	approved, err := t.approve(ctx, call)
	if err != nil {
		return model.ToolOutput{}, err
	}

	var out model.ToolOutput
	if approved {
		out, err = t.registry.Execute(ctx, call)
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			out = model.ErrorOutput(err.Error())
		case err != nil:
			return model.ToolOutput{}, err
		}
	} else {
		out = model.ErrorOutput(ErrToolDenied.Error())
	}

	toolEvent.Response = out.String()
	t.runner.events.SendTool(toolEvent)
	return out, nil
}

// approve asks the runner's Approver about calls whose tool is set to ask.
// Tasks without an Approver, auto-approving profiles and subagents run every
// offered tool.
func (t *task) approve(ctx context.Context, call model.ToolCall) (bool, error) {
	approver := t.runner.approver
	if approver == nil || t.profile.AutoApprove || t.profile.IsSubagent {
		return true, nil
	}
	if t.profile.ApprovalFor(call.Name) != model.ToolApprovalAsk || t.approved[call.Name] {
		return true, nil
	}

	server, name := model.SplitToolName(call.Name)
	question := events.QuestionData{
		Scope:         t.scope(),
		Text:          fmt.Sprintf("Approve running %s from %s?", name, server),
		Subject:       string(call.Input),
		Answers:       approvalAnswers,
		DefaultAnswer: AnswerYes,
		Key:           call.Name,
	}
	t.runner.events.SendAskQuestion(question)

	answer, err := approver.Ask(ctx, question)
	if err != nil {
		return false, fmt.Errorf("approval for %s: %w", call.Name, err)
	}
	t.runner.events.SendQuestionAnswered(question.BaseDir, question.TaskID, question, answer, "")

	switch answer {
	case AnswerAlways:
		if t.approved == nil {
			t.approved = map[string]bool{}
		}
		t.approved[call.Name] = true
		return true, nil
	case AnswerYes:
		return true, nil
	}
	return false, nil
}

func (t *task) append(msg model.Message) {
	t.messages = append(t.messages, msg)
	if t.runner.store == nil {
		return
	}
	if err := t.runner.store.AppendMessages(t.record.ID, msg); err != nil {
		config.Logger().Error("failed to persist message", "task", t.record.ID, "err", err)
	}
}

func (t *task) setStatus(status events.TaskStatus, errText string) {
	t.record.Status = status
	t.record.Error = errText
	t.record.UpdatedAt = time.Now()
	if t.runner.store == nil {
		return
	}
	if err := t.runner.store.UpdateTask(&t.record); err != nil {
		config.Logger().Error("failed to persist task status", "task", t.record.ID, "err", err)
	}
}

func (t *task) systemPrompt() string {
	if t.profile.IsSubagent && t.profile.Subagent.SystemPrompt != "" {
		return t.profile.Subagent.SystemPrompt
	}
	return t.profile.CustomInstructions
}

func assistantMessage(text string, calls []model.ToolCall) model.Message {
	if len(calls) == 0 {
		return model.Message{Role: model.RoleAssistant, Text: text}
	}
	parts := make([]model.Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, model.TextPart(text))
	}
	for _, c := range calls {
		parts = append(parts, model.ToolCallPart(c.ID, c.Name, c.Input))
	}
	return model.AssistantMessage(parts...)
}

// taskName derives a short display name from the prompt.
func taskName(prompt string) string {
	name := strings.Join(strings.Fields(prompt), " ")
	if r := []rune(name); len(r) > 60 {
		name = string(r[:57]) + "..."
	}
	if name == "" {
		name = "New task"
	}
	return name
}
