package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"aiderdesk/config"
	"aiderdesk/events"
	"aiderdesk/model"
	"aiderdesk/storage"
	"aiderdesk/task"
)

const maxTaskRequestBytes = 1 << 20

// TaskStore is the part of storage.TaskStore the task routes need.
type TaskStore interface {
	GetTask(id string) (*storage.Task, error)
	DeleteTask(id string) error
}

// TaskOptions enables the task routes. Events should emit through the same
// gateway the server subscribes clients to.
type TaskOptions struct {
	Runner  *task.Runner
	Events  *events.Manager
	Store   TaskStore
	Profile func(id string) (model.AgentProfile, error)
}

type taskRoutes struct {
	opts TaskOptions

	mu      sync.Mutex
	baseCtx context.Context
	running map[string]context.CancelFunc
}

// NewTaskRequest is the body of POST /api/tasks.
type NewTaskRequest struct {
	BaseDir   string `json:"baseDir"`
	Prompt    string `json:"prompt"`
	ProfileID string `json:"profileId,omitempty"`
}

// NewTaskResponse is returned once a task is accepted.
type NewTaskResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (tr *taskRoutes) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tasks", tr.handleNew)
	mux.HandleFunc("POST /api/tasks/{id}/cancel", tr.handleCancel)
	mux.HandleFunc("DELETE /api/tasks/{id}", tr.handleDelete)
}

// context returns the context tasks run under. Tasks outlive the request
// that started them and stop when the server shuts down.
func (tr *taskRoutes) context() context.Context {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.baseCtx == nil {
		return context.Background()
	}
	return tr.baseCtx
}

func (tr *taskRoutes) setContext(ctx context.Context) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.baseCtx = ctx
}

func (tr *taskRoutes) handleNew(w http.ResponseWriter, r *http.Request) {
	var req NewTaskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTaskRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" || req.BaseDir == "" {
		writeError(w, http.StatusBadRequest, "baseDir and prompt are required")
		return
	}

	profile, err := tr.opts.Profile(req.ProfileID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(tr.context())
	id, done, err := tr.opts.Runner.Start(ctx, req.BaseDir, profile, req.Prompt)
	if err != nil {
		cancel()
		config.Logger().Error("Failed to start task", "baseDir", req.BaseDir, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tr.mu.Lock()
	if tr.running == nil {
		tr.running = make(map[string]context.CancelFunc)
	}
	tr.running[id] = cancel
	tr.mu.Unlock()

	go func() {
		err := <-done
		tr.mu.Lock()
		delete(tr.running, id)
		tr.mu.Unlock()
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			config.Logger().Warn("Task finished with error", "task", id, "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, NewTaskResponse{ID: id})
}

func (tr *taskRoutes) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tr.mu.Lock()
	cancel, ok := tr.running[id]
	tr.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "task is not running: "+id)
		return
	}
	cancel()
	w.WriteHeader(http.StatusAccepted)
}

func (tr *taskRoutes) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tr.mu.Lock()
	_, running := tr.running[id]
	tr.mu.Unlock()
	if running {
		writeError(w, http.StatusConflict, "task is still running: "+id)
		return
	}

	t, err := tr.opts.Store.GetTask(id)
	if err == nil {
		err = tr.opts.Store.DeleteTask(id)
	}
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tr.opts.Events.SendTaskDeleted(t.EventData())
	w.WriteHeader(http.StatusNoContent)
}
