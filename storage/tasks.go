package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"aiderdesk/config"
	"aiderdesk/events"
	"aiderdesk/model"
)

// ErrTaskNotFound is returned when a task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// Task is the persisted record of an agent task.
type Task struct {
	ID           string
	BaseDir      string
	Name         string
	ProfileID    string
	Status       events.TaskStatus
	Error        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// EventData returns the task as a lifecycle event payload.
func (t Task) EventData() events.TaskData {
	return events.TaskData{
		Scope:     events.Scope{BaseDir: t.BaseDir, TaskID: t.ID},
		Name:      t.Name,
		ProfileID: t.ProfileID,
		Status:    t.Status,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TaskStore persists tasks and their message history in sqlite.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore opens (or creates) tasks.db under dataDir.
func NewTaskStore(dataDir string) (*TaskStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := config.DatabasePath(dataDir)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &TaskStore{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func (s *TaskStore) initialize() error {
	schema := `
	PRAGMA foreign_keys = ON;
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		base_dir TEXT NOT NULL,
		name TEXT NOT NULL,
		profile_id TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_base_dir ON tasks(base_dir);
	CREATE TABLE IF NOT EXISTS messages (
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (task_id, seq)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateTask inserts a new task, assigning an id and timestamps when unset.
func (s *TaskStore) CreateTask(task *Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if task.Status == "" {
		task.Status = events.TaskStatusCreated
	}

	_, err := s.db.Exec(`
	INSERT INTO tasks (id, base_dir, name, profile_id, status, error, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.BaseDir, task.Name, task.ProfileID, string(task.Status), task.Error,
		task.CreatedAt.UnixNano(), task.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// UpdateTask writes the mutable fields of task and bumps UpdatedAt.
func (s *TaskStore) UpdateTask(task *Task) error {
	task.UpdatedAt = time.Now()

	res, err := s.db.Exec(`
	UPDATE tasks SET name = ?, profile_id = ?, status = ?, error = ?, updated_at = ?
	WHERE id = ?`,
		task.Name, task.ProfileID, string(task.Status), task.Error, task.UpdatedAt.UnixNano(), task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(res, task.ID)
}

const taskColumns = `
	SELECT t.id, t.base_dir, t.name, t.profile_id, t.status, t.error, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.task_id = t.id)
	FROM tasks t`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var status string
	var created, updated int64
	err := row.Scan(&task.ID, &task.BaseDir, &task.Name, &task.ProfileID, &status, &task.Error,
		&created, &updated, &task.MessageCount)
	if err != nil {
		return Task{}, err
	}
	task.Status = events.TaskStatus(status)
	task.CreatedAt = time.Unix(0, created)
	task.UpdatedAt = time.Unix(0, updated)
	return task, nil
}

// GetTask loads a task by id.
func (s *TaskStore) GetTask(id string) (*Task, error) {
	task, err := scanTask(s.db.QueryRow(taskColumns+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return &task, nil
}

// ListTasks returns tasks newest first. An empty baseDir lists every project.
func (s *TaskStore) ListTasks(baseDir string) ([]Task, error) {
	query := taskColumns
	var args []any
	if baseDir != "" {
		query += ` WHERE t.base_dir = ?`
		args = append(args, baseDir)
	}
	query += ` ORDER BY t.updated_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task and its messages.
func (s *TaskStore) DeleteTask(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendMessages adds messages to the end of a task's history.
func (s *TaskStore) AppendMessages(taskID string, messages ...model.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM tasks WHERE id = ?`, taskID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE task_id = ?`, taskID).Scan(&next); err != nil {
		return fmt.Errorf("failed to read message sequence: %w", err)
	}

	for i, msg := range messages {
		content, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO messages (task_id, seq, role, content) VALUES (?, ?, ?, ?)`,
			taskID, next+i, string(msg.Role), string(content)); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if _, err := tx.Exec(`UPDATE tasks SET updated_at = ? WHERE id = ?`, time.Now().UnixNano(), taskID); err != nil {
		return fmt.Errorf("failed to touch task: %w", err)
	}
	return tx.Commit()
}

// Messages returns a task's history in order.
func (s *TaskStore) Messages(taskID string) ([]model.Message, error) {
	if _, err := s.GetTask(taskID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT content FROM messages WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		var msg model.Message
		if err := json.Unmarshal([]byte(content), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *TaskStore) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}
