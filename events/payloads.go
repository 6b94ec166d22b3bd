package events

import "time"

// Event type names, as seen by the local front-end and remote subscribers.
const (
	TypeProjectStarted    = "project-started"
	TypeResponseChunk     = "response-chunk"
	TypeResponseCompleted = "response-completed"
	TypeAskQuestion       = "ask-question"
	TypeQuestionAnswered  = "question-answered"
	TypeLog               = "log"
	TypeTool              = "tool"
	TypeUserMessage       = "user-message"
	TypeUpdateTokensInfo  = "update-tokens-info"
	TypeTaskCreated       = "task-created"
	TypeTaskInitialized   = "task-initialized"
	TypeTaskUpdated       = "task-updated"
	TypeTaskStarted       = "task-started"
	TypeTaskCompleted     = "task-completed"
	TypeTaskCancelled     = "task-cancelled"
	TypeTaskDeleted       = "task-deleted"
)

// Scope ties a payload to a project directory and, optionally, a task.
// Every payload embeds it so the gateway can filter by directory.
type Scope struct {
	BaseDir string `json:"baseDir"`
	TaskID  string `json:"taskId,omitempty"`
}

// GetBaseDir returns the project directory of the payload.
func (s Scope) GetBaseDir() string {
	return s.BaseDir
}

type ProjectStartedData struct {
	Scope
}

// UsageReport carries token accounting for one model call.
type UsageReport struct {
	SentTokens       int64 `json:"sentTokens"`
	ReceivedTokens   int64 `json:"receivedTokens"`
	CacheWriteTokens int64 `json:"cacheWriteTokens,omitempty"`
	CacheReadTokens  int64 `json:"cacheReadTokens,omitempty"`
}

type ResponseChunkData struct {
	Scope
	MessageID string `json:"messageId"`
	Chunk     string `json:"chunk"`
}

type ResponseCompletedData struct {
	Scope
	MessageID   string       `json:"messageId"`
	Content     string       `json:"content"`
	UsageReport *UsageReport `json:"usageReport,omitempty"`
}

// Answer is one selectable answer of a question.
type Answer struct {
	Text     string `json:"text"`
	Shortkey string `json:"shortkey"`
}

type QuestionData struct {
	Scope
	Text          string   `json:"text"`
	Subject       string   `json:"subject,omitempty"`
	Answers       []Answer `json:"answers,omitempty"`
	DefaultAnswer string   `json:"defaultAnswer"`
	Key           string   `json:"key,omitempty"`
}

type QuestionAnsweredData struct {
	Scope
	Question  QuestionData `json:"question"`
	Answer    string       `json:"answer"`
	UserInput string       `json:"userInput,omitempty"`
}

// LogLevel is the severity of a log event.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
	LogLoading LogLevel = "loading"
)

type LogData struct {
	Scope
	Level    LogLevel `json:"level"`
	Message  string   `json:"message,omitempty"`
	Finished bool     `json:"finished,omitempty"`
}

type ToolData struct {
	Scope
	ID         string         `json:"id"`
	ServerName string         `json:"serverName"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args,omitempty"`
	Response   string         `json:"response,omitempty"`
}

type UserMessageData struct {
	Scope
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
}

// TokensCost is the token count of one context component.
type TokensCost struct {
	Tokens int64 `json:"tokens"`
}

type TokensInfoData struct {
	Scope
	ChatHistory TokensCost  `json:"chatHistory"`
	Agent       *TokensCost `json:"agent,omitempty"`
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusCreated   TaskStatus = "created"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskData describes a task in lifecycle events. Its TaskID is the task's own id.
type TaskData struct {
	Scope
	Name      string     `json:"name"`
	ProfileID string     `json:"profileId"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
