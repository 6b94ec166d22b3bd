package events

// Emitter is the fan-out primitive the Manager builds on.
type Emitter interface {
	Emit(eventType string, data any)
}

// Manager exposes one method per application event so callers never spell
// event names or payload shapes by hand.
type Manager struct {
	emitter Emitter
}

// NewManager creates a Manager emitting through e.
func NewManager(e Emitter) *Manager {
	return &Manager{emitter: e}
}

func (m *Manager) emit(eventType string, data any) {
	if m == nil || m.emitter == nil {
		return
	}
	m.emitter.Emit(eventType, data)
}

// Project lifecycle

func (m *Manager) SendProjectStarted(baseDir string) {
	m.emit(TypeProjectStarted, ProjectStartedData{Scope: Scope{BaseDir: baseDir}})
}

// Responses

func (m *Manager) SendResponseChunk(data ResponseChunkData) {
	m.emit(TypeResponseChunk, data)
}

func (m *Manager) SendResponseCompleted(data ResponseCompletedData) {
	m.emit(TypeResponseCompleted, data)
}

// Questions

func (m *Manager) SendAskQuestion(data QuestionData) {
	m.emit(TypeAskQuestion, data)
}

func (m *Manager) SendQuestionAnswered(baseDir, taskID string, question QuestionData, answer, userInput string) {
	m.emit(TypeQuestionAnswered, QuestionAnsweredData{
		Scope:     Scope{BaseDir: baseDir, TaskID: taskID},
		Question:  question,
		Answer:    answer,
		UserInput: userInput,
	})
}

// Logs and tools

func (m *Manager) SendLog(data LogData) {
	m.emit(TypeLog, data)
}

func (m *Manager) SendTool(data ToolData) {
	m.emit(TypeTool, data)
}

func (m *Manager) SendUserMessage(data UserMessageData) {
	m.emit(TypeUserMessage, data)
}

func (m *Manager) SendUpdateTokensInfo(data TokensInfoData) {
	m.emit(TypeUpdateTokensInfo, data)
}

// Task lifecycle

func (m *Manager) SendTaskCreated(task TaskData)     { m.emit(TypeTaskCreated, task) }
func (m *Manager) SendTaskInitialized(task TaskData) { m.emit(TypeTaskInitialized, task) }
func (m *Manager) SendTaskUpdated(task TaskData)     { m.emit(TypeTaskUpdated, task) }
func (m *Manager) SendTaskStarted(task TaskData)     { m.emit(TypeTaskStarted, task) }
func (m *Manager) SendTaskCompleted(task TaskData)   { m.emit(TypeTaskCompleted, task) }
func (m *Manager) SendTaskCancelled(task TaskData)   { m.emit(TypeTaskCancelled, task) }
func (m *Manager) SendTaskDeleted(task TaskData)     { m.emit(TypeTaskDeleted, task) }
