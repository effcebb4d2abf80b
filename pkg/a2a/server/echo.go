package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agent-protocol/a2a-chat/internal/jsonrpc2"
	"github.com/agent-protocol/a2a-chat/pkg/a2a"
	"github.com/agent-protocol/a2a-chat/pkg/ptr"
)

// EchoAgent answers every task with its prefix followed by the user's text.
// Tasks are kept in memory so they can be fetched or canceled later.
type EchoAgent struct {
	prefix string
	delay  time.Duration

	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

// EchoOption configures an EchoAgent.
type EchoOption func(*EchoAgent)

// WithPrefix sets the text prepended to every reply.
func WithPrefix(prefix string) EchoOption {
	return func(a *EchoAgent) {
		a.prefix = prefix
	}
}

// WithChunkDelay pauses between streamed chunks.
func WithChunkDelay(d time.Duration) EchoOption {
	return func(a *EchoAgent) {
		a.delay = d
	}
}

// NewEchoAgent creates an echo agent.
func NewEchoAgent(opts ...EchoOption) *EchoAgent {
	a := &EchoAgent{
		prefix: "Echo: ",
		tasks:  make(map[string]*a2a.Task),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EchoCard builds the card an echo agent publishes at url.
func EchoCard(name, url string, streaming bool) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:        name,
		Description: ptr.Ptr("Replies with whatever it is sent"),
		URL:         url,
		Version:     "1.0.0",
		Capabilities: a2a.AgentCapabilities{
			Streaming: streaming,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []a2a.AgentSkill{
			{
				ID:          "echo",
				Name:        "Echo",
				Description: ptr.Ptr("Repeats the user's message"),
				Tags:        []string{"demo"},
				Examples:    []string{"hello"},
			},
		},
	}
}

func (a *EchoAgent) reply(params *a2a.TaskSendParams) string {
	return a.prefix + params.Message.Text()
}

func validateSend(params *a2a.TaskSendParams) error {
	if len(params.Message.Parts) == 0 {
		return a2a.NewInvalidParamsError("message has no parts")
	}
	if len(params.AcceptedOutputModes) > 0 && !containsMode(params.AcceptedOutputModes, "text") {
		return a2a.NewUnsupportedOperationError("only text output is produced")
	}
	return nil
}

func containsMode(modes []string, mode string) bool {
	for _, m := range modes {
		if m == mode || strings.HasPrefix(m, mode+"/") {
			return true
		}
	}
	return false
}

// SendTask implements jsonrpc2.TaskHandler
func (a *EchoAgent) SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	if err := validateSend(params); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &a2a.Task{
		ID:        params.ID,
		SessionID: params.SessionID,
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateCompleted,
			Timestamp: &now,
		},
		Artifacts: []a2a.Artifact{
			{
				Name:      ptr.Ptr("reply"),
				Parts:     []a2a.Part{a2a.NewTextPart(a.reply(params))},
				LastChunk: ptr.Ptr(true),
			},
		},
		History:  []a2a.Message{params.Message},
		Metadata: params.Metadata,
	}

	a.store(task)

	out := *task
	return &out, nil
}

// GetTask implements jsonrpc2.TaskHandler
func (a *EchoAgent) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	task, ok := a.tasks[params.ID]
	if !ok {
		return nil, a2a.NewTaskNotFoundError(params.ID)
	}

	out := *task
	if params.HistoryLength != nil {
		n := *params.HistoryLength
		if n < 0 {
			return nil, a2a.NewInvalidParamsError("historyLength must not be negative")
		}
		if n < len(out.History) {
			out.History = out.History[len(out.History)-n:]
		}
	}
	return &out, nil
}

// CancelTask implements jsonrpc2.TaskHandler
func (a *EchoAgent) CancelTask(ctx context.Context, params *a2a.TaskIdParams) (*a2a.Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	task, ok := a.tasks[params.ID]
	if !ok {
		return nil, a2a.NewTaskNotFoundError(params.ID)
	}
	if task.Status.State.IsTerminal() {
		return nil, a2a.NewTaskNotCancelableError(params.ID)
	}

	now := time.Now().UTC()
	task.Status = a2a.TaskStatus{State: a2a.TaskStateCanceled, Timestamp: &now}

	out := *task
	return &out, nil
}

// SetTaskPushNotification implements jsonrpc2.TaskHandler
func (a *EchoAgent) SetTaskPushNotification(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	return nil, a2a.NewPushNotificationNotSupportedError()
}

// GetTaskPushNotification implements jsonrpc2.TaskHandler
func (a *EchoAgent) GetTaskPushNotification(ctx context.Context, params *a2a.TaskIdParams) (*a2a.TaskPushNotificationConfig, error) {
	return nil, a2a.NewPushNotificationNotSupportedError()
}

// SubscribeToTask implements jsonrpc2.TaskHandler.
// The reply is streamed one word per artifact event.
func (a *EchoAgent) SubscribeToTask(ctx context.Context, params *a2a.TaskSendParams, sw *jsonrpc2.StreamWriter) error {
	if err := validateSend(params); err != nil {
		return err
	}

	now := time.Now().UTC()
	working := a2a.TaskStatus{State: a2a.TaskStateWorking, Timestamp: &now}
	task := &a2a.Task{
		ID:        params.ID,
		SessionID: params.SessionID,
		Status:    working,
		History:   []a2a.Message{params.Message},
		Metadata:  params.Metadata,
	}
	a.store(task)

	if err := sw.WriteStatusUpdate(&a2a.TaskStatusUpdateEvent{ID: task.ID, Status: working}); err != nil {
		return err
	}

	chunks := splitKeep(a.reply(params))
	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			a.finish(task.ID, a2a.TaskStateCanceled, nil)
			return ctx.Err()
		case <-time.After(a.delay):
		}

		// canceled through tasks/cancel while streaming
		if status, done := a.terminal(task.ID); done {
			return sw.WriteStatusUpdate(&a2a.TaskStatusUpdateEvent{ID: task.ID, Status: status, Final: true})
		}

		artifact := a2a.Artifact{
			Name:      ptr.Ptr("reply"),
			Parts:     []a2a.Part{a2a.NewTextPart(chunk)},
			Append:    ptr.Ptr(i > 0),
			LastChunk: ptr.Ptr(i == len(chunks)-1),
		}
		if err := sw.WriteArtifactUpdate(&a2a.TaskArtifactUpdateEvent{ID: task.ID, Artifact: artifact}); err != nil {
			return err
		}
	}

	final := a.finish(task.ID, a2a.TaskStateCompleted, []a2a.Artifact{{
		Name:  ptr.Ptr("reply"),
		Parts: []a2a.Part{a2a.NewTextPart(a.reply(params))},
	}})

	return sw.WriteStatusUpdate(&a2a.TaskStatusUpdateEvent{ID: task.ID, Status: final, Final: true})
}

func (a *EchoAgent) store(task *a2a.Task) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	a.mu.Lock()
	a.tasks[task.ID] = task
	a.mu.Unlock()
}

// terminal returns the stored status of task id if it can no longer change.
func (a *EchoAgent) terminal(id string) (a2a.TaskStatus, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	task, ok := a.tasks[id]
	if !ok || !task.Status.State.IsTerminal() {
		return a2a.TaskStatus{}, false
	}
	return task.Status, true
}

// finish moves task id to state. A task already in a terminal state keeps it,
// and its status is returned instead.
func (a *EchoAgent) finish(id string, state a2a.TaskState, artifacts []a2a.Artifact) a2a.TaskStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	task, ok := a.tasks[id]
	if ok && task.Status.State.IsTerminal() {
		return task.Status
	}

	now := time.Now().UTC()
	status := a2a.TaskStatus{State: state, Timestamp: &now}
	if ok {
		task.Status = status
		if artifacts != nil {
			task.Artifacts = artifacts
		}
	}
	return status
}

// splitKeep splits s into words, keeping the separating spaces attached.
func splitKeep(s string) []string {
	if s == "" {
		return []string{""}
	}
	var chunks []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			chunks = append(chunks, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		chunks = append(chunks, s[start:])
	}
	return chunks
}
