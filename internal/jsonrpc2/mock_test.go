package jsonrpc2

import (
	"context"
	"sync"

	"github.com/agent-protocol/a2a-chat/pkg/a2a"
)

// MockTaskHandler records tasks in memory and streams a fixed reply.
type MockTaskHandler struct {
	mu    sync.Mutex
	tasks map[string]*a2a.Task
	sends int
}

func NewMockTaskHandler() *MockTaskHandler {
	return &MockTaskHandler{tasks: make(map[string]*a2a.Task)}
}

func (h *MockTaskHandler) SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	if params.ID == "" {
		return nil, a2a.NewInvalidParamsError("id is required")
	}

	task := &a2a.Task{
		ID:        params.ID,
		SessionID: params.SessionID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted},
		Artifacts: []a2a.Artifact{{Parts: []a2a.Part{a2a.NewTextPart("reply to " + params.Message.Text())}}},
	}

	h.mu.Lock()
	h.tasks[task.ID] = task
	h.sends++
	h.mu.Unlock()

	return task, nil
}

func (h *MockTaskHandler) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	task, ok := h.tasks[params.ID]
	if !ok {
		return nil, a2a.NewTaskNotFoundError(params.ID)
	}
	return task, nil
}

func (h *MockTaskHandler) CancelTask(ctx context.Context, params *a2a.TaskIdParams) (*a2a.Task, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	task, ok := h.tasks[params.ID]
	if !ok {
		return nil, a2a.NewTaskNotFoundError(params.ID)
	}
	if task.Status.State.IsTerminal() {
		return nil, a2a.NewTaskNotCancelableError(params.ID)
	}
	task.Status.State = a2a.TaskStateCanceled
	return task, nil
}

func (h *MockTaskHandler) SetTaskPushNotification(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	return params, nil
}

func (h *MockTaskHandler) GetTaskPushNotification(ctx context.Context, params *a2a.TaskIdParams) (*a2a.TaskPushNotificationConfig, error) {
	return nil, a2a.NewPushNotificationNotSupportedError()
}

func (h *MockTaskHandler) SubscribeToTask(ctx context.Context, params *a2a.TaskSendParams, sw *StreamWriter) error {
	if len(params.Message.Parts) == 0 {
		return a2a.NewInvalidParamsError("message has no parts")
	}

	if err := sw.WriteStatusUpdate(&a2a.TaskStatusUpdateEvent{
		ID:     params.ID,
		Status: a2a.TaskStatus{State: a2a.TaskStateWorking},
	}); err != nil {
		return err
	}

	if err := sw.WriteArtifactUpdate(&a2a.TaskArtifactUpdateEvent{
		ID:       params.ID,
		Artifact: a2a.Artifact{Parts: []a2a.Part{a2a.NewTextPart("streamed")}},
	}); err != nil {
		return err
	}

	return sw.WriteStatusUpdate(&a2a.TaskStatusUpdateEvent{
		ID:     params.ID,
		Status: a2a.TaskStatus{State: a2a.TaskStateCompleted},
		Final:  true,
	})
}

func (h *MockTaskHandler) sent() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sends
}
