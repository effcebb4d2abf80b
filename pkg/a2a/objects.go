package a2a

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JSON-RPC method names spoken by the client and the demo agent.
const (
	MethodSendTask                = "tasks/send"
	MethodSendTaskSubscribe       = "tasks/sendSubscribe"
	MethodGetTask                 = "tasks/get"
	MethodCancelTask              = "tasks/cancel"
	MethodSetTaskPushNotification = "tasks/pushNotification/set"
	MethodGetTaskPushNotification = "tasks/pushNotification/get"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Part types.
const (
	PartTypeText = "text"
	PartTypeFile = "file"
	PartTypeData = "data"
)

// AgentAuthentication defines authentication details for an agent.
type AgentAuthentication struct {
	Schemes     []string `json:"schemes"`
	Credentials *string  `json:"credentials,omitempty"`
}

// AgentCapabilities defines the capabilities of an agent.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitempty"`
	PushNotifications      bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// AgentCard provides metadata about an agent.
type AgentCard struct {
	Name               string               `json:"name"`
	Description        *string              `json:"description,omitempty"`
	URL                string               `json:"url"`
	Provider           *AgentProvider       `json:"provider,omitempty"`
	Version            string               `json:"version"`
	DocumentationURL   *string              `json:"documentationUrl,omitempty"`
	Capabilities       AgentCapabilities    `json:"capabilities"`
	Authentication     *AgentAuthentication `json:"authentication,omitempty"`
	DefaultInputModes  []string             `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string             `json:"defaultOutputModes,omitempty"`
	Skills             []AgentSkill         `json:"skills"`
}

// Validate reports whether the card carries the fields a client needs.
func (c *AgentCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("agent card missing 'name' field")
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("agent card missing 'url' field")
	}
	return nil
}

// AgentProvider provides information about the agent's provider.
type AgentProvider struct {
	Organization string  `json:"organization"`
	URL          *string `json:"url,omitempty"`
}

// AgentSkill describes a specific skill or capability of the agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// Artifact represents a piece of output generated by a task.
type Artifact struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Index       int            `json:"index,omitempty"`
	Append      *bool          `json:"append,omitempty"`
	LastChunk   *bool          `json:"lastChunk,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Text concatenates the text parts of the artifact.
func (a Artifact) Text() string {
	return partsText(a.Parts)
}

// AuthenticationInfo holds authentication details.
type AuthenticationInfo struct {
	Schemes     []string `json:"schemes"`
	Credentials *string  `json:"credentials,omitempty"`
}

// FileContent represents the content of a file, either inline or via URI.
type FileContent struct {
	Name     *string `json:"name,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`
	Bytes    *string `json:"bytes,omitempty"` // base64
	URI      *string `json:"uri,omitempty"`
}

// Validate ensures that FileContent has either Bytes or URI but not both
func (fc *FileContent) Validate() error {
	if (fc.Bytes == nil && fc.URI == nil) || (fc.Bytes != nil && fc.URI != nil) {
		return fmt.Errorf("FileContent must have either Bytes or URI field, but not both")
	}
	return nil
}

// Message represents a single message in a task conversation.
type Message struct {
	Role     string         `json:"role"` // "user" or "agent"
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	return partsText(m.Parts)
}

// Part represents a component of a message or artifact.
// It is a union of text, file and data parts discriminated by Type.
type Part struct {
	Type     string         `json:"type"`
	Text     *string        `json:"text,omitempty"`
	File     *FileContent   `json:"file,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewTextPart returns a text part holding s.
func NewTextPart(s string) Part {
	return Part{Type: PartTypeText, Text: &s}
}

// NewFilePart returns a file part for the given content.
func NewFilePart(file FileContent) Part {
	return Part{Type: PartTypeFile, File: &file}
}

// NewDataPart returns a structured data part.
func NewDataPart(data map[string]any) Part {
	return Part{Type: PartTypeData, Data: data}
}

// UnmarshalJSON implements custom unmarshaling for Part to ensure data consistency
func (p *Part) UnmarshalJSON(data []byte) error {
	type partAlias Part
	var temp partAlias
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	switch temp.Type {
	case PartTypeText:
		if temp.Text == nil {
			return fmt.Errorf("text part missing 'text' field")
		}
	case PartTypeFile:
		if temp.File == nil {
			return fmt.Errorf("file part missing 'file' field")
		}
		if err := temp.File.Validate(); err != nil {
			return err
		}
	case PartTypeData:
		if temp.Data == nil {
			return fmt.Errorf("data part missing 'data' field")
		}
	default:
		return fmt.Errorf("unknown part type: %s", temp.Type)
	}

	*p = Part(temp)
	return nil
}

func partsText(parts []Part) string {
	var b strings.Builder
	for _, part := range parts {
		if part.Type == PartTypeText && part.Text != nil {
			b.WriteString(*part.Text)
		}
	}
	return b.String()
}

// PushNotificationConfig defines the configuration for push notifications.
type PushNotificationConfig struct {
	URL            string              `json:"url"`
	Token          *string             `json:"token,omitempty"`
	Authentication *AuthenticationInfo `json:"authentication,omitempty"`
}

// Task represents the state and data associated with an agent task.
type Task struct {
	ID        string         `json:"id"`
	SessionID *string        `json:"sessionId,omitempty"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	History   []Message      `json:"history,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ArtifactText concatenates the text parts of every artifact in order.
func (t *Task) ArtifactText() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for _, artifact := range t.Artifacts {
		b.WriteString(artifact.Text())
	}
	return b.String()
}

// TaskPushNotificationConfig associates a task ID with its push notification settings.
type TaskPushNotificationConfig struct {
	ID                     string                 `json:"id"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// TaskIdParams provides parameters containing just a task ID.
type TaskIdParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskQueryParams provides parameters for querying a task, including history length.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength *int           `json:"historyLength,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// TaskSendParams provides parameters for sending a message to a task.
type TaskSendParams struct {
	ID                  string                  `json:"id"`
	SessionID           *string                 `json:"sessionId,omitempty"`
	Message             Message                 `json:"message"`
	AcceptedOutputModes []string                `json:"acceptedOutputModes,omitempty"`
	PushNotification    *PushNotificationConfig `json:"pushNotification,omitempty"`
	HistoryLength       *int                    `json:"historyLength,omitempty"`
	Metadata            map[string]any          `json:"metadata,omitempty"`
}

// TaskState represents the possible states of a task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateUnknown       TaskState = "unknown"
)

// IsTerminal reports whether no further updates follow this state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed:
		return true
	default:
		return false
	}
}

// TaskStatus represents the current status of a task.
type TaskStatus struct {
	State     TaskState  `json:"state"`
	Message   *Message   `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// TaskStatusUpdateEvent represents an event indicating a change in task status.
type TaskStatusUpdateEvent struct {
	ID       string         `json:"id"`
	Status   TaskStatus     `json:"status"`
	Final    bool           `json:"final,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent represents an event indicating a new or updated artifact.
type TaskArtifactUpdateEvent struct {
	ID       string         `json:"id"`
	Artifact Artifact       `json:"artifact"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// JSONRPCRequest is a base structure for JSON-RPC requests.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"` // "2.0"
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSONRPCResponse is a base structure for JSON-RPC responses.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc,omitempty"` // "2.0"
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// SendTaskResponse is a JSON-RPC response for a send task request.
type SendTaskResponse struct {
	JSONRPC string        `json:"jsonrpc,omitempty"`
	ID      any           `json:"id"`
	Result  *Task         `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// GetTaskResponse is a JSON-RPC response containing task details.
type GetTaskResponse = SendTaskResponse

// CancelTaskResponse is a JSON-RPC response for a cancel task request.
type CancelTaskResponse = SendTaskResponse

// TaskPushNotificationResponse is a JSON-RPC response for push notification get/set.
type TaskPushNotificationResponse struct {
	JSONRPC string                      `json:"jsonrpc,omitempty"`
	ID      any                         `json:"id"`
	Result  *TaskPushNotificationConfig `json:"result,omitempty"`
	Error   *JSONRPCError               `json:"error,omitempty"`
}

// SendTaskStreamingResponse is a JSON-RPC response/event during a streaming task.
// Result holds a *TaskStatusUpdateEvent or a *TaskArtifactUpdateEvent.
type SendTaskStreamingResponse struct {
	JSONRPC string        `json:"jsonrpc,omitempty"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// UnmarshalJSON decodes Result into the concrete event type.
func (r *SendTaskStreamingResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		JSONRPC string          `json:"jsonrpc,omitempty"`
		ID      any             `json:"id"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *JSONRPCError   `json:"error,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.JSONRPC = raw.JSONRPC
	r.ID = raw.ID
	r.Error = raw.Error
	r.Result = nil

	if len(raw.Result) == 0 || string(raw.Result) == "null" {
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw.Result, &probe); err != nil {
		return fmt.Errorf("invalid streaming result: %w", err)
	}

	switch {
	case probe["artifact"] != nil:
		var event TaskArtifactUpdateEvent
		if err := json.Unmarshal(raw.Result, &event); err != nil {
			return err
		}
		r.Result = &event
	case probe["status"] != nil:
		var event TaskStatusUpdateEvent
		if err := json.Unmarshal(raw.Result, &event); err != nil {
			return err
		}
		r.Result = &event
	default:
		return fmt.Errorf("unknown streaming result: %s", string(raw.Result))
	}

	return nil
}

// GetStatusUpdate returns the TaskStatusUpdateEvent if the Result contains one, or nil otherwise
func (r *SendTaskStreamingResponse) GetStatusUpdate() *TaskStatusUpdateEvent {
	if update, ok := r.Result.(*TaskStatusUpdateEvent); ok {
		return update
	}
	return nil
}

// GetArtifactUpdate returns the TaskArtifactUpdateEvent if the Result contains one, or nil otherwise
func (r *SendTaskStreamingResponse) GetArtifactUpdate() *TaskArtifactUpdateEvent {
	if update, ok := r.Result.(*TaskArtifactUpdateEvent); ok {
		return update
	}
	return nil
}
