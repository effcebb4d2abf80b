package a2a

import (
	"errors"
	"fmt"
)

// Standard and A2A specific JSON-RPC error codes.
const (
	CodeJSONParse                    = -32700
	CodeInvalidRequest               = -32600
	CodeMethodNotFound               = -32601
	CodeInvalidParams                = -32602
	CodeInternal                     = -32603
	CodeTaskNotFound                 = -32001
	CodeTaskNotCancelable            = -32002
	CodePushNotificationNotSupported = -32003
	CodeUnsupportedOperation         = -32004
)

// ErrInvalidInput is returned when a caller supplies an empty or malformed URL.
var ErrInvalidInput = errors.New("invalid input")

// JSONRPCError represents a standard JSON-RPC error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface for JSONRPCError
func (e *JSONRPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("A2A error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("A2A error %d: %s", e.Code, e.Message)
}

// JSONRPC returns the error itself so it can be written on the wire.
func (e *JSONRPCError) JSONRPC() *JSONRPCError {
	return e
}

// HTTPError is returned when a peer answers with a non-200 status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

// JSONError is returned when a peer's payload is not the JSON we expect.
type JSONError struct {
	Op  string
	Err error
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *JSONError) Unwrap() error {
	return e.Err
}

// rpcError is implemented by every error that has a JSON-RPC representation.
type rpcError interface {
	error
	JSONRPC() *JSONRPCError
}

type codedError struct {
	Code    int
	Message string
	Data    any
}

func (e *codedError) JSONRPC() *JSONRPCError {
	return &JSONRPCError{Code: e.Code, Message: e.Message, Data: e.Data}
}

// InternalError represents a generic internal JSON-RPC error.
type InternalError struct{ codedError }

// InvalidParamsError represents a JSON-RPC invalid parameters error.
type InvalidParamsError struct{ codedError }

// InvalidRequestError represents a JSON-RPC invalid request error.
type InvalidRequestError struct{ codedError }

// JSONParseError represents a JSON-RPC parse error.
type JSONParseError struct{ codedError }

// MethodNotFoundError represents a JSON-RPC method not found error.
type MethodNotFoundError struct{ codedError }

// TaskNotFoundError indicates the requested task ID was not found.
type TaskNotFoundError struct{ codedError }

// TaskNotCancelableError indicates a task cannot be canceled (e.g., already completed).
type TaskNotCancelableError struct{ codedError }

// PushNotificationNotSupportedError indicates push notifications are not supported.
type PushNotificationNotSupportedError struct{ codedError }

// UnsupportedOperationError indicates the requested operation is not supported by the agent.
type UnsupportedOperationError struct{ codedError }

func (e *InternalError) Error() string {
	return fmt.Sprintf("Internal error %d: %s", e.Code, e.Message)
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("Invalid parameters error %d: %s", e.Code, e.Message)
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("Invalid request error %d: %s", e.Code, e.Message)
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("JSON parse error %d: %s", e.Code, e.Message)
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("Method not found error %d: %s", e.Code, e.Message)
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("Task not found error %d: %s", e.Code, e.Message)
}

func (e *TaskNotCancelableError) Error() string {
	return fmt.Sprintf("Task not cancelable error %d: %s", e.Code, e.Message)
}

func (e *PushNotificationNotSupportedError) Error() string {
	return fmt.Sprintf("Push notification not supported error %d: %s", e.Code, e.Message)
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("Unsupported operation error %d: %s", e.Code, e.Message)
}

func NewInternalError(data any) *InternalError {
	return &InternalError{codedError{CodeInternal, "Internal error", data}}
}

func NewInvalidParamsError(data any) *InvalidParamsError {
	return &InvalidParamsError{codedError{CodeInvalidParams, "Invalid parameters", data}}
}

func NewInvalidRequestError(data any) *InvalidRequestError {
	return &InvalidRequestError{codedError{CodeInvalidRequest, "Request payload validation error", data}}
}

func NewJSONParseError(data any) *JSONParseError {
	return &JSONParseError{codedError{CodeJSONParse, "Invalid JSON payload", data}}
}

func NewMethodNotFoundError(method string) *MethodNotFoundError {
	return &MethodNotFoundError{codedError{CodeMethodNotFound, "Method not found", method}}
}

func NewTaskNotFoundError(taskID string) *TaskNotFoundError {
	return &TaskNotFoundError{codedError{CodeTaskNotFound, "Task not found", taskID}}
}

func NewTaskNotCancelableError(taskID string) *TaskNotCancelableError {
	return &TaskNotCancelableError{codedError{CodeTaskNotCancelable, "Task cannot be canceled", taskID}}
}

func NewPushNotificationNotSupportedError() *PushNotificationNotSupportedError {
	return &PushNotificationNotSupportedError{codedError{CodePushNotificationNotSupported, "Push Notification is not supported", nil}}
}

func NewUnsupportedOperationError(op string) *UnsupportedOperationError {
	return &UnsupportedOperationError{codedError{CodeUnsupportedOperation, "This operation is not supported", op}}
}

// ToJSONRPCError converts any error into its wire representation.
// Errors without a JSON-RPC form become internal errors.
func ToJSONRPCError(err error) *JSONRPCError {
	if err == nil {
		return nil
	}

	var coded rpcError
	if errors.As(err, &coded) {
		return coded.JSONRPC()
	}

	return &JSONRPCError{
		Code:    CodeInternal,
		Message: "Internal error",
		Data:    err.Error(),
	}
}
