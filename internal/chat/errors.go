package chat

import (
	"errors"

	"github.com/agent-protocol/a2a-chat/pkg/a2a"
)

// ErrorKind groups errors by how the UI reports them.
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindCardError    ErrorKind = "card_error"
	KindNotConnected ErrorKind = "not_connected"
	KindAgentError   ErrorKind = "agent_error"
	KindUnexpected   ErrorKind = "unexpected"
)

// UIError is an error ready to be shown to a user.
type UIError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"error"`
}

func (e *UIError) Error() string {
	return e.Message
}

// DescribeCardError turns a ResolveCard failure into a displayable error.
func DescribeCardError(err error) *UIError {
	var (
		jsonErr *a2a.JSONError
		httpErr *a2a.HTTPError
	)

	switch {
	case errors.Is(err, a2a.ErrInvalidInput):
		return &UIError{Kind: KindInvalidInput, Message: "Invalid input: " + err.Error()}
	case errors.As(err, &jsonErr), errors.As(err, &httpErr):
		return &UIError{Kind: KindCardError, Message: "Failed to fetch or parse agent card: " + err.Error()}
	default:
		return &UIError{Kind: KindUnexpected, Message: "An unexpected error occurred: " + err.Error()}
	}
}

// DescribeConnectError turns a Connect failure into a displayable error.
func DescribeConnectError(err error) *UIError {
	kind := KindUnexpected
	if errors.Is(err, a2a.ErrInvalidInput) {
		kind = KindInvalidInput
	}
	return &UIError{Kind: kind, Message: "Failed to connect to agent: " + err.Error()}
}

// DescribeSendError turns a Send failure into a displayable error.
func DescribeSendError(err error) *UIError {
	var rpcErr *a2a.JSONRPCError

	switch {
	case errors.Is(err, ErrNotConnected):
		return &UIError{Kind: KindNotConnected, Message: "Enter an Agent URL and connect to start chatting."}
	case errors.Is(err, ErrEmptyMessage):
		return &UIError{Kind: KindInvalidInput, Message: "Invalid input: " + err.Error()}
	case errors.As(err, &rpcErr):
		return &UIError{Kind: KindAgentError, Message: "Error communicating with agent: " + err.Error()}
	default:
		return &UIError{Kind: KindUnexpected, Message: "Error communicating with agent: " + err.Error()}
	}
}
