package jsonrpc2

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/agent-protocol/a2a-chat/pkg/a2a"
)

// maxBodySize caps a JSON-RPC request body.
const maxBodySize = 8 << 20

// Request is a JSON-RPC request with undecoded params.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// TaskHandler defines the interface for handling A2A protocol operations
type TaskHandler interface {
	SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error)
	GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)
	CancelTask(ctx context.Context, params *a2a.TaskIdParams) (*a2a.Task, error)

	SetTaskPushNotification(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error)
	GetTaskPushNotification(ctx context.Context, params *a2a.TaskIdParams) (*a2a.TaskPushNotificationConfig, error)

	// SubscribeToTask runs the task and writes its events to sw until done.
	SubscribeToTask(ctx context.Context, params *a2a.TaskSendParams, sw *StreamWriter) error
}

// Server represents a JSON-RPC 2.0 server for A2A protocol
type Server struct {
	handler TaskHandler
}

// NewServer creates a new A2A JSON-RPC 2.0 server with the given task handler
func NewServer(handler TaskHandler) *Server {
	return &Server{
		handler: handler,
	}
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		s.handleBatchRequest(r.Context(), w, body)
		return
	}

	s.handleSingleRequest(r.Context(), w, body)
}

// handleSingleRequest processes a single JSON-RPC request
func (s *Server) handleSingleRequest(ctx context.Context, w http.ResponseWriter, body []byte) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, errorResponse(nil, a2a.NewJSONParseError(err.Error())))
		return
	}

	if req.JSONRPC != "2.0" {
		writeJSON(w, errorResponse(req.ID, a2a.NewInvalidRequestError("jsonrpc must be '2.0'")))
		return
	}

	if req.Method == a2a.MethodSendTaskSubscribe {
		s.handleSubscribe(ctx, w, req)
		return
	}

	if resp := s.processRequest(ctx, req); resp != nil {
		writeJSON(w, resp)
	}
}

// handleBatchRequest processes a batch of JSON-RPC requests.
// Streaming methods cannot be batched.
func (s *Server) handleBatchRequest(ctx context.Context, w http.ResponseWriter, body []byte) {
	var requests []Request
	if err := json.Unmarshal(body, &requests); err != nil {
		writeJSON(w, errorResponse(nil, a2a.NewJSONParseError(err.Error())))
		return
	}

	if len(requests) == 0 {
		writeJSON(w, errorResponse(nil, a2a.NewInvalidRequestError("Batch request cannot be empty")))
		return
	}

	responses := make([]*a2a.JSONRPCResponse, 0, len(requests))
	for _, req := range requests {
		switch {
		case req.JSONRPC != "2.0":
			responses = append(responses, errorResponse(req.ID, a2a.NewInvalidRequestError("jsonrpc must be '2.0'")))
		case req.Method == a2a.MethodSendTaskSubscribe:
			responses = append(responses, errorResponse(req.ID, a2a.NewInvalidRequestError("streaming methods cannot be batched")))
		default:
			if resp := s.processRequest(ctx, req); resp != nil {
				responses = append(responses, resp)
			}
		}
	}

	if len(responses) > 0 {
		writeJSON(w, responses)
	}
}

func (s *Server) handleSubscribe(ctx context.Context, w http.ResponseWriter, req Request) {
	var params a2a.TaskSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, errorResponse(req.ID, a2a.NewInvalidParamsError(err.Error())))
		return
	}

	sw := NewStreamWriter(w, req.ID)
	defer sw.Close()

	if err := s.handler.SubscribeToTask(ctx, &params, sw); err != nil {
		slog.Error("Error subscribing to task", "task", params.ID, "error", err)
		sw.WriteError(a2a.ToJSONRPCError(err))
	}
}

// processRequest handles a single JSON-RPC request
func (s *Server) processRequest(ctx context.Context, req Request) *a2a.JSONRPCResponse {
	// notifications get no response
	if req.ID == nil {
		s.processNotification(ctx, req)
		return nil
	}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		return errorResponse(req.ID, err)
	}

	return &a2a.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case a2a.MethodSendTask:
		var params a2a.TaskSendParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.handler.SendTask(ctx, &params)

	case a2a.MethodGetTask:
		var params a2a.TaskQueryParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.handler.GetTask(ctx, &params)

	case a2a.MethodCancelTask:
		var params a2a.TaskIdParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.handler.CancelTask(ctx, &params)

	case a2a.MethodSetTaskPushNotification:
		var params a2a.TaskPushNotificationConfig
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.handler.SetTaskPushNotification(ctx, &params)

	case a2a.MethodGetTaskPushNotification:
		var params a2a.TaskIdParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.handler.GetTaskPushNotification(ctx, &params)

	default:
		return nil, a2a.NewMethodNotFoundError(req.Method)
	}
}

// processNotification handles JSON-RPC notifications (no response)
func (s *Server) processNotification(ctx context.Context, req Request) {
	slog.Debug("Received notification", "method", req.Method)

	if _, err := s.dispatch(ctx, req); err != nil {
		slog.Warn("Error processing notification", "method", req.Method, "error", err)
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return a2a.NewInvalidParamsError("params are required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return a2a.NewInvalidParamsError(err.Error())
	}
	return nil
}

func errorResponse(id any, err error) *a2a.JSONRPCResponse {
	return &a2a.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   a2a.ToJSONRPCError(err),
	}
}

// writeJSON writes v as the response body. JSON-RPC errors are still 200 OK.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write JSON-RPC response", "error", err)
	}
}
