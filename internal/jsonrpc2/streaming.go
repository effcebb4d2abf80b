package jsonrpc2

import (
	"net/http"
	"sync"

	"github.com/gin-contrib/sse"

	"github.com/agent-protocol/a2a-chat/pkg/a2a"
)

// StreamWriter writes JSON-RPC responses as Server-Sent Events.
type StreamWriter struct {
	w      http.ResponseWriter
	id     any
	mu     sync.Mutex
	closed bool
}

// NewStreamWriter creates a new StreamWriter
func NewStreamWriter(w http.ResponseWriter, id any) *StreamWriter {
	w.Header().Set("Content-Type", sse.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &StreamWriter{
		w:  w,
		id: id,
	}
}

// WriteStatusUpdate sends a task status update to the client
func (sw *StreamWriter) WriteStatusUpdate(update *a2a.TaskStatusUpdateEvent) error {
	return sw.write(&a2a.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      sw.id,
		Result:  update,
	}, update.Final)
}

// WriteArtifactUpdate sends a task artifact update to the client
func (sw *StreamWriter) WriteArtifactUpdate(update *a2a.TaskArtifactUpdateEvent) error {
	return sw.write(&a2a.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      sw.id,
		Result:  update,
	}, false)
}

// WriteError sends an error response and closes the stream
func (sw *StreamWriter) WriteError(err *a2a.JSONRPCError) error {
	return sw.write(&a2a.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      sw.id,
		Error:   err,
	}, true)
}

// Close finalizes the stream
func (sw *StreamWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.closed = true
	return nil
}

func (sw *StreamWriter) write(response *a2a.JSONRPCResponse, last bool) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return nil
	}
	if last {
		sw.closed = true
	}

	if err := sse.Encode(sw.w, sse.Event{Data: response}); err != nil {
		return err
	}

	if flusher, ok := sw.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
