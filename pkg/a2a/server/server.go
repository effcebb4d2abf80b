// Package server hosts a small A2A agent. It is the peer the chat client
// talks to in demos and tests.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/agent-protocol/a2a-chat/internal/jsonrpc2"
	"github.com/agent-protocol/a2a-chat/pkg/a2a"
)

// Server serves an agent card and a JSON-RPC task endpoint.
type Server struct {
	card    *a2a.AgentCard
	handler jsonrpc2.TaskHandler
	mux     *http.ServeMux
}

// New creates a server publishing card and dispatching tasks to handler.
func New(card *a2a.AgentCard, handler jsonrpc2.TaskHandler) *Server {
	if card == nil {
		panic("agent card is required")
	}
	if handler == nil {
		panic("task handler is required")
	}

	s := &Server{
		card:    card,
		handler: handler,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET "+a2a.WellKnownAgentCardPath, s.handleAgentCard)
	s.mux.HandleFunc("GET /"+a2a.PlainAgentCardPath, s.handleAgentCard)
	s.mux.Handle("POST /{$}", jsonrpc2.NewServer(handler))

	return s
}

// AgentCard returns the published card.
func (s *Server) AgentCard() *a2a.AgentCard {
	return s.card
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Debug("agent request", "method", r.Method, "path", r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		slog.Error("Failed to write agent card", "error", err)
	}
}
