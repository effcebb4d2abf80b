// Package chat holds the state of one conversation with a remote agent:
// the resolved card, the connected client and the message history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agent-protocol/a2a-chat/pkg/a2a"
	"github.com/agent-protocol/a2a-chat/pkg/ptr"
)

var (
	// ErrNotConnected is returned by Send before Connect succeeded.
	ErrNotConnected = errors.New("not connected to an agent")
	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// AcceptedOutputModes returns the output modes the client asks agents to produce.
func AcceptedOutputModes() []string {
	return []string{"text"}
}

// Entry is one line of the chat history.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Capabilities is the displayed subset of an agent's capabilities.
type Capabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// CardSummary is the part of an agent card shown to the user.
type CardSummary struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Description  string       `json:"description"`
	URL          string       `json:"url"`
	Capabilities Capabilities `json:"capabilities"`
}

// Summarize extracts the displayed fields of card.
func Summarize(card *a2a.AgentCard) *CardSummary {
	return &CardSummary{
		Name:        card.Name,
		Version:     card.Version,
		Description: ptr.Deref(card.Description),
		URL:         card.URL,
		Capabilities: Capabilities{
			Streaming:         card.Capabilities.Streaming,
			PushNotifications: card.Capabilities.PushNotifications,
		},
	}
}

// Options configures a Session.
type Options struct {
	// Stream enables tasks/sendSubscribe when the agent card advertises it.
	Stream bool

	TaskTimeout time.Duration
	CardTimeout time.Duration
	Headers     map[string]string
}

// Session is one user's conversation. It is safe for concurrent use.
// The lock is never held across a network call.
type Session struct {
	opts Options

	mu        sync.Mutex
	id        string
	messages  []Entry
	client    *a2a.Client
	card      *a2a.AgentCard
	updatedAt time.Time
}

// NewSession creates an unconnected session with a fresh session id.
func NewSession(opts Options) *Session {
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = a2a.DefaultTaskTimeout
	}
	if opts.CardTimeout <= 0 {
		opts.CardTimeout = a2a.DefaultCardTimeout
	}
	return &Session{
		opts:      opts,
		id:        newID(),
		updatedAt: time.Now(),
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ID returns the A2A session id sent with every task.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Connected reports whether Connect succeeded.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// AgentURL returns the connected endpoint, or "".
func (s *Session) AgentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return ""
	}
	return s.client.URL()
}

// Card returns the last resolved card, or nil.
func (s *Session) Card() *a2a.AgentCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card
}

// Messages returns a copy of the history.
func (s *Session) Messages() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastActive returns when the session was last touched.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Reset clears the history and starts a new A2A session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.id = newID()
	s.updatedAt = time.Now()
}

// ResolveCard fetches the agent card below cardURL. With useWellKnown the card
// is read from /.well-known/agent.json, otherwise from agent.json.
func (s *Session) ResolveCard(ctx context.Context, cardURL string, useWellKnown bool) (*CardSummary, error) {
	if strings.TrimSpace(cardURL) == "" {
		return nil, fmt.Errorf("%w: agent card url is required", a2a.ErrInvalidInput)
	}

	opts := []a2a.ClientOption{
		a2a.WithTimeout(s.opts.CardTimeout),
		a2a.WithHeaders(s.opts.Headers),
	}
	if !useWellKnown {
		opts = append(opts, a2a.WithAgentCardPath(a2a.PlainAgentCardPath))
	}

	resolver, err := a2a.NewCardResolver(cardURL, opts...)
	if err != nil {
		return nil, err
	}

	card, err := resolver.GetAgentCard(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("Resolved agent card", "name", card.Name, "url", card.URL, "streaming", card.Capabilities.Streaming)

	s.mu.Lock()
	s.card = card
	s.updatedAt = time.Now()
	s.mu.Unlock()

	return Summarize(card), nil
}

// Connect points the session at the agent endpoint agentURL.
func (s *Session) Connect(agentURL string) error {
	client, err := a2a.NewClient(agentURL,
		a2a.WithTimeout(s.opts.TaskTimeout),
		a2a.WithHeaders(s.opts.Headers),
	)
	if err != nil {
		return err
	}

	slog.Info("Connected to agent", "url", client.URL())

	s.mu.Lock()
	s.client = client
	s.updatedAt = time.Now()
	s.mu.Unlock()

	return nil
}

// Streaming reports whether the next Send will stream.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Stream && s.card != nil && s.card.Capabilities.Streaming
}

// Send delivers text to the agent and returns the reply text.
// When streaming, onUpdate receives the accumulated reply after every chunk;
// otherwise it is called once with the full reply. onUpdate may be nil.
func (s *Session) Send(ctx context.Context, text string, onUpdate func(string)) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	streaming := s.Streaming()

	s.mu.Lock()
	client := s.client
	if client == nil {
		s.mu.Unlock()
		return "", ErrNotConnected
	}
	s.messages = append(s.messages, Entry{Role: a2a.RoleUser, Content: text})
	sessionID := s.id
	s.updatedAt = time.Now()
	s.mu.Unlock()

	params := NewTaskParams(sessionID, text)

	var (
		reply string
		err   error
	)
	if streaming {
		reply, err = sendStreaming(ctx, client, params, onUpdate)
	} else {
		reply, err = sendOnce(ctx, client, params)
		if err == nil && onUpdate != nil && reply != "" {
			onUpdate(reply)
		}
	}
	if err != nil {
		return "", err
	}

	if reply != "" {
		s.mu.Lock()
		s.messages = append(s.messages, Entry{Role: a2a.RoleAgent, Content: reply})
		s.updatedAt = time.Now()
		s.mu.Unlock()
	}

	return reply, nil
}

// NewTaskParams builds the task payload for one user message.
func NewTaskParams(sessionID, text string) *a2a.TaskSendParams {
	return &a2a.TaskSendParams{
		ID:        newID(),
		SessionID: &sessionID,
		Message: a2a.Message{
			Role:  a2a.RoleUser,
			Parts: []a2a.Part{a2a.NewTextPart(text)},
		},
		AcceptedOutputModes: AcceptedOutputModes(),
	}
}

func sendOnce(ctx context.Context, client *a2a.Client, params *a2a.TaskSendParams) (string, error) {
	response, err := client.SendTask(ctx, params)
	if err != nil {
		return "", err
	}
	if response.Error != nil {
		return "", response.Error
	}

	if response.Result != nil {
		slog.Debug("Task finished", "task", response.Result.ID, "state", response.Result.Status.State)
	}

	return response.Result.ArtifactText(), nil
}

func sendStreaming(ctx context.Context, client *a2a.Client, params *a2a.TaskSendParams, onUpdate func(string)) (string, error) {
	var b strings.Builder

	err := client.SendTaskStreaming(ctx, params, func(event *a2a.SendTaskStreamingResponse) error {
		if event.Error != nil {
			return event.Error
		}

		artifact := event.GetArtifactUpdate()
		if artifact == nil {
			if status := event.GetStatusUpdate(); status != nil {
				slog.Debug("Task status", "task", status.ID, "state", status.Status.State, "final", status.Final)
			}
			return nil
		}

		chunk := artifact.Artifact.Text()
		if chunk == "" {
			return nil
		}
		b.WriteString(chunk)
		if onUpdate != nil {
			onUpdate(b.String())
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return b.String(), nil
}
