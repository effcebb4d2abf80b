package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-protocol/a2a-chat/pkg/a2a"
	"github.com/agent-protocol/a2a-chat/pkg/a2a/server"
)

func startEcho(t *testing.T, streaming bool) *httptest.Server {
	t.Helper()

	srv := httptest.NewUnstartedServer(nil)
	card := server.EchoCard("Echo Agent", "http://"+srv.Listener.Addr().String()+"/", streaming)
	srv.Config.Handler = server.New(card, server.NewEchoAgent())
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionResolveAndChat(t *testing.T) {
	srv := startEcho(t, true)
	s := NewSession(Options{})

	summary, err := s.ResolveCard(context.Background(), srv.URL, true)
	require.NoError(t, err)
	assert.Equal(t, "Echo Agent", summary.Name)
	assert.Equal(t, "1.0.0", summary.Version)
	assert.Equal(t, srv.URL+"/", summary.URL)
	assert.True(t, summary.Capabilities.Streaming)
	assert.False(t, s.Connected())

	require.NoError(t, s.Connect(summary.URL))
	assert.True(t, s.Connected())
	assert.Equal(t, summary.URL, s.AgentURL())

	// streaming is off unless requested
	assert.False(t, s.Streaming())

	var updates []string
	reply, err := s.Send(context.Background(), "hello", func(text string) {
		updates = append(updates, text)
	})
	require.NoError(t, err)
	assert.Equal(t, "Echo: hello", reply)
	assert.Equal(t, []string{"Echo: hello"}, updates)

	assert.Equal(t, []Entry{
		{Role: a2a.RoleUser, Content: "hello"},
		{Role: a2a.RoleAgent, Content: "Echo: hello"},
	}, s.Messages())
}

func TestSessionStreaming(t *testing.T) {
	srv := startEcho(t, true)
	s := NewSession(Options{Stream: true})

	_, err := s.ResolveCard(context.Background(), srv.URL, false)
	require.NoError(t, err)
	require.NoError(t, s.Connect(srv.URL))
	require.True(t, s.Streaming())

	var updates []string
	reply, err := s.Send(context.Background(), "a b", func(text string) {
		updates = append(updates, text)
	})
	require.NoError(t, err)

	assert.Equal(t, "Echo: a b", reply)
	assert.Equal(t, []string{"Echo: ", "Echo: a ", "Echo: a b"}, updates)
	assert.Len(t, s.Messages(), 2)
}

func TestSessionStreamingNeedsCapability(t *testing.T) {
	srv := startEcho(t, false)
	s := NewSession(Options{Stream: true})

	_, err := s.ResolveCard(context.Background(), srv.URL, true)
	require.NoError(t, err)
	assert.False(t, s.Streaming())
}

func TestSessionSendErrors(t *testing.T) {
	s := NewSession(Options{})

	_, err := s.Send(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, s.Messages())

	require.NoError(t, s.Connect("http://localhost:1/"))
	_, err = s.Send(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, s.Messages())
}

func TestSessionAgentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"jsonrpc":"2.0","id":"1","error":{"code":-32603,"message":"Internal error","data":"model unavailable"}}`)
	}))
	defer srv.Close()

	s := NewSession(Options{})
	require.NoError(t, s.Connect(srv.URL))

	_, err := s.Send(context.Background(), "hi", nil)
	require.Error(t, err)

	uiErr := DescribeSendError(err)
	assert.Equal(t, KindAgentError, uiErr.Kind)
	assert.True(t, strings.HasPrefix(uiErr.Message, "Error communicating with agent: "))
	assert.Contains(t, uiErr.Message, "model unavailable")

	// the user's message stays in the history
	assert.Equal(t, []Entry{{Role: a2a.RoleUser, Content: "hi"}}, s.Messages())
}

func TestSessionSendsTaskPayload(t *testing.T) {
	var params a2a.TaskSendParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string             `json:"method"`
			Params a2a.TaskSendParams `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, a2a.MethodSendTask, req.Method)
		params = req.Params
		io.WriteString(w, `{"jsonrpc":"2.0","id":"1","result":{"id":"x","status":{"state":"completed"}}}`)
	}))
	defer srv.Close()

	s := NewSession(Options{})
	require.NoError(t, s.Connect(srv.URL))

	reply, err := s.Send(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Empty(t, reply)

	assert.Len(t, params.ID, 32)
	require.NotNil(t, params.SessionID)
	assert.Equal(t, s.ID(), *params.SessionID)
	assert.Equal(t, a2a.RoleUser, params.Message.Role)
	assert.Equal(t, "ping", params.Message.Text())
	assert.Equal(t, []string{"text"}, params.AcceptedOutputModes)

	// empty replies are not recorded
	assert.Len(t, s.Messages(), 1)
}

func TestSessionReset(t *testing.T) {
	srv := startEcho(t, false)
	s := NewSession(Options{})
	require.NoError(t, s.Connect(srv.URL))

	_, err := s.Send(context.Background(), "hi", nil)
	require.NoError(t, err)

	id := s.ID()
	s.Reset()

	assert.NotEqual(t, id, s.ID())
	assert.Empty(t, s.Messages())
	assert.True(t, s.Connected())
}

func TestNewTaskParamsUniqueIDs(t *testing.T) {
	a := NewTaskParams("s", "x")
	b := NewTaskParams("s", "x")
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotContains(t, a.ID, "-")
}

func TestSessionResolveCardErrors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	badJSON := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>")
	}))
	defer badJSON.Close()

	tests := []struct {
		name   string
		url    string
		kind   ErrorKind
		prefix string
	}{
		{"empty", "", KindInvalidInput, "Invalid input: "},
		{"bad scheme", "ftp://example.com", KindInvalidInput, "Invalid input: "},
		{"not found", notFound.URL, KindCardError, "Failed to fetch or parse agent card: "},
		{"bad json", badJSON.URL, KindCardError, "Failed to fetch or parse agent card: "},
		{"unreachable", "http://127.0.0.1:1", KindUnexpected, "An unexpected error occurred: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(Options{})
			_, err := s.ResolveCard(context.Background(), tt.url, true)
			require.Error(t, err)

			uiErr := DescribeCardError(err)
			assert.Equal(t, tt.kind, uiErr.Kind)
			assert.True(t, strings.HasPrefix(uiErr.Message, tt.prefix), uiErr.Message)
			assert.Nil(t, s.Card())
		})
	}
}

func TestDescribeConnectError(t *testing.T) {
	s := NewSession(Options{})
	err := s.Connect("not a url")
	require.Error(t, err)

	uiErr := DescribeConnectError(err)
	assert.Equal(t, KindInvalidInput, uiErr.Kind)
	assert.True(t, strings.HasPrefix(uiErr.Message, "Failed to connect to agent: "))
	assert.False(t, s.Connected())
}

func TestDescribeSendErrorNotConnected(t *testing.T) {
	uiErr := DescribeSendError(ErrNotConnected)
	assert.Equal(t, KindNotConnected, uiErr.Kind)
	assert.Equal(t, "Enter an Agent URL and connect to start chatting.", uiErr.Error())
}

func TestDescribeCardErrorStatusCodes(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", code)
			}))
			defer srv.Close()

			_, err := NewSession(Options{}).ResolveCard(context.Background(), srv.URL, true)
			require.Error(t, err)

			uiErr := DescribeCardError(err)
			assert.Equal(t, KindCardError, uiErr.Kind)
			assert.True(t, strings.HasPrefix(uiErr.Message, "Failed to fetch or parse agent card: "), uiErr.Message)
			assert.Contains(t, uiErr.Message, fmt.Sprintf("HTTP error %d", code))
		})
	}

	t.Run("card without url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"name":"Nameless URL"}`)
		}))
		defer srv.Close()

		_, err := NewSession(Options{}).ResolveCard(context.Background(), srv.URL, true)
		require.Error(t, err)

		uiErr := DescribeCardError(err)
		assert.Equal(t, KindCardError, uiErr.Kind)
		assert.True(t, strings.HasPrefix(uiErr.Message, "Failed to fetch or parse agent card: "), uiErr.Message)
	})
}

func TestNewTaskParamsOwnsOutputModes(t *testing.T) {
	first := NewTaskParams("s", "x")
	first.AcceptedOutputModes[0] = "image/png"
	first.AcceptedOutputModes = append(first.AcceptedOutputModes, "audio/wav")

	second := NewTaskParams("s", "y")
	assert.Equal(t, []string{"text"}, second.AcceptedOutputModes)
	assert.Equal(t, []string{"text"}, AcceptedOutputModes())
}
