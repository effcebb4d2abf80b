package a2a

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCard = `{
	"name": "Echo Agent",
	"description": "Replies with whatever it is sent",
	"url": "http://localhost:10000/",
	"version": "1.0.0",
	"capabilities": {"streaming": true},
	"skills": [{"id": "echo", "name": "Echo"}]
}`

func TestCardResolverPaths(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		opts     []ClientOption
		expected string
	}{
		{
			name:     "well-known",
			base:     "http://localhost:10000",
			expected: "http://localhost:10000/.well-known/agent.json",
		},
		{
			name:     "well-known with trailing slash",
			base:     "http://localhost:10000/",
			expected: "http://localhost:10000/.well-known/agent.json",
		},
		{
			name:     "plain below a path",
			base:     "http://localhost:10000/agents/echo",
			opts:     []ClientOption{WithAgentCardPath(PlainAgentCardPath)},
			expected: "http://localhost:10000/agents/echo/agent.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, err := NewCardResolver(tt.base, tt.opts...)
			require.NoError(t, err)

			got, err := resolver.CardURL()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCardResolverInvalidInput(t *testing.T) {
	for _, u := range []string{"", "not a url", "file:///etc/passwd"} {
		_, err := NewCardResolver(u)
		assert.ErrorIs(t, err, ErrInvalidInput, "url %q", u)
	}
}

func TestGetAgentCard(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		io.WriteString(w, testCard)
	}))
	defer srv.Close()

	resolver, err := NewCardResolver(srv.URL, WithHeader("X-Api-Key", "secret"))
	require.NoError(t, err)

	card, err := resolver.GetAgentCard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, WellKnownAgentCardPath, gotPath)
	assert.Equal(t, "Echo Agent", card.Name)
	assert.Equal(t, "1.0.0", card.Version)
	assert.True(t, card.Capabilities.Streaming)
	require.NotNil(t, card.Description)
	assert.Equal(t, "Replies with whatever it is sent", *card.Description)
}

func TestGetAgentCardPlainPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent.json" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, testCard)
	}))
	defer srv.Close()

	resolver, err := NewCardResolver(srv.URL, WithAgentCardPath(PlainAgentCardPath))
	require.NoError(t, err)

	card, err := resolver.GetAgentCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Echo Agent", card.Name)
}

func TestGetAgentCardErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   "404 page not found",
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   "{",
			check: func(t *testing.T, err error) {
				var jsonErr *JSONError
				require.True(t, errors.As(err, &jsonErr))
			},
		},
		{
			name:   "missing url",
			status: http.StatusOK,
			body:   `{"name":"Nameless"}`,
			check: func(t *testing.T, err error) {
				var jsonErr *JSONError
				require.True(t, errors.As(err, &jsonErr))
				assert.ErrorContains(t, err, "'url'")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			resolver, err := NewCardResolver(srv.URL)
			require.NoError(t, err)

			_, err = resolver.GetAgentCard(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
