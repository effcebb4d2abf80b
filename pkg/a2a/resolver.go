package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Agent card locations.
const (
	WellKnownAgentCardPath = "/.well-known/agent.json"
	PlainAgentCardPath     = "agent.json"
)

// DefaultCardTimeout bounds an agent card fetch.
const DefaultCardTimeout = 30 * time.Second

// WithAgentCardPath overrides the path the resolver fetches the card from.
func WithAgentCardPath(path string) ClientOption {
	return func(o *clientOptions) {
		o.cardPath = path
	}
}

// CardResolver helps resolve agent cards from URLs
type CardResolver struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	cardPath   string
}

// NewCardResolver creates a resolver rooted at baseURL.
// The card is looked up under /.well-known/agent.json unless WithAgentCardPath is given.
func NewCardResolver(baseURL string, opts ...ClientOption) (*CardResolver, error) {
	base, err := parseURL(baseURL)
	if err != nil {
		return nil, err
	}

	o := newClientOptions(DefaultCardTimeout, opts)

	cardPath := o.cardPath
	if cardPath == "" {
		cardPath = WellKnownAgentCardPath
	}

	return &CardResolver{
		httpClient: o.httpClient,
		headers:    o.headers,
		baseURL:    strings.TrimRight(base, "/"),
		cardPath:   cardPath,
	}, nil
}

// CardURL returns the full URL the card is fetched from.
func (r *CardResolver) CardURL() (string, error) {
	fullURL, err := url.JoinPath(r.baseURL, r.cardPath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to construct URL: %v", ErrInvalidInput, err)
	}
	return fullURL, nil
}

// GetAgentCard fetches and validates the agent card.
func (r *CardResolver) GetAgentCard(ctx context.Context) (*AgentCard, error) {
	fullURL, err := r.CardURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInvalidInput, err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range r.headers {
		req.Header.Set(key, value)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent card: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, &JSONError{Op: "failed to decode agent card", Err: err}
	}

	if err := card.Validate(); err != nil {
		return nil, &JSONError{Op: "invalid agent card", Err: err}
	}

	return &card, nil
}
