package a2a

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTaskTimeout bounds a single task round trip.
const DefaultTaskTimeout = 600 * time.Second

// maxEventSize caps a single SSE line.
const maxEventSize = 4 << 20

// errStreamDone stops stream processing after a final status event.
var errStreamDone = errors.New("stream done")

// ClientOption configures a Client or a CardResolver.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string
	cardPath   string
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(o *clientOptions) {
		o.headers[key] = value
	}
}

// WithHeaders adds several headers to every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

func newClientOptions(timeout time.Duration, opts []ClientOption) *clientOptions {
	o := &clientOptions{
		timeout: timeout,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}

// Client is an A2A client for communicating with remote agents
type Client struct {
	url        string
	httpClient *http.Client
	headers    map[string]string
}

// NewClient creates a client for the agent endpoint at rawURL.
func NewClient(rawURL string, opts ...ClientOption) (*Client, error) {
	endpoint, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	o := newClientOptions(DefaultTaskTimeout, opts)

	return &Client{
		url:        endpoint,
		httpClient: o.httpClient,
		headers:    o.headers,
	}, nil
}

// NewClientFromCard creates a client for the endpoint advertised by card.
func NewClientFromCard(card *AgentCard, opts ...ClientOption) (*Client, error) {
	if card == nil {
		return nil, fmt.Errorf("%w: agent card cannot be nil", ErrInvalidInput)
	}
	return NewClient(card.URL, opts...)
}

// URL returns the agent endpoint.
func (c *Client) URL() string {
	return c.url
}

// SendTask sends a task to the remote agent and waits for the result.
func (c *Client) SendTask(ctx context.Context, params *TaskSendParams) (*SendTaskResponse, error) {
	var response SendTaskResponse
	if err := c.call(ctx, MethodSendTask, params, &response); err != nil {
		return nil, fmt.Errorf("failed to send task: %w", err)
	}
	return &response, nil
}

// SendTaskStreaming sends a task and delivers every streamed event to handler.
// It returns once the stream ends, a final status arrives, the handler fails,
// or ctx is canceled.
func (c *Client) SendTaskStreaming(ctx context.Context, params *TaskSendParams, handler func(*SendTaskStreamingResponse) error) error {
	request := newRequest(MethodSendTaskSubscribe, params)

	reqBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := c.newHTTPRequest(ctx, reqBody)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return &HTTPError{StatusCode: httpResp.StatusCode, Body: string(body)}
	}

	contentType := httpResp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/event-stream") {
		// some agents answer a subscribe with a plain JSON-RPC error
		var response JSONRPCResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&response); err == nil && response.Error != nil {
			return response.Error
		}
		return fmt.Errorf("expected text/event-stream, got %s", contentType)
	}

	err = processSSEStream(ctx, httpResp.Body, handler)
	if errors.Is(err, errStreamDone) {
		return nil
	}
	return err
}

// GetTask retrieves task details by ID
func (c *Client) GetTask(ctx context.Context, params *TaskQueryParams) (*Task, error) {
	var response GetTaskResponse
	if err := c.call(ctx, MethodGetTask, params, &response); err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	return response.Result, nil
}

// CancelTask cancels a task by ID
func (c *Client) CancelTask(ctx context.Context, params *TaskIdParams) (*Task, error) {
	var response CancelTaskResponse
	if err := c.call(ctx, MethodCancelTask, params, &response); err != nil {
		return nil, fmt.Errorf("failed to cancel task: %w", err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	return response.Result, nil
}

// SetTaskPushNotification sets push notification config for a task
func (c *Client) SetTaskPushNotification(ctx context.Context, config *TaskPushNotificationConfig) (*TaskPushNotificationConfig, error) {
	var response TaskPushNotificationResponse
	if err := c.call(ctx, MethodSetTaskPushNotification, config, &response); err != nil {
		return nil, fmt.Errorf("failed to set push notification: %w", err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	return response.Result, nil
}

// GetTaskPushNotification gets push notification config for a task
func (c *Client) GetTaskPushNotification(ctx context.Context, params *TaskIdParams) (*TaskPushNotificationConfig, error) {
	var response TaskPushNotificationResponse
	if err := c.call(ctx, MethodGetTaskPushNotification, params, &response); err != nil {
		return nil, fmt.Errorf("failed to get push notification: %w", err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	return response.Result, nil
}

// call sends a JSON-RPC request and unmarshals the response
func (c *Client) call(ctx context.Context, method string, params any, response any) error {
	reqBody, err := json.Marshal(newRequest(method, params))
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := c.newHTTPRequest(ctx, reqBody)
	if err != nil {
		return err
	}

	slog.Debug("a2a request", "url", c.url, "method", method, "body", string(reqBody))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	slog.Debug("a2a response", "url", c.url, "method", method, "body", string(respBody))

	if err := json.Unmarshal(respBody, response); err != nil {
		return &JSONError{Op: "failed to unmarshal response", Err: err}
	}

	return nil
}

func (c *Client) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	return httpReq, nil
}

// processSSEStream processes Server-Sent Events from the response body
func processSSEStream(ctx context.Context, body io.Reader, handler func(*SendTaskStreamingResponse) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data strings.Builder

	dispatch := func() error {
		if data.Len() == 0 {
			return nil
		}
		payload := data.String()
		data.Reset()

		var response SendTaskStreamingResponse
		if err := json.Unmarshal([]byte(payload), &response); err != nil {
			slog.Warn("Failed to parse SSE data", "data", payload, "error", err)
			return nil
		}

		if err := handler(&response); err != nil {
			return fmt.Errorf("event handler error: %w", err)
		}

		if status := response.GetStatusUpdate(); status != nil && status.Final {
			return errStreamDone
		}
		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case line == "":
			if err := dispatch(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to read SSE stream: %w", err)
	}

	return dispatch()
}

func newRequest(method string, params any) *JSONRPCRequest {
	return &JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
}

func parseURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported url scheme %q", ErrInvalidInput, u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("%w: url %q has no host", ErrInvalidInput, rawURL)
	}

	return u.String(), nil
}
