// Package api serves the browser UI of the A2A chat client.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/agent-protocol/a2a-chat/internal/chat"
)

// SessionCookie names the cookie that binds a browser to its chat session.
const SessionCookie = "a2a_chat_session"

// ServerConfig contains configuration for the web UI server
type ServerConfig struct {
	Host         string
	Port         int
	AllowOrigins []string

	// Stream enables streaming replies for agents that support it.
	Stream      bool
	TaskTimeout time.Duration
	CardTimeout time.Duration
	Headers     map[string]string

	// SessionIdleTTL drops browser sessions that have been idle this long.
	SessionIdleTTL time.Duration
}

// Server represents the web UI server
type Server struct {
	config   *ServerConfig
	router   *gin.Engine
	sessions *chat.Store
	upgrader websocket.Upgrader
}

// CardRequest asks the server to resolve an agent card.
type CardRequest struct {
	URL          string `json:"url"`
	UseWellKnown *bool  `json:"useWellKnown,omitempty"`
}

// ConnectRequest asks the server to connect the session to an agent.
type ConnectRequest struct {
	URL string `json:"url"`
}

// MessageRequest carries one user chat message.
type MessageRequest struct {
	Text string `json:"text"`
}

// MessagesResponse is the state of the browser's chat session.
type MessagesResponse struct {
	SessionID string            `json:"sessionId"`
	Connected bool              `json:"connected"`
	AgentURL  string            `json:"agentUrl,omitempty"`
	Streaming bool              `json:"streaming"`
	Card      *chat.CardSummary `json:"card,omitempty"`
	Messages  []chat.Entry      `json:"messages"`
}

// WSMessage is a frame on the /ws channel.
type WSMessage struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// NewServer creates a new web UI server instance
func NewServer(config *ServerConfig) (*Server, error) {
	if config == nil {
		return nil, errors.New("server config is required")
	}

	opts := chat.Options{
		Stream:      config.Stream,
		TaskTimeout: config.TaskTimeout,
		CardTimeout: config.CardTimeout,
		Headers:     config.Headers,
	}

	s := &Server{
		config:   config,
		sessions: chat.NewStore(opts, config.SessionIdleTTL),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r, config.AllowOrigins)
			},
		},
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger())

	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api", s.sessionMiddleware)
	api.POST("/card", s.handleResolveCard)
	api.POST("/connect", s.handleConnect)
	api.GET("/messages", s.handleListMessages)
	api.POST("/messages", s.handleSendMessage)
	api.POST("/messages/stream", s.handleSendMessageSSE)
	api.POST("/reset", s.handleReset)

	s.router.GET("/ws", s.sessionMiddleware, s.handleWebSocket)

	s.SetupWebRoutes()
}

// Handler returns the router wrapped with CORS handling. Cross-origin
// requests are allowed from the configured origins only, the same policy
// the websocket upgrader applies.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowOriginRequestFunc: func(r *http.Request, origin string) bool {
			return originAllowed(r, s.config.AllowOrigins)
		},
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})
	return c.Handler(s.router)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sessions.Run(sweepCtx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting A2A chat web UI", "address", "http://"+address, "stream", s.config.Stream)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Shutting down web UI")
		return srv.Shutdown(shutdownCtx)
	}
}

// sessionMiddleware attaches the browser's chat session to the request.
func (s *Server) sessionMiddleware(c *gin.Context) {
	key, err := c.Cookie(SessionCookie)
	if err != nil || key == "" {
		key = uuid.NewString()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, key, 0, "/", "", false, true)
	}
	c.Set(SessionCookie, s.sessions.Get(key))
	c.Next()
}

func session(c *gin.Context) *chat.Session {
	return c.MustGet(SessionCookie).(*chat.Session)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *Server) handleResolveCard(c *gin.Context) {
	var req CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &chat.UIError{Kind: chat.KindInvalidInput, Message: "Invalid input: " + err.Error()})
		return
	}

	useWellKnown := true
	if req.UseWellKnown != nil {
		useWellKnown = *req.UseWellKnown
	}

	summary, err := session(c).ResolveCard(c.Request.Context(), req.URL, useWellKnown)
	if err != nil {
		uiErr := chat.DescribeCardError(err)
		slog.Warn("Agent card resolution failed", "url", req.URL, "error", err)
		c.JSON(statusFor(uiErr.Kind), uiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"card": summary})
}

func (s *Server) handleConnect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &chat.UIError{Kind: chat.KindInvalidInput, Message: "Invalid input: " + err.Error()})
		return
	}

	if err := session(c).Connect(req.URL); err != nil {
		uiErr := chat.DescribeConnectError(err)
		c.JSON(statusFor(uiErr.Kind), uiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (s *Server) handleListMessages(c *gin.Context) {
	sess := session(c)

	resp := MessagesResponse{
		SessionID: sess.ID(),
		Connected: sess.Connected(),
		AgentURL:  sess.AgentURL(),
		Streaming: sess.Streaming(),
		Messages:  sess.Messages(),
	}
	if card := sess.Card(); card != nil {
		resp.Card = chat.Summarize(card)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &chat.UIError{Kind: chat.KindInvalidInput, Message: "Invalid input: " + err.Error()})
		return
	}

	reply, err := session(c).Send(c.Request.Context(), req.Text, nil)
	if err != nil {
		uiErr := chat.DescribeSendError(err)
		slog.Warn("Sending message failed", "error", err)
		c.JSON(statusFor(uiErr.Kind), uiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// handleSendMessageSSE streams the reply as Server-Sent Events:
// "update" carries the text so far, "done" the final reply, "error" a failure.
func (s *Server) handleSendMessageSSE(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &chat.UIError{Kind: chat.KindInvalidInput, Message: "Invalid input: " + err.Error()})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	reply, err := session(c).Send(c.Request.Context(), req.Text, func(text string) {
		c.SSEvent("update", WSMessage{Text: text})
		c.Writer.Flush()
	})
	if err != nil {
		c.SSEvent("error", chat.DescribeSendError(err))
		c.Writer.Flush()
		return
	}

	c.SSEvent("done", WSMessage{Text: reply})
	c.Writer.Flush()
}

func (s *Server) handleReset(c *gin.Context) {
	session(c).Reset()
	c.Status(http.StatusNoContent)
}

// handleWebSocket runs one chat message per text frame until the socket closes.
func (s *Server) handleWebSocket(c *gin.Context) {
	// the upgrade response only carries the headers passed here
	var header http.Header
	if cookies := c.Writer.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		slog.Warn("Failed to upgrade WebSocket connection", "error", err)
		return
	}
	defer conn.Close()

	sess := session(c)
	ctx := c.Request.Context()

	for {
		var in WSMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read failed", "error", err)
			}
			return
		}

		reply, err := sess.Send(ctx, in.Text, func(text string) {
			if err := conn.WriteJSON(WSMessage{Type: "update", Text: text}); err != nil {
				slog.Debug("WebSocket write failed", "error", err)
			}
		})

		out := WSMessage{Type: "done", Text: reply}
		if err != nil {
			out = WSMessage{Type: "error", Text: chat.DescribeSendError(err).Message}
		}
		if err := conn.WriteJSON(out); err != nil {
			slog.Debug("WebSocket write failed", "error", err)
			return
		}
	}
}

func statusFor(kind chat.ErrorKind) int {
	switch kind {
	case chat.KindInvalidInput:
		return http.StatusBadRequest
	case chat.KindNotConnected:
		return http.StatusConflict
	case chat.KindCardError, chat.KindAgentError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// originAllowed accepts same-origin sockets and the configured CORS origins.
func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
