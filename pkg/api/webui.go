package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/*
var staticFiles embed.FS

// WebUIHandler serves the embedded browser UI
type WebUIHandler struct {
	files fs.FS
}

// NewWebUIHandler creates a new web UI handler
func NewWebUIHandler() *WebUIHandler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return &WebUIHandler{files: sub}
}

// HandleIndex serves the main web UI page
func (w *WebUIHandler) HandleIndex(c *gin.Context) {
	page, err := fs.ReadFile(w.files, "index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "Template error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// SetupWebRoutes adds web UI routes to the server
func (s *Server) SetupWebRoutes() {
	webUI := NewWebUIHandler()

	s.router.GET("/", webUI.HandleIndex)
	s.router.StaticFS("/static", http.FS(webUI.files))
}
