package summarize

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexus-cloud/summarizer/internal/middleware"
	"github.com/nexus-cloud/summarizer/internal/pkg/response"
)

// Handler exposes the summarize operation over HTTP.
type Handler struct {
	svc            *Service
	requestTimeout time.Duration
}

// NewHandler builds the HTTP handler with the overall per-request deadline.
func NewHandler(svc *Service, requestTimeout time.Duration) *Handler {
	return &Handler{svc: svc, requestTimeout: requestTimeout}
}

// RegisterRoutes mounts the summarize endpoint behind the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mws ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, mws...), h.summarize)
	rg.POST("/summarize", handlers...)
}

type summarizeBody struct {
	Text      string `json:"text"`
	Content   string `json:"content"` // legacy alias for text
	Model     string `json:"model"`
	MaxLength int    `json:"max_length"`
}

func (h *Handler) summarize(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		response.Unauthorized(c, "")
		return
	}

	var body summarizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid JSON in request body")
		return
	}

	text := body.Text
	if strings.TrimSpace(text) == "" {
		text = body.Content
	}
	if strings.TrimSpace(text) == "" {
		response.BadRequest(c, "missing text to summarize")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.svc.Summarize(ctx, p, Request{
		Text:      text,
		Model:     body.Model,
		MaxLength: body.MaxLength,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{
		"summary": result.Summary,
		"cached":  result.Cached,
	})
}
