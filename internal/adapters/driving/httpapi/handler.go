// Package httpapi exposes the workflow and index over HTTP using echo.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driving"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

// Handler handles HTTP requests.
type Handler struct {
	workflow    driving.WorkflowService
	index       driving.IndexService
	insights    driving.InsightService
	defaultTopK int
	version     string
}

// NewHandler creates a new handler. A non-positive defaultTopK uses
// domain.DefaultTopK for requests that omit top_k.
func NewHandler(workflow driving.WorkflowService, index driving.IndexService, defaultTopK int, version string) *Handler {
	if defaultTopK <= 0 {
		defaultTopK = domain.DefaultTopK
	}
	return &Handler{
		workflow:    workflow,
		index:       index,
		defaultTopK: defaultTopK,
		version:     version,
	}
}

// WithInsights enables the analytics and threat scan routes.
func (h *Handler) WithInsights(insights driving.InsightService) *Handler {
	h.insights = insights
	return h
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")

	v1.POST("/workflow/execute", h.Execute)
	v1.GET("/executions", h.ListExecutions)
	v1.GET("/executions/:id", h.GetExecution)

	v1.GET("/search", h.Search)
	v1.POST("/index/refresh", h.RefreshIndex)

	if h.insights != nil {
		v1.GET("/analytics", h.Analytics)
		v1.GET("/security/threats", h.ScanThreats)
	}

	e.GET("/health", h.Health)
}

// Health returns health status and the published index size.
func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{
		"status":  "healthy",
		"version": h.version,
	}
	if h.index != nil {
		stats := h.index.Stats()
		body["index"] = map[string]any{
			"messages": stats.Messages,
			"chunks":   stats.Chunks,
			"built_at": stats.BuiltAt,
		}
	}
	return c.JSON(http.StatusOK, body)
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError maps domain errors onto status codes.
func respondError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSourceUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		logger.Error("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
