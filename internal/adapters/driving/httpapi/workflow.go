package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// ExecuteRequest is the request to run the workflow.
// TopK is a pointer so that an omitted value can be told apart from zero.
type ExecuteRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k,omitempty"`
}

// ListExecutionsResponse is the response for listing executions.
type ListExecutionsResponse struct {
	Executions []domain.ExecutionSummary `json:"executions"`
	Count      int                       `json:"count"`
}

// Execute runs the workflow for a question.
// POST /v1/workflow/execute
//
// A valid request always returns 200 with the execution record, including
// partial executions whose answer step failed.
func (h *Handler) Execute(c echo.Context) error {
	ctx := c.Request().Context()

	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	topK := h.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	exec, err := h.workflow.Invoke(ctx, domain.InvokeRequest{Question: req.Question, TopK: topK})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, exec)
}

// GetExecution returns a stored execution.
// GET /v1/executions/:id
func (h *Handler) GetExecution(c echo.Context) error {
	exec, err := h.workflow.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, exec)
}

// ListExecutions returns recent execution summaries, newest first.
// GET /v1/executions?limit=
func (h *Handler) ListExecutions(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return respondError(c, &domain.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
		}
		limit = n
	}

	summaries, err := h.workflow.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	if summaries == nil {
		summaries = []domain.ExecutionSummary{}
	}
	return c.JSON(http.StatusOK, ListExecutionsResponse{Executions: summaries, Count: len(summaries)})
}
