package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// SearchResponse is the response for a semantic search.
type SearchResponse struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`
	Count   int                   `json:"count"`
}

// Search runs a semantic search over the index.
// GET /v1/search?q=&top_k=
func (h *Handler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return respondError(c, &domain.ValidationError{Field: "q", Reason: "must not be empty"})
	}

	topK := h.defaultTopK
	if raw := c.QueryParam("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > domain.MaxTopK {
			return respondError(c, &domain.ValidationError{
				Field:  "top_k",
				Reason: "must be an integer between 1 and " + strconv.Itoa(domain.MaxTopK),
			})
		}
		topK = n
	}

	results, err := h.index.Search(c.Request().Context(), query, topK)
	if err != nil {
		return respondError(c, err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: query, Results: results, Count: len(results)})
}

// RefreshIndex reloads the message source and rebuilds the index.
// POST /v1/index/refresh
func (h *Handler) RefreshIndex(c echo.Context) error {
	stats, err := h.index.Refresh(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
