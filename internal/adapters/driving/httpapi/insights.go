package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// Analytics summarises the indexed corpus.
// GET /v1/analytics
func (h *Handler) Analytics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.insights.Analytics())
}

// ScanThreats reports phishing and spoofing indicators.
// GET /v1/security/threats?q=&limit=
func (h *Handler) ScanThreats(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return respondError(c, &domain.ValidationError{
				Field:  "limit",
				Reason: "must be an integer between 1 and " + strconv.Itoa(domain.MaxThreatScanLimit),
			})
		}
		limit = n
	}

	report, err := h.insights.ScanThreats(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
