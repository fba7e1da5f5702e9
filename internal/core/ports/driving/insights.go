package driving

import (
	"context"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// InsightService reports on the indexed corpus as a whole.
type InsightService interface {
	// Analytics summarises senders, classes, timeline and threads of the
	// published index.
	Analytics() domain.CorpusAnalytics

	// ScanThreats analyses up to limit messages for phishing and spoofing.
	// A blank query scans the whole index; otherwise the messages most
	// similar to query are scanned. A non-positive limit uses
	// domain.DefaultThreatScanLimit.
	ScanThreats(ctx context.Context, query string, limit int) (*domain.ThreatReport, error)
}
