package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driving"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

// Ensure InsightService implements the interface.
var _ driving.InsightService = (*InsightService)(nil)

// CorpusReader is the read side of the index used for corpus reports.
type CorpusReader interface {
	Messages() []domain.Message
	Lookup(ids ...string) []domain.Message
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// InsightService computes analytics and threat reports over the index.
type InsightService struct {
	corpus     CorpusReader
	classifier *Classifier
	detector   *ThreatDetector
}

// NewInsightService creates an insight service.
func NewInsightService(corpus CorpusReader, classifier *Classifier, detector *ThreatDetector) *InsightService {
	return &InsightService{corpus: corpus, classifier: classifier, detector: detector}
}

// Analytics summarises the published index.
func (s *InsightService) Analytics() domain.CorpusAnalytics {
	messages := s.corpus.Messages()
	return Analyze(messages, s.classifier.Classify(messages))
}

// ScanThreats analyses the whole index, or the messages matching query,
// and returns them most dangerous first.
func (s *InsightService) ScanThreats(ctx context.Context, query string, limit int) (*domain.ThreatReport, error) {
	if limit > domain.MaxThreatScanLimit {
		return nil, &domain.ValidationError{
			Field:  "limit",
			Reason: fmt.Sprintf("must be at most %d", domain.MaxThreatScanLimit),
		}
	}
	if limit <= 0 {
		limit = domain.DefaultThreatScanLimit
	}

	query = strings.TrimSpace(query)
	var messages []domain.Message
	if query == "" {
		messages = s.corpus.Messages()
		if len(messages) > limit {
			messages = messages[:limit]
		}
	} else {
		results, err := s.corpus.Search(ctx, query, min(limit, domain.MaxTopK))
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		ids := make([]string, len(results))
		for i := range results {
			ids[i] = results[i].MessageID
		}
		messages = s.corpus.Lookup(ids...)
	}

	report := s.detector.Report(query, messages)
	logger.Debug("Threat scan %q: %d analysed, %d critical", query, report.Analyzed, report.Counts[domain.ThreatCritical])
	return report, nil
}
