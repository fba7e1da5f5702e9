package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

func newTestClassifier() *Classifier {
	return NewClassifier(domain.DefaultClassificationRules(), domain.DefaultPipelineSettings())
}

func TestClassifier_Classify_SampleCorpus(t *testing.T) {
	got := newTestClassifier().Classify(sampleCorpus())
	require.Len(t, got, 5)

	want := []struct {
		id        string
		category  domain.Category
		priority  domain.Priority
		sentiment domain.Sentiment
	}{
		{"email_001", domain.CategoryUrgent, domain.PriorityHigh, domain.SentimentNeutral},
		{"email_002", domain.CategoryFinancial, domain.PriorityLow, domain.SentimentNeutral},
		{"email_003", domain.CategorySocial, domain.PriorityLow, domain.SentimentPositive},
		{"email_004", domain.CategoryNewsletter, domain.PriorityLow, domain.SentimentNeutral},
		{"email_005", domain.CategorySecurity, domain.PriorityHigh, domain.SentimentNeutral},
	}
	for i, w := range want {
		t.Run(w.id, func(t *testing.T) {
			assert.Equal(t, w.id, got[i].MessageID)
			assert.Equal(t, w.category, got[i].Category)
			assert.Equal(t, w.priority, got[i].Priority)
			assert.Equal(t, w.sentiment, got[i].Sentiment)
		})
	}
}

func TestClassifier_ConfidencesBounded(t *testing.T) {
	for _, c := range newTestClassifier().Classify(sampleCorpus()) {
		for _, v := range []float64{c.CategoryConfidence, c.PriorityConfidence, c.SentimentConfidence} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestClassifier_Idempotent(t *testing.T) {
	c := newTestClassifier()
	corpus := sampleCorpus()

	first := c.Classify(corpus)
	second := c.Classify(corpus)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Classify not idempotent (-first +second):\n%s", diff)
	}
}

func TestClassifier_GeneralWhenNoKeywords(t *testing.T) {
	got := newTestClassifier().ClassifyMessage(&domain.Message{ID: "m", Subject: "lunch", Body: "sandwiches at noon"})
	assert.Equal(t, domain.CategoryGeneral, got.Category)
	assert.Equal(t, domain.PriorityLow, got.Priority)
	assert.Equal(t, domain.SentimentNeutral, got.Sentiment)
}

func TestClassifier_CategoryTieBreak(t *testing.T) {
	rules := domain.DefaultClassificationRules()
	rules.Categories = []domain.CategoryRule{
		{Category: domain.CategoryWork, Terms: []domain.WeightedTerm{{Term: "meeting", Weight: 2}}},
		{Category: domain.CategoryFinancial, Terms: []domain.WeightedTerm{{Term: "invoice", Weight: 2}}},
	}
	c := NewClassifier(rules, domain.DefaultPipelineSettings())

	got := c.ClassifyMessage(&domain.Message{ID: "m", Body: "meeting about the invoice"})
	assert.Equal(t, domain.CategoryFinancial, got.Category, "financial precedes work")
	assert.InDelta(t, 0.5, got.CategoryConfidence, 1e-9)
}

func TestClassifier_RulesAreCaseInsensitiveAndCopied(t *testing.T) {
	rules := domain.DefaultClassificationRules()
	rules.Categories = []domain.CategoryRule{
		{Category: domain.CategoryPersonal, Terms: []domain.WeightedTerm{{Term: "Grandma", Weight: 1}}},
	}
	c := NewClassifier(rules, domain.DefaultPipelineSettings())
	rules.Categories[0].Terms[0].Term = "changed"

	got := c.ClassifyMessage(&domain.Message{ID: "m", Body: "Visiting grandma on Sunday"})
	assert.Equal(t, domain.CategoryPersonal, got.Category)
	assert.Equal(t, "grandma", c.Rules().Categories[0].Terms[0].Term)
}

func TestClassifier_Priority(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    domain.Priority
	}{
		{name: "low terms", body: "fyi update", want: domain.PriorityLow},
		{name: "one medium term", body: "please review", want: domain.PriorityMedium},
		{name: "one high term", body: "this is urgent", want: domain.PriorityMedium},
		{name: "high plus medium", body: "urgent review", want: domain.PriorityHigh},
		{name: "caps subject", subject: "PLEASE READ NOW", body: "thanks", want: domain.PriorityMedium},
		{name: "short caps subject", subject: "HELLO", body: "thanks", want: domain.PriorityLow},
		{name: "exclamations", body: "please review!!", want: domain.PriorityMedium},
		{name: "exclamations tip over", body: "urgent soon!!", want: domain.PriorityHigh},
		{name: "single exclamation", body: "hello!", want: domain.PriorityLow},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ClassifyMessage(&domain.Message{ID: "m", Subject: tt.subject, Body: tt.body})
			assert.Equal(t, tt.want, got.Priority)
		})
	}
}

func TestClassifier_Sentiment(t *testing.T) {
	tests := []struct {
		body string
		want domain.Sentiment
	}{
		{"thank you, great work", domain.SentimentPositive},
		{"there is a problem and an error", domain.SentimentNegative},
		{"great but there is a problem", domain.SentimentNeutral},
		{"the meeting moved to noon", domain.SentimentNeutral},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got := c.ClassifyMessage(&domain.Message{ID: "m", Body: tt.body})
			assert.Equal(t, tt.want, got.Sentiment)
		})
	}
}

func TestClassifier_ReplyForwardAndTags(t *testing.T) {
	c := newTestClassifier()

	reply := c.ClassifyMessage(&domain.Message{ID: "a", Subject: "RE: budget", Body: "see #Q3 and #budget #q3"})
	assert.True(t, reply.IsReply)
	assert.False(t, reply.IsForward)
	assert.Equal(t, []string{"budget", "q3"}, reply.Tags)

	fwd := c.ClassifyMessage(&domain.Message{ID: "b", Subject: "Fw: slides", Body: "attached"})
	assert.True(t, fwd.IsForward)
	assert.False(t, fwd.IsReply)
	assert.Empty(t, fwd.Tags)
}

func TestClassifier_Rank(t *testing.T) {
	results := []domain.SearchResult{
		{MessageID: "r1", Score: 0.9},
		{MessageID: "r2", Score: 0.7},
		{MessageID: "r3", Score: 0.8},
		{MessageID: "r4", Score: 0.5},
		{MessageID: "r5", Score: 0.9},
	}
	classifications := []domain.Classification{
		{MessageID: "r1", Priority: domain.PriorityLow},
		{MessageID: "r2", Priority: domain.PriorityHigh},
		{MessageID: "r3", Priority: domain.PriorityMedium},
		{MessageID: "r4", Priority: domain.PriorityMedium},
	}

	c := newTestClassifier()
	ranked := c.Rank(results, classifications, 0)

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Result.MessageID
	}
	if diff := cmp.Diff([]string{"r2", "r3", "r1", "r5", "r4"}, ids); diff != "" {
		t.Errorf("rank order mismatch (-want +got):\n%s", diff)
	}

	assert.InDelta(t, 0.76, ranked[0].CombinedScore, 1e-9)
	assert.Equal(t, domain.PriorityLow, ranked[3].Classification.Priority, "missing classification defaults to low")
	assert.Equal(t, "r5", ranked[3].Classification.MessageID)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].CombinedScore, ranked[i].CombinedScore)
	}
}

func TestClassifier_RankTruncatesAndHandlesEmpty(t *testing.T) {
	c := newTestClassifier()
	results := []domain.SearchResult{{MessageID: "a", Score: 0.9}, {MessageID: "b", Score: 0.8}, {MessageID: "c", Score: 0.1}}

	assert.Len(t, c.Rank(results, nil, 2), 2)

	empty := c.Rank(nil, nil, 5)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestClassifier_CombinedScoreWeights(t *testing.T) {
	p := domain.DefaultPipelineSettings()
	p.SimilarityWeight = 0.5
	p.PriorityWeight = 0.5
	c := NewClassifier(domain.DefaultClassificationRules(), p)

	assert.InDelta(t, 0.75, c.CombinedScore(0.5, domain.PriorityHigh), 1e-9)
	assert.InDelta(t, 0.25, c.CombinedScore(0.5, domain.PriorityLow), 1e-9)
	assert.InDelta(t, 1.0, c.CombinedScore(1.5, domain.PriorityHigh), 1e-9)
}
