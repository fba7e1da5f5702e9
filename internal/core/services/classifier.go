package services

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

const maxTags = 10

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// Classifier assigns category, priority and sentiment to messages and
// ranks search results. It holds no mutable state; Classify is a pure
// function of the message content.
type Classifier struct {
	rules            domain.ClassificationRules
	similarityWeight float64
	priorityWeight   float64
}

// NewClassifier creates a classifier over an immutable copy of rules.
func NewClassifier(rules domain.ClassificationRules, pipeline domain.PipelineSettings) *Classifier {
	rules = rules.Clone()
	lowerTerms(rules)
	return &Classifier{
		rules:            rules,
		similarityWeight: pipeline.SimilarityWeight,
		priorityWeight:   pipeline.PriorityWeight,
	}
}

func lowerTerms(r domain.ClassificationRules) {
	for i := range r.Categories {
		for j := range r.Categories[i].Terms {
			r.Categories[i].Terms[j].Term = strings.ToLower(r.Categories[i].Terms[j].Term)
		}
	}
	for _, list := range [][]string{
		r.Priority.HighTerms, r.Priority.MediumTerms, r.Priority.LowTerms,
		r.Sentiment.Positive, r.Sentiment.Negative,
	} {
		for i := range list {
			list[i] = strings.ToLower(list[i])
		}
	}
}

// Rules returns a copy of the classifier's rules.
func (c *Classifier) Rules() domain.ClassificationRules {
	return c.rules.Clone()
}

// Classify classifies each message, in input order.
func (c *Classifier) Classify(messages []domain.Message) []domain.Classification {
	out := make([]domain.Classification, len(messages))
	for i := range messages {
		out[i] = c.ClassifyMessage(&messages[i])
	}
	return out
}

// ClassifyMessage classifies a single message.
func (c *Classifier) ClassifyMessage(msg *domain.Message) domain.Classification {
	text := strings.ToLower(msg.Subject + " " + msg.Body)

	category, categoryConf := c.category(text)
	priority, priorityConf := c.priority(text, msg.Subject)
	sentiment, sentimentConf := c.sentiment(text)

	return domain.Classification{
		MessageID:           msg.ID,
		Category:            category,
		Priority:            priority,
		Sentiment:           sentiment,
		CategoryConfidence:  categoryConf,
		PriorityConfidence:  priorityConf,
		SentimentConfidence: sentimentConf,
		IsReply:             hasPrefixFold(msg.Subject, "re:"),
		IsForward:           hasPrefixFold(msg.Subject, "fwd:") || hasPrefixFold(msg.Subject, "fw:"),
		Tags:                hashtags(text),
	}
}

// category picks the highest cumulative keyword weight. Rules are scanned in
// CategoryOrder so that ties resolve to the higher-precedence category.
func (c *Classifier) category(text string) (domain.Category, float64) {
	scores := make(map[domain.Category]float64, len(c.rules.Categories))
	var total float64
	for _, rule := range c.rules.Categories {
		for _, t := range rule.Terms {
			if strings.Contains(text, t.Term) {
				scores[rule.Category] += t.Weight
				total += t.Weight
			}
		}
	}

	best := domain.CategoryGeneral
	var bestScore float64
	for _, cat := range domain.CategoryOrder() {
		if s := scores[cat]; s > bestScore {
			best, bestScore = cat, s
		}
	}
	if best == domain.CategoryGeneral {
		return best, 0.5
	}
	return best, clamp01(bestScore / total)
}

func (c *Classifier) priority(text, subject string) (domain.Priority, float64) {
	p := c.rules.Priority
	var score float64
	for _, t := range p.HighTerms {
		if strings.Contains(text, t) {
			score += p.HighWeight
		}
	}
	for _, t := range p.MediumTerms {
		if strings.Contains(text, t) {
			score += p.MediumWeight
		}
	}
	for _, t := range p.LowTerms {
		if strings.Contains(text, t) {
			score += p.LowWeight
		}
	}
	if isUpper(subject) && len([]rune(subject)) > p.CapsSubjectMinLen {
		score += p.CapsSubjectWeight
	}
	if p.ExclamationMin > 0 && strings.Count(text, "!") >= p.ExclamationMin {
		score += p.ExclamationWeight
	}

	switch {
	case score >= p.HighThreshold:
		return domain.PriorityHigh, margin(score, p.HighThreshold, p.HighThreshold)
	case score >= p.MediumThreshold:
		return domain.PriorityMedium, margin(score, p.MediumThreshold, p.HighThreshold-p.MediumThreshold)
	default:
		return domain.PriorityLow, margin(p.MediumThreshold, score, p.HighThreshold-p.MediumThreshold)
	}
}

func (c *Classifier) sentiment(text string) (domain.Sentiment, float64) {
	s := c.rules.Sentiment
	var pos, neg float64
	for _, w := range s.Positive {
		if strings.Contains(text, w) {
			pos++
		}
	}
	for _, w := range s.Negative {
		if strings.Contains(text, w) {
			neg++
		}
	}

	polarity := pos - neg
	hits := pos + neg
	switch {
	case polarity >= s.PositiveThreshold:
		return domain.SentimentPositive, clamp01(polarity / hits)
	case polarity <= s.NegativeThreshold:
		return domain.SentimentNegative, clamp01(-polarity / hits)
	case hits == 0:
		return domain.SentimentNeutral, 0.5
	default:
		return domain.SentimentNeutral, clamp01(1 - math.Abs(polarity)/hits)
	}
}

// Rank merges search results with their classifications, scores them, and
// returns at most limit candidates. The sort is stable so equal scores keep
// the search order. A non-positive limit keeps every candidate.
func (c *Classifier) Rank(
	results []domain.SearchResult, classifications []domain.Classification, limit int,
) []domain.RankedCandidate {
	byID := make(map[string]domain.Classification, len(classifications))
	for _, cl := range classifications {
		byID[cl.MessageID] = cl
	}

	ranked := make([]domain.RankedCandidate, 0, len(results))
	for _, r := range results {
		cl, ok := byID[r.MessageID]
		if !ok {
			cl = domain.Classification{
				MessageID: r.MessageID,
				Category:  domain.CategoryGeneral,
				Priority:  domain.PriorityLow,
				Sentiment: domain.SentimentNeutral,
			}
		}
		ranked = append(ranked, domain.RankedCandidate{
			Result:         r,
			Classification: cl,
			CombinedScore:  c.CombinedScore(r.Score, cl.Priority),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedScore > ranked[j].CombinedScore
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// CombinedScore is the weighted sum of similarity and the priority boost.
func (c *Classifier) CombinedScore(similarity float64, priority domain.Priority) float64 {
	return clamp01(c.similarityWeight*similarity + c.priorityWeight*priority.Boost())
}

// margin maps the distance above a threshold into a confidence in [0.5, 1].
func margin(value, threshold, span float64) float64 {
	if span <= 0 {
		span = 1
	}
	return clamp01(0.5 + 0.5*(value-threshold)/span)
}

// isUpper reports whether s has at least one cased letter and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func hasPrefixFold(s, prefix string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var tags []string
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}
