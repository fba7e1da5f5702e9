package domain

// Category is the topical class of a message.
type Category string

// Available categories. CategoryGeneral is assigned when no keyword matches.
const (
	CategoryUrgent       Category = "urgent"
	CategorySecurity     Category = "security"
	CategoryFinancial    Category = "financial"
	CategoryWork         Category = "work"
	CategorySocial       Category = "social"
	CategoryNotification Category = "notification"
	CategoryNewsletter   Category = "newsletter"
	CategoryPersonal     Category = "personal"
	CategoryGeneral      Category = "general"
)

// CategoryOrder is the fixed tie-break ordering, highest precedence first.
func CategoryOrder() []Category {
	return []Category{
		CategoryUrgent,
		CategorySecurity,
		CategoryFinancial,
		CategoryWork,
		CategorySocial,
		CategoryNotification,
		CategoryNewsletter,
		CategoryPersonal,
	}
}

// IsValid returns true if the category is recognised.
func (c Category) IsValid() bool {
	if c == CategoryGeneral {
		return true
	}
	for _, known := range CategoryOrder() {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Priority is the urgency level of a message.
type Priority string

// Available priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Boost maps a priority to the ranking boost in [0,1].
func (p Priority) Boost() float64 {
	switch p {
	case PriorityHigh:
		return 1.0
	case PriorityMedium:
		return 0.5
	default:
		return 0
	}
}

// String returns the string representation.
func (p Priority) String() string {
	return string(p)
}

// Sentiment is the polarity of a message.
type Sentiment string

// Available sentiments.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// String returns the string representation.
func (s Sentiment) String() string {
	return string(s)
}

// Classification is the category, priority and sentiment of one message.
// It is a pure function of the message content.
type Classification struct {
	MessageID string    `json:"message_id"`
	Category  Category  `json:"category"`
	Priority  Priority  `json:"priority"`
	Sentiment Sentiment `json:"sentiment"`

	// Confidence values are bounded in [0,1].
	CategoryConfidence  float64 `json:"category_confidence"`
	PriorityConfidence  float64 `json:"priority_confidence"`
	SentimentConfidence float64 `json:"sentiment_confidence"`

	IsReply   bool     `json:"is_reply"`
	IsForward bool     `json:"is_forward"`
	Tags      []string `json:"tags,omitempty"`
}

// RankedCandidate is a search hit merged with its classification.
type RankedCandidate struct {
	Result         SearchResult   `json:"result"`
	Classification Classification `json:"classification"`

	// CombinedScore is the weighted sum of similarity and priority boost.
	CombinedScore float64 `json:"combined_score"`
}

// Intent is the kind of question being asked.
type Intent string

// Available intents.
const (
	IntentSearch         Intent = "search"
	IntentSummarization  Intent = "summarization"
	IntentAnalysis       Intent = "analysis"
	IntentTemporalSearch Intent = "temporal_search"
	IntentUnknown        Intent = "unknown"
)

// IntentResult is the outcome of intent detection.
type IntentResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`

	// LowConfidence is set when the question was too ambiguous to classify.
	LowConfidence bool `json:"low_confidence"`

	// Query is the retrieval query, possibly expanded with related terms.
	Query string `json:"query"`

	// Expansions lists the terms appended to the question.
	Expansions []string `json:"expansions,omitempty"`
}
