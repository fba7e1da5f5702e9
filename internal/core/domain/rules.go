package domain

import "fmt"

// WeightedTerm is a keyword and the weight it contributes when present.
type WeightedTerm struct {
	Term   string  `yaml:"term" json:"term"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// CategoryRule maps a category to its weighted keyword set.
type CategoryRule struct {
	Category Category       `yaml:"category" json:"category"`
	Terms    []WeightedTerm `yaml:"terms" json:"terms"`
}

// PriorityRules configures the weighted priority signal and its thresholds.
type PriorityRules struct {
	HighTerms   []string `yaml:"high_terms" json:"high_terms"`
	MediumTerms []string `yaml:"medium_terms" json:"medium_terms"`
	LowTerms    []string `yaml:"low_terms" json:"low_terms"`

	HighWeight   float64 `yaml:"high_weight" json:"high_weight"`
	MediumWeight float64 `yaml:"medium_weight" json:"medium_weight"`
	LowWeight    float64 `yaml:"low_weight" json:"low_weight"`

	// CapsSubjectWeight is added when the subject is entirely upper case
	// and longer than CapsSubjectMinLen.
	CapsSubjectWeight float64 `yaml:"caps_subject_weight" json:"caps_subject_weight"`
	CapsSubjectMinLen int     `yaml:"caps_subject_min_len" json:"caps_subject_min_len"`

	// ExclamationWeight is added when the text has at least ExclamationMin '!'.
	ExclamationWeight float64 `yaml:"exclamation_weight" json:"exclamation_weight"`
	ExclamationMin    int     `yaml:"exclamation_min" json:"exclamation_min"`

	HighThreshold   float64 `yaml:"high_threshold" json:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold" json:"medium_threshold"`
}

// SentimentRules configures lexicon-based polarity scoring.
// Polarity is the positive hit count minus the negative hit count.
type SentimentRules struct {
	Positive []string `yaml:"positive" json:"positive"`
	Negative []string `yaml:"negative" json:"negative"`

	PositiveThreshold float64 `yaml:"positive_threshold" json:"positive_threshold"`
	NegativeThreshold float64 `yaml:"negative_threshold" json:"negative_threshold"`
}

// ClassificationRules is the complete keyword configuration of the
// classification engine. It is loaded once and never mutated; consumers
// take a Clone.
type ClassificationRules struct {
	Categories []CategoryRule `yaml:"categories" json:"categories"`
	Priority   PriorityRules  `yaml:"priority" json:"priority"`
	Sentiment  SentimentRules `yaml:"sentiment" json:"sentiment"`
}

// Validate checks that every category is known and thresholds are ordered.
func (r *ClassificationRules) Validate() error {
	if len(r.Categories) == 0 {
		return &ValidationError{Field: "categories", Reason: "at least one category rule is required"}
	}
	for _, c := range r.Categories {
		if !c.Category.IsValid() || c.Category == CategoryGeneral {
			return &ValidationError{Field: "categories", Reason: fmt.Sprintf("unknown category %q", c.Category)}
		}
		for _, t := range c.Terms {
			if t.Term == "" || t.Weight <= 0 {
				return &ValidationError{
					Field:  "categories",
					Reason: fmt.Sprintf("category %q has an empty term or non-positive weight", c.Category),
				}
			}
		}
	}
	if r.Priority.HighThreshold <= r.Priority.MediumThreshold {
		return &ValidationError{Field: "priority", Reason: "high_threshold must exceed medium_threshold"}
	}
	if r.Sentiment.PositiveThreshold <= r.Sentiment.NegativeThreshold {
		return &ValidationError{Field: "sentiment", Reason: "positive_threshold must exceed negative_threshold"}
	}
	return nil
}

// Clone returns a deep copy.
func (r ClassificationRules) Clone() ClassificationRules {
	out := r
	out.Categories = make([]CategoryRule, len(r.Categories))
	for i, c := range r.Categories {
		out.Categories[i] = CategoryRule{
			Category: c.Category,
			Terms:    append([]WeightedTerm(nil), c.Terms...),
		}
	}
	out.Priority.HighTerms = append([]string(nil), r.Priority.HighTerms...)
	out.Priority.MediumTerms = append([]string(nil), r.Priority.MediumTerms...)
	out.Priority.LowTerms = append([]string(nil), r.Priority.LowTerms...)
	out.Sentiment.Positive = append([]string(nil), r.Sentiment.Positive...)
	out.Sentiment.Negative = append([]string(nil), r.Sentiment.Negative...)
	return out
}

func terms(weight float64, words ...string) []WeightedTerm {
	out := make([]WeightedTerm, len(words))
	for i, w := range words {
		out[i] = WeightedTerm{Term: w, Weight: weight}
	}
	return out
}

// DefaultClassificationRules returns the built-in keyword configuration.
func DefaultClassificationRules() ClassificationRules {
	return ClassificationRules{
		Categories: []CategoryRule{
			{Category: CategoryUrgent, Terms: terms(3,
				"urgent", "asap", "immediately", "critical", "emergency", "important", "priority")},
			{Category: CategorySecurity, Terms: terms(2,
				"security", "vulnerability", "breach", "alert", "warning", "threat", "patch", "cve")},
			{Category: CategoryFinancial, Terms: terms(2,
				"invoice", "payment", "bill", "receipt", "transaction", "cost", "budget", "expense")},
			{Category: CategoryWork, Terms: terms(1,
				"meeting", "project", "deadline", "task", "report", "presentation", "team", "client")},
			{Category: CategorySocial, Terms: terms(1,
				"invitation", "event", "party", "celebration", "gathering", "meetup")},
			{Category: CategoryNotification, Terms: terms(1,
				"notification", "alert", "reminder", "update", "status", "confirmation")},
			{Category: CategoryNewsletter, Terms: terms(1,
				"newsletter", "digest", "weekly", "monthly", "subscription", "unsubscribe")},
			{Category: CategoryPersonal, Terms: terms(1,
				"personal", "private", "family", "friend", "vacation", "holiday")},
		},
		Priority: PriorityRules{
			HighTerms:         []string{"urgent", "asap", "critical", "emergency", "immediately", "deadline"},
			MediumTerms:       []string{"important", "soon", "priority", "attention", "review"},
			LowTerms:          []string{"fyi", "info", "update", "newsletter", "digest"},
			HighWeight:        3,
			MediumWeight:      2,
			LowWeight:         -1,
			CapsSubjectWeight: 2,
			CapsSubjectMinLen: 5,
			ExclamationWeight: 1,
			ExclamationMin:    2,
			HighThreshold:     5,
			MediumThreshold:   2,
		},
		Sentiment: SentimentRules{
			Positive: []string{
				"thank", "great", "excellent", "good", "happy", "pleased", "wonderful", "appreciate",
			},
			Negative: []string{
				"issue", "problem", "error", "fail", "wrong", "bad", "concern", "unfortunately",
			},
			PositiveThreshold: 1,
			NegativeThreshold: -1,
		},
	}
}
