package services

import (
	"strings"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// Intent confidences.
const (
	ruleHitConfidence = 0.95
	fallbackSearch    = 0.6
	unknownConfidence = 0.3
)

type intentRule struct {
	intent  domain.Intent
	phrases []string
}

// intentRules are evaluated in order; the first matching rule wins.
var intentRules = []intentRule{
	{domain.IntentSummarization, []string{"summarize", "summarise", "summary", "overview", "what are", "recap"}},
	{domain.IntentAnalysis, []string{"count", "how many", "statistics", "stats", "analyze", "analyse", "analysis", "trend"}},
	{domain.IntentTemporalSearch, []string{
		"when", "date", "time", "today", "yesterday", "tomorrow", "last week", "this week", "recent", "recently", "since",
	}},
	{domain.IntentSearch, []string{"find", "search", "show", "list", "who", "sender", "which", "any"}},
}

type expansionRule struct {
	triggers []string
	terms    []string
}

// expansionRules append related vocabulary to the retrieval query.
// Only the first matching rule applies.
var expansionRules = []expansionRule{
	{
		triggers: []string{"urgent", "critical", "important"},
		terms:    []string{"urgent", "asap", "important", "priority"},
	},
	{
		triggers: []string{"security", "vulnerability", "vulnerable"},
		terms:    []string{"CVE", "critical", "vulnerability", "patch", "security", "alert", "threat"},
	},
	{
		triggers: []string{"bug", "issue", "error"},
		terms:    []string{"fix", "bug", "error", "authentication", "failure"},
	},
}

// IntentClassifier maps questions to intents with deterministic keyword rules.
type IntentClassifier struct{}

// NewIntentClassifier creates an intent classifier.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{}
}

// ClassifyIntent detects the question's intent and builds the retrieval query.
// Ambiguous questions resolve to unknown with LowConfidence set; they are
// still searched.
func (c *IntentClassifier) ClassifyIntent(question string) domain.IntentResult {
	question = strings.TrimSpace(question)
	tokens := words(question)

	result := domain.IntentResult{Query: question}
	if intent, ok := matchIntent(tokens); ok {
		result.Intent = intent
		result.Confidence = ruleHitConfidence
	} else if len(meaningfulTerms(question)) < 2 {
		result.Intent = domain.IntentUnknown
		result.Confidence = unknownConfidence
		result.LowConfidence = true
	} else {
		result.Intent = domain.IntentSearch
		result.Confidence = fallbackSearch
	}

	if terms := expansionFor(tokens); len(terms) > 0 {
		result.Expansions = terms
		result.Query = question + " " + strings.Join(terms, " ")
	}
	return result
}

func matchIntent(tokens []string) (domain.Intent, bool) {
	for _, rule := range intentRules {
		for _, phrase := range rule.phrases {
			if containsPhrase(tokens, phrase) {
				return rule.intent, true
			}
		}
	}
	return "", false
}

func expansionFor(tokens []string) []string {
	for _, rule := range expansionRules {
		for _, trigger := range rule.triggers {
			if containsPhrase(tokens, trigger) {
				return append([]string(nil), rule.terms...)
			}
		}
	}
	return nil
}
