package services

import (
	"strings"
	"unicode"
)

// stopWords are ignored when judging whether a question carries meaning.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "about": {}, "any": {}, "at": {},
	"be": {}, "by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {},
	"of": {}, "on": {}, "or": {}, "please": {}, "the": {}, "there": {}, "this": {},
	"to": {}, "was": {}, "we": {}, "what": {}, "which": {}, "with": {}, "you": {},
}

// words splits text into lower-cased letter/digit runs.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// meaningfulTerms returns the words of text that are not stop words.
func meaningfulTerms(text string) []string {
	var out []string
	for _, w := range words(text) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// containsPhrase reports whether the word sequence phrase occurs in tokens.
func containsPhrase(tokens []string, phrase string) bool {
	parts := strings.Fields(phrase)
	if len(parts) == 0 {
		return false
	}
outer:
	for i := 0; i+len(parts) <= len(tokens); i++ {
		for j, p := range parts {
			if tokens[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}

// truncateRunes shortens s to at most n runes, appending "..." when cut.
func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
