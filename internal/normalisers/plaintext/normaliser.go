package plaintext

import (
	"strings"
	"unicode"
)

// Normaliser is the fallback for text bodies.
type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/markdown", "text/csv"}
}

func (n *Normaliser) Priority() int {
	return 5
}

func (n *Normaliser) Normalise(body string) string {
	return Clean(body)
}

// Clean unifies line endings, drops control characters and the BOM, trims
// trailing whitespace and keeps at most one blank line in a row.
func Clean(body string) string {
	body = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(body)

	var sb strings.Builder
	sb.Grow(len(body))
	blank := 0
	for line := range strings.Lines(body) {
		line = strings.TrimRightFunc(strings.Map(dropControl, line), unicode.IsSpace)
		if line == "" {
			blank++
			continue
		}
		switch {
		case sb.Len() == 0:
			// Indentation survives everywhere but on the first line.
			line = strings.TrimLeftFunc(line, unicode.IsSpace)
		case blank > 0:
			sb.WriteString("\n\n")
		default:
			sb.WriteByte('\n')
		}
		blank = 0
		sb.WriteString(line)
	}
	return sb.String()
}

func dropControl(r rune) rune {
	switch {
	case r == '\n' || r == '\t':
		return r
	case r == '\uFEFF' || unicode.IsControl(r):
		return -1
	}
	return r
}
