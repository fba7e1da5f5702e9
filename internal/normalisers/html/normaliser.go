package html

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Normaliser handles HTML bodies.
type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority ranks HTML above the plain text fallback.
func (n *Normaliser) Priority() int {
	return 50
}

func (n *Normaliser) Normalise(body string) string {
	return ToText(body)
}

// hidden elements never contribute text.
var hidden = map[atom.Atom]bool{
	atom.Head: true, atom.Title: true, atom.Script: true, atom.Style: true,
	atom.Noscript: true, atom.Svg: true, atom.Template: true,
}

// blocks start and end on their own line.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true, atom.Li: true,
	atom.Tr: true, atom.Table: true, atom.Blockquote: true, atom.Pre: true,
	atom.Section: true, atom.Article: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

var (
	spaces     = regexp.MustCompile(`[ \t\x{00a0}]+`)
	markupHint = regexp.MustCompile(`(?i)<(html|body|div|p|br|table|span|a\s)[^>]*>`)
)

// LooksLikeHTML reports whether body carries common HTML markup.
func LooksLikeHTML(body string) bool {
	return markupHint.MatchString(body)
}

// ToText returns the visible text of an HTML body with entities decoded,
// one block per line and blank lines dropped.
func ToText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var sb strings.Builder
	skip := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF, or malformed input; either way keep what was read.
			break
		}

		switch tt {
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if hidden[a] && tt == html.StartTagToken {
				skip++
			}
			if blocks[a] {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if hidden[a] && skip > 0 {
				skip--
			}
			if blocks[a] {
				sb.WriteByte('\n')
			}
		}
	}

	lines := strings.Split(spaces.ReplaceAllString(sb.String(), " "), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
