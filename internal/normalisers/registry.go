package normalisers

import (
	"mime"
	"sort"
	"strings"

	"github.com/custodia-labs/mailbrain/internal/normalisers/html"
	"github.com/custodia-labs/mailbrain/internal/normalisers/plaintext"
)

// Normaliser converts a body of one of its MIME types to plain text.
type Normaliser interface {
	// SupportedMIMETypes returns the media types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority breaks ties when several normalisers handle a type.
	// Higher wins.
	Priority() int

	// Normalise returns the readable text of body.
	Normalise(body string) string
}

// Registry selects a normaliser by media type.
type Registry struct {
	byType map[string][]Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...Normaliser) *Registry {
	r := &Registry{byType: make(map[string][]Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Default returns a registry with the built-in HTML and plain text normalisers.
func Default() *Registry {
	return NewRegistry(html.New(), plaintext.New())
}

// Register adds a normaliser for each of its media types.
func (r *Registry) Register(n Normaliser) {
	for _, t := range n.SupportedMIMETypes() {
		t = strings.ToLower(t)
		list := append(r.byType[t], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[t] = list
	}
}

// Get returns the highest-priority normaliser for a content type.
// Parameters such as charset are ignored.
func (r *Registry) Get(contentType string) (Normaliser, bool) {
	list := r.byType[mediaType(contentType)]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Normalise converts body according to its content type. Bodies of
// unsupported types, such as attachments, yield an empty string.
func (r *Registry) Normalise(contentType, body string) string {
	n, ok := r.Get(contentType)
	if !ok {
		return ""
	}
	return n.Normalise(body)
}

// NormaliseDetected normalises a body whose content type is unknown,
// treating markup as HTML.
func (r *Registry) NormaliseDetected(body string) string {
	if html.LooksLikeHTML(body) {
		return r.Normalise("text/html", body)
	}
	return r.Normalise("text/plain", body)
}

func mediaType(contentType string) string {
	if contentType == "" {
		return "text/plain"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
