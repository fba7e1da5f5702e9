// Package normalisers turns raw message bodies into clean plain text.
// Each normaliser handles a set of MIME types; the Registry picks the
// highest-priority normaliser for a body's content type.
package normalisers
