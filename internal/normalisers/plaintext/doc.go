// Package plaintext tidies plain text message bodies.
package plaintext
