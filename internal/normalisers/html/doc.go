// Package html extracts readable text from HTML message bodies, dropping
// scripts, styles and markup and decoding entities.
package html
