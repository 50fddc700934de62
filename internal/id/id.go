// Package id generates the prefixed NanoIDs used as entity identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes. The prefix makes an ID's kind readable in logs and keeps
// the chapter IDs embedded in remote filenames self-describing.
const (
	BookPrefix      = "book"
	ChapterPrefix   = "ch"
	SessionPrefix   = "sess"
	SSEClientPrefix = "sseclient"
)

// Generate returns "{prefix}-{nanoid}", e.g. "ch-V1StGXR8_Z5jdHi6B-myT".
// The 21-character NanoID alphabet is URL- and filename-safe, which matters
// because chapter IDs end up inside remote filenames.
//
// Fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is Generate for paths that cannot return an error, such as
// seeding and initialization; it panics when entropy is unavailable.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("generate id: %v", err))
	}
	return id
}
