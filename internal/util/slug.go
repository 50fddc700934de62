// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matches runs of anything that isn't a lowercase letter or digit.
var nonAlphanumericRunRe = regexp.MustCompile(`[^a-z0-9]+`)

// deaccenter strips combining marks so "Café" slugs the same as "Cafe".
var deaccenter = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// TitleSlug converts a chapter title to the canonical slug used by the legacy
// filename scheme. Legacy exports named files "{index}_{slug}.{txt|mp3}", so
// this must stay byte-compatible with what those exports produced.
//
// Normalization rules:
//  1. Strip diacritics
//  2. Lowercase
//  3. Collapse non-alphanumeric runs to a single underscore
//  4. Trim leading/trailing underscores
//
// Examples:
//
//	"Chapter One"     → "chapter_one"
//	"The End?!"       → "the_end"
//	"  Crème Brûlée " → "creme_brulee"
func TitleSlug(input string) string {
	s, _, err := transform.String(deaccenter, input)
	if err != nil {
		s = input
	}

	s = strings.ToLower(s)
	s = nonAlphanumericRunRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	return s
}
