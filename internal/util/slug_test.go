package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Chapter One", "chapter_one"},
		{"The End?!", "the_end"},
		{"  Crème Brûlée ", "creme_brulee"},
		{"Épilogue", "epilogue"},
		{"chapter   with    spaces", "chapter_with_spaces"},
		{"Already_Slugged", "already_slugged"},
		{"Part 2: The Return", "part_2_the_return"},
		{"---", ""},
		{"", ""},
		{"42", "42"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleSlug(tt.input), "input %q", tt.input)
	}
}

func TestTitleSlugStableAcrossCalls(t *testing.T) {
	// Legacy filenames were derived from titles once at export time; the slug
	// must stay byte-compatible between runs.
	first := TitleSlug("Naïve Façade")
	second := TitleSlug("Naïve Façade")
	assert.Equal(t, "naive_facade", first)
	assert.Equal(t, first, second)
}
