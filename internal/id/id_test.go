package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	got, err := Generate(ChapterPrefix)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "ch-"))
	// Prefix, separator, 21-character NanoID.
	assert.Len(t, got, len("ch-")+21)
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		got, err := Generate(BookPrefix)
		require.NoError(t, err)
		require.False(t, seen[got], "duplicate ID %s", got)
		seen[got] = true
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		got := MustGenerate(SessionPrefix)
		assert.True(t, strings.HasPrefix(got, "sess-"))
	})
}
