package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lecternapp/lectern-server/internal/util"
)

// ExpectedPrefix is the current-era filename prefix: "c_{chapterId}.{ext}".
const ExpectedPrefix = "c_"

// ExpectedTextName returns the current-era text filename for a chapter.
// Both .txt and the markdown variant count as "text present" during a scan;
// .txt is what the executor writes.
func ExpectedTextName(chapterID string) string {
	return ExpectedPrefix + chapterID + ".txt"
}

// ExpectedMarkdownName returns the markdown variant of the text filename.
func ExpectedMarkdownName(chapterID string) string {
	return ExpectedPrefix + chapterID + ".md"
}

// ExpectedAudioName returns the current-era audio filename for a chapter.
func ExpectedAudioName(chapterID string) string {
	return ExpectedPrefix + chapterID + ".mp3"
}

// MatchKind tags the outcome of pattern classification.
type MatchKind int

// MatchKind values, in matcher priority order.
const (
	// MatchNone means no pattern applied: a true stray.
	MatchNone MatchKind = iota
	// MatchExpected means the name derives from an inventory chapter under
	// the current convention.
	MatchExpected
	// MatchLegacy means the name follows the old "{index}_{slug}.{ext}"
	// convention.
	MatchLegacy
	// MatchUnlinked means the name follows the current convention but no
	// inventory entry claims it.
	MatchUnlinked
)

// Match is the typed result of classifying a filename.
type Match struct {
	Kind MatchKind
	// ChapterID is set for MatchExpected.
	ChapterID string
	// IsAudio distinguishes .mp3 from text for expected/legacy/unlinked.
	IsAudio bool
	// LegacyIndex and Slug are set for MatchLegacy.
	LegacyIndex int
	Slug        string
}

var (
	// legacyNameRe matches the old export scheme: numeric index, underscore,
	// free-text slug, then extension.
	legacyNameRe = regexp.MustCompile(`^(\d+)_(.+)\.(txt|mp3)$`)

	// currentNameRe matches the current scheme syntactically, whether or not
	// the embedded chapter ID exists in the inventory.
	currentNameRe = regexp.MustCompile(`^c_([A-Za-z0-9_-]+)\.(txt|md|mp3)$`)
)

// classifier evaluates the tagged pattern matchers in fixed priority order:
// expected, then legacy, then current-format-unlinked, then stray.
type classifier struct {
	// expectedNames maps every derivable expected filename to its chapter.
	expectedNames map[string]Match
}

// newClassifier precomputes expected names for the inventory's chapters.
func newClassifier(chapterIDs []string) *classifier {
	names := make(map[string]Match, len(chapterIDs)*3)
	for _, id := range chapterIDs {
		names[ExpectedTextName(id)] = Match{Kind: MatchExpected, ChapterID: id}
		names[ExpectedMarkdownName(id)] = Match{Kind: MatchExpected, ChapterID: id}
		names[ExpectedAudioName(id)] = Match{Kind: MatchExpected, ChapterID: id, IsAudio: true}
	}
	return &classifier{expectedNames: names}
}

// Classify returns the match for a filename. Ignore-list filtering and
// duplicate removal happen before this runs; Classify itself is pure.
func (c *classifier) Classify(name string) Match {
	if m, ok := c.expectedNames[name]; ok {
		return m
	}

	if sub := legacyNameRe.FindStringSubmatch(name); sub != nil {
		idx, err := strconv.Atoi(sub[1])
		if err == nil {
			return Match{
				Kind:        MatchLegacy,
				LegacyIndex: idx,
				// Old exports varied in separator style, so the parsed
				// fragment is normalized to the canonical slug form before
				// it is ever compared against a title.
				Slug:    util.TitleSlug(sub[2]),
				IsAudio: sub[3] == "mp3",
			}
		}
	}

	if sub := currentNameRe.FindStringSubmatch(name); sub != nil {
		return Match{Kind: MatchUnlinked, IsAudio: sub[2] == "mp3"}
	}

	return Match{Kind: MatchNone}
}

// isIgnoredName reports whether a filename is on the fixed ignore list.
func isIgnoredName(name string) bool {
	if ignoredNames[name] {
		return true
	}
	return strings.HasPrefix(name, "_")
}
