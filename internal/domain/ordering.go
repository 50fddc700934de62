package domain

import "sort"

// NormalizeOrder returns the chapters ordered primarily by explicit sort key,
// falling back to Index, falling back to insertion order. The sort is stable
// and does not mutate SortOrder or Index; call Reindex for that.
func NormalizeOrder(chapters []Chapter) []Chapter {
	out := make([]Chapter, len(chapters))
	copy(out, chapters)

	sort.SliceStable(out, func(i, j int) bool {
		return effectiveKey(out[i]) < effectiveKey(out[j])
	})

	return out
}

// effectiveKey picks the ordering key for a chapter: the explicit sort key
// when set, otherwise the display index. Chapters with neither keep their
// insertion order via the stable sort.
func effectiveKey(c Chapter) int {
	if c.SortOrder != 0 {
		return c.SortOrder
	}
	return c.Index
}

// ReindexResult reports what a reindex changed, for auditability.
type ReindexResult struct {
	Chapters  []Chapter `json:"chapters"`
	Updated   int       `json:"updated"`
	MinBefore int       `json:"min_before"`
	MaxBefore int       `json:"max_before"`
	MinAfter  int       `json:"min_after"`
	MaxAfter  int       `json:"max_after"`
}

// Reindex rewrites SortOrder and Index to a dense 1..N sequence in normalized
// order. Reindexing an already-dense sequence reports Updated == 0.
func Reindex(chapters []Chapter) ReindexResult {
	ordered := NormalizeOrder(chapters)

	result := ReindexResult{Chapters: ordered}

	for i, c := range ordered {
		if i == 0 || c.Index < result.MinBefore {
			result.MinBefore = c.Index
		}
		if i == 0 || c.Index > result.MaxBefore {
			result.MaxBefore = c.Index
		}

		want := i + 1
		if c.Index != want || c.SortOrder != want {
			ordered[i].Index = want
			ordered[i].SortOrder = want
			result.Updated++
		}
	}

	if len(ordered) > 0 {
		result.MinAfter = 1
		result.MaxAfter = len(ordered)
	}

	return result
}
