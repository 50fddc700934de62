package reconcile

import (
	"github.com/lecternapp/lectern-server/internal/storage"
	"github.com/lecternapp/lectern-server/internal/util"
)

// resolveRecovery proposes a legacy replacement for every chapter missing its
// expected text or audio file. Index matching runs first because the index is
// the more specific signal; slug matching fills whatever the index pass left
// unresolved. Legacy index numbering drifts across re-exports while titles
// are comparatively stable, and vice versa for renamed chapters, so neither
// signal alone is reliable across every historical export.
func resolveRecovery(result *ScanResult) {
	missing := make(map[string]struct{ text, audio bool })
	for _, id := range result.MissingTextIDs {
		m := missing[id]
		m.text = true
		missing[id] = m
	}
	for _, id := range result.MissingAudioIDs {
		m := missing[id]
		m.audio = true
		missing[id] = m
	}

	for _, entry := range result.Manifest.Chapters {
		need, ok := missing[entry.ChapterID]
		if !ok {
			continue
		}

		var candidate RecoveryCandidate

		// Tier 1: index match. A chapter without an inventory idx skips
		// straight to slug matching; intentional, not manifest corruption.
		if entry.Idx != nil {
			groups := groupsByIndex(result.LegacyGroups, *entry.Idx)
			if need.text {
				candidate.Text, candidate.Reason = pickCandidate(collectText(groups), ReasonIndexMatch, candidate.Reason)
			}
			if need.audio {
				candidate.Audio, candidate.Reason = pickCandidate(collectAudio(groups), ReasonIndexMatch, candidate.Reason)
			}
		}

		// Tier 2: slug match for whatever is still unresolved.
		if (need.text && candidate.Text == nil) || (need.audio && candidate.Audio == nil) {
			slug := util.TitleSlug(entry.Title)
			groups := groupsBySlug(result.LegacyGroups, slug)
			if need.text && candidate.Text == nil {
				candidate.Text, candidate.Reason = pickCandidate(collectText(groups), ReasonTitleMatch, candidate.Reason)
			}
			if need.audio && candidate.Audio == nil {
				candidate.Audio, candidate.Reason = pickCandidate(collectAudio(groups), ReasonTitleMatch, candidate.Reason)
			}
		}

		if candidate.Text != nil || candidate.Audio != nil {
			result.Recovery[entry.ChapterID] = candidate
		}
	}
}

// pickCandidate chooses from matching files: a unique match keeps the tier's
// reason, an ambiguous one resolves newest-wins and is tagged accordingly.
// The recorded reason is the reason of the first successful resolution.
func pickCandidate(files []storage.File, tierReason, existing MatchReason) (*storage.File, MatchReason) {
	if len(files) == 0 {
		return nil, existing
	}

	reason := tierReason
	chosen := files[0]
	if len(files) > 1 {
		reason = ReasonNewest
		for _, f := range files[1:] {
			if f.ModifiedTime.After(chosen.ModifiedTime) {
				chosen = f
			}
		}
	}

	if existing != "" {
		reason = existing
	}
	return &chosen, reason
}

func groupsByIndex(groups []LegacyGroup, index int) []LegacyGroup {
	var out []LegacyGroup
	for _, g := range groups {
		if g.Index == index {
			out = append(out, g)
		}
	}
	return out
}

func groupsBySlug(groups []LegacyGroup, slug string) []LegacyGroup {
	var out []LegacyGroup
	for _, g := range groups {
		if g.Slug == slug {
			out = append(out, g)
		}
	}
	return out
}

func collectText(groups []LegacyGroup) []storage.File {
	var out []storage.File
	for _, g := range groups {
		out = append(out, g.Text...)
	}
	return out
}

func collectAudio(groups []LegacyGroup) []storage.File {
	var out []storage.File
	for _, g := range groups {
		out = append(out, g.Audio...)
	}
	return out
}
