package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/storage"
)

// Scanner lists a book's remote folder, classifies every file against the
// inventory manifest, and computes the scan result the fix planner consumes.
type Scanner struct {
	drive     storage.Client
	manifests *manifest.Reader
	logger    *slog.Logger
}

// NewScanner creates a scanner.
func NewScanner(drive storage.Client, manifests *manifest.Reader, logger *slog.Logger) *Scanner {
	return &Scanner{
		drive:     drive,
		manifests: manifests,
		logger:    logger,
	}
}

// Scan performs a full reconciliation scan of the given book folder.
// Manifest errors abort the scan; no partial result is produced. The caller
// (Session) owns the generation counter that discards superseded results.
func (s *Scanner) Scan(ctx context.Context, folderID string) (*ScanResult, error) {
	started := time.Now()

	m, err := s.manifests.Load(ctx, folderID)
	if err != nil {
		return nil, err
	}

	files, err := s.listAll(ctx, folderID)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		BookFolderID: folderID,
		ScannedAt:    started,
		Manifest:     m,
		Recovery:     map[string]RecoveryCandidate{},
	}

	survivors := s.dedup(files, result)
	if err := s.classify(ctx, survivors, result); err != nil {
		return nil, err
	}

	resolveRecovery(result)
	result.SafeToCleanup = computeSafeToCleanup(result)
	s.collectCleanupCandidates(survivors, result)

	s.logger.Info("scan complete",
		"folder", folderID,
		"duration", time.Since(started),
		"files", len(files),
		"accounted", result.AccountedChaptersCount,
		"missing_text", len(result.MissingTextIDs),
		"missing_audio", len(result.MissingAudioIDs),
		"stray", len(result.StrayFiles),
		"safe_to_cleanup", result.SafeToCleanup,
	)

	return result, nil
}

// listAll merges the root listing with the listings of the known sub-folders.
func (s *Scanner) listAll(ctx context.Context, folderID string) ([]storage.File, error) {
	rootChildren, err := s.drive.ListChildren(ctx, folderID)
	if err != nil {
		return nil, err
	}

	merged := make([]storage.File, 0, len(rootChildren))
	merged = append(merged, rootChildren...)

	for _, child := range rootChildren {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !child.IsFolder() || !isKnownSubFolder(child.Name) {
			continue
		}

		subChildren, err := s.drive.ListChildren(ctx, child.ID)
		if err != nil {
			return nil, err
		}
		merged = append(merged, subChildren...)
	}

	return merged, nil
}

func isKnownSubFolder(name string) bool {
	for _, known := range knownSubFolders {
		if name == known {
			return true
		}
	}
	return false
}

// dedup keeps the newest file per name and marks every loser as a stray
// duplicate. Duplicates never enter classification, regardless of whether
// their name would match a legacy or current pattern.
func (s *Scanner) dedup(files []storage.File, result *ScanResult) []storage.File {
	newest := make(map[string]storage.File, len(files))
	for _, f := range files {
		if f.IsFolder() {
			continue
		}
		cur, seen := newest[f.Name]
		if !seen || f.ModifiedTime.After(cur.ModifiedTime) {
			newest[f.Name] = f
		}
	}

	survivors := make([]storage.File, 0, len(newest))
	for _, f := range files {
		if f.IsFolder() {
			continue
		}
		if newest[f.Name].ID == f.ID {
			survivors = append(survivors, f)
			continue
		}
		result.StrayFiles = append(result.StrayFiles, f)
		s.logger.Debug("duplicate filename, keeping newest", "name", f.Name, "loser", f.ID)
	}

	return survivors
}

// classify runs the ordered pattern matchers over every surviving file and
// computes per-chapter missing-ness.
func (s *Scanner) classify(ctx context.Context, survivors []storage.File, result *ScanResult) error {
	chapterIDs := make([]string, 0, len(result.Manifest.Chapters))
	for _, e := range result.Manifest.Chapters {
		chapterIDs = append(chapterIDs, e.ChapterID)
	}
	c := newClassifier(chapterIDs)

	result.ExpectedText = make(map[string]string)
	result.ExpectedAudio = make(map[string]string)
	legacyByKey := make(map[legacyKey]*LegacyGroup)

	for _, f := range survivors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isIgnoredName(f.Name) {
			continue
		}

		switch m := c.Classify(f.Name); m.Kind {
		case MatchExpected:
			if m.IsAudio {
				result.ExpectedAudio[m.ChapterID] = f.ID
			} else {
				result.ExpectedText[m.ChapterID] = f.ID
			}

		case MatchLegacy:
			key := legacyKey{index: m.LegacyIndex, slug: m.Slug}
			group, ok := legacyByKey[key]
			if !ok {
				group = &LegacyGroup{Index: m.LegacyIndex, Slug: m.Slug}
				legacyByKey[key] = group
			}
			if m.IsAudio {
				group.Audio = append(group.Audio, f)
			} else {
				group.Text = append(group.Text, f)
			}

		case MatchUnlinked:
			result.UnlinkedNewFormat = append(result.UnlinkedNewFormat, f)

		case MatchNone:
			result.StrayFiles = append(result.StrayFiles, f)
		}
	}

	// Stable ordering so resolver and tests see deterministic groups.
	keys := make([]legacyKey, 0, len(legacyByKey))
	for k := range legacyByKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].index != keys[j].index {
			return keys[i].index < keys[j].index
		}
		return keys[i].slug < keys[j].slug
	})
	for _, k := range keys {
		result.LegacyGroups = append(result.LegacyGroups, *legacyByKey[k])
	}

	// Missing-ness per inventory chapter, in manifest order. Text counts as
	// present with either the .txt or .md expected name.
	for _, e := range result.Manifest.Chapters {
		_, hasText := result.ExpectedText[e.ChapterID]
		_, hasAudio := result.ExpectedAudio[e.ChapterID]

		if !hasText {
			result.MissingTextIDs = append(result.MissingTextIDs, e.ChapterID)
		}
		if !hasAudio {
			result.MissingAudioIDs = append(result.MissingAudioIDs, e.ChapterID)
		}
		if hasText && hasAudio {
			result.AccountedChaptersCount++
		}
	}

	return nil
}

type legacyKey struct {
	index int
	slug  string
}

// computeSafeToCleanup is the global safety gate: true only when every
// inventory chapter has both text and audio accounted for, directly or via a
// recovery candidate. Partial safety is not allowed because cleanup is
// folder-wide.
func computeSafeToCleanup(result *ScanResult) bool {
	for _, e := range result.Manifest.Chapters {
		if _, ok := result.ExpectedText[e.ChapterID]; !ok {
			if result.Recovery[e.ChapterID].Text == nil {
				return false
			}
		}
		if _, ok := result.ExpectedAudio[e.ChapterID]; !ok {
			if result.Recovery[e.ChapterID].Audio == nil {
				return false
			}
		}
	}
	return true
}

// collectCleanupCandidates builds the folder-wide cleanup set: every
// surviving non-ignored file that is not an expected file, plus every dedup
// loser already in StrayFiles. Deliberately wider than the files this scan
// touched, since stray accumulation is the problem being solved.
func (s *Scanner) collectCleanupCandidates(survivors []storage.File, result *ScanResult) {
	expectedIDs := make(map[string]bool, len(result.ExpectedText)+len(result.ExpectedAudio))
	for _, id := range result.ExpectedText {
		expectedIDs[id] = true
	}
	for _, id := range result.ExpectedAudio {
		expectedIDs[id] = true
	}

	survivorIDs := make(map[string]bool, len(survivors))
	for _, f := range survivors {
		survivorIDs[f.ID] = true
		if isIgnoredName(f.Name) || expectedIDs[f.ID] {
			continue
		}
		result.CleanupCandidates = append(result.CleanupCandidates, f)
	}

	// Dedup losers are cleanup candidates too; they were routed straight to
	// StrayFiles without classification.
	for _, f := range result.StrayFiles {
		if !survivorIDs[f.ID] && !isIgnoredName(f.Name) {
			result.CleanupCandidates = append(result.CleanupCandidates, f)
		}
	}
}
