package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern-server/internal/errors"
	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupBookFolder creates a book folder with a meta sub-folder holding the
// given inventory manifest, and returns the fake drive plus the folder ID.
func setupBookFolder(t *testing.T, manifestJSON string) (*storage.Fake, string) {
	t.Helper()

	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "My Book")
	meta := drive.AddFolder(folder, manifest.MetaFolderName)
	drive.AddFile(meta, manifest.FileName, manifestJSON, time.Now())
	return drive, folder
}

func newTestScanner(drive *storage.Fake) *Scanner {
	log := testLogger()
	return NewScanner(drive, manifest.NewReader(drive, log), log)
}

const twoChapterManifest = `{
	"version": 1,
	"chapters": [
		{"chapterId": "ch1", "idx": 1, "title": "Chapter One"},
		{"chapterId": "ch2", "idx": 2, "title": "Chapter Two"}
	]
}`

func TestScanMissingManifestAbortsScan(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "No Meta Book")

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrManifestNotFound))
	assert.Nil(t, result)
}

func TestScanClassification(t *testing.T) {
	drive, folder := setupBookFolder(t, twoChapterManifest)
	now := time.Now()

	// ch1 fully accounted under current-era names.
	drive.AddFile(folder, "c_ch1.txt", "text one", now)
	drive.AddFile(folder, "c_ch1.mp3", "audio one", now)
	// ch2 only has a legacy text export.
	legacyText := drive.AddFile(folder, "2_chapter_two.txt", "text two", now)
	// Noise.
	drive.AddFile(folder, "c_ghost.txt", "orphan", now)
	drive.AddFile(folder, "notes.bak", "junk", now)
	drive.AddFile(folder, "cover.jpg", "img", now)

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.NoError(t, err)

	assert.Equal(t, 1, result.AccountedChaptersCount)
	assert.Equal(t, []string{"ch2"}, result.MissingTextIDs)
	assert.Equal(t, []string{"ch2"}, result.MissingAudioIDs)

	require.Contains(t, result.Recovery, "ch2")
	candidate := result.Recovery["ch2"]
	require.NotNil(t, candidate.Text)
	assert.Equal(t, legacyText, candidate.Text.ID)
	assert.Nil(t, candidate.Audio)
	assert.Equal(t, ReasonIndexMatch, candidate.Reason)

	require.Len(t, result.UnlinkedNewFormat, 1)
	assert.Equal(t, "c_ghost.txt", result.UnlinkedNewFormat[0].Name)

	require.Len(t, result.StrayFiles, 1)
	assert.Equal(t, "notes.bak", result.StrayFiles[0].Name)

	// ch2's audio has no candidate, so the folder is not cleanup-safe.
	assert.False(t, result.SafeToCleanup)
}

func TestScanLegacySlugSeparatorStyle(t *testing.T) {
	// A hyphenated legacy export still title-matches: the parsed slug is
	// normalized before comparison.
	drive, folder := setupBookFolder(t, `{
		"chapters": [{"chapterId": "ch1", "idx": 9, "title": "Old Title"}]
	}`)
	legacy := drive.AddFile(folder, "2_old-title.txt", "text", time.Now())

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.NoError(t, err)

	require.Contains(t, result.Recovery, "ch1")
	candidate := result.Recovery["ch1"]
	require.NotNil(t, candidate.Text)
	assert.Equal(t, legacy, candidate.Text.ID)
	// Index 2 does not match idx 9; the title tier resolved it.
	assert.Equal(t, ReasonTitleMatch, candidate.Reason)
}

func TestScanDedupKeepsNewestAndStraysLosers(t *testing.T) {
	drive, folder := setupBookFolder(t, twoChapterManifest)
	old := time.Now().Add(-time.Hour)

	loser := drive.AddFile(folder, "c_ch1.txt", "old", old)
	winner := drive.AddFile(folder, "c_ch1.txt", "new", old.Add(time.Minute))

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.NoError(t, err)

	assert.Equal(t, winner, result.ExpectedText["ch1"])

	// The loser is a stray duplicate even though its name matches the
	// expected pattern: duplicates never enter classification.
	ids := make([]string, 0, len(result.StrayFiles))
	for _, f := range result.StrayFiles {
		ids = append(ids, f.ID)
	}
	assert.Contains(t, ids, loser)
}

func TestScanMarkdownCountsAsText(t *testing.T) {
	drive, folder := setupBookFolder(t, twoChapterManifest)
	now := time.Now()

	drive.AddFile(folder, "c_ch1.md", "# one", now)
	drive.AddFile(folder, "c_ch1.mp3", "audio", now)

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.NoError(t, err)

	assert.NotContains(t, result.MissingTextIDs, "ch1")
	assert.Equal(t, 1, result.AccountedChaptersCount)
}

func TestScanIncludesKnownSubFolders(t *testing.T) {
	drive, folder := setupBookFolder(t, twoChapterManifest)
	now := time.Now()

	textFolder := drive.AddFolder(folder, "text")
	audioFolder := drive.AddFolder(folder, "audio")
	unknown := drive.AddFolder(folder, "misc")

	drive.AddFile(textFolder, "c_ch1.txt", "one", now)
	drive.AddFile(audioFolder, "c_ch1.mp3", "one", now)
	// Files in unknown sub-folders are invisible to the scan.
	drive.AddFile(unknown, "c_ch2.txt", "two", now)

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.NoError(t, err)

	assert.Equal(t, 1, result.AccountedChaptersCount)
	assert.Contains(t, result.MissingTextIDs, "ch2")
}

func TestScanIgnoreList(t *testing.T) {
	drive, folder := setupBookFolder(t, twoChapterManifest)
	now := time.Now()

	drive.AddFile(folder, ".keep", "", now)
	drive.AddFile(folder, "_draft.txt", "wip", now)

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.NoError(t, err)

	assert.Empty(t, result.StrayFiles)
	assert.Empty(t, result.CleanupCandidates)
}

func TestScanSafeToCleanupAndCandidates(t *testing.T) {
	drive, folder := setupBookFolder(t, twoChapterManifest)
	now := time.Now()

	// Both chapters fully accounted.
	drive.AddFile(folder, "c_ch1.txt", "1", now)
	drive.AddFile(folder, "c_ch1.mp3", "1", now)
	drive.AddFile(folder, "c_ch2.txt", "2", now)
	drive.AddFile(folder, "c_ch2.mp3", "2", now)

	stray := drive.AddFile(folder, "notes.bak", "junk", now)
	legacy := drive.AddFile(folder, "1_chapter_one.txt", "old export", now)
	drive.AddFile(folder, "cover.jpg", "img", now)

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.NoError(t, err)

	assert.True(t, result.SafeToCleanup)

	ids := make([]string, 0, len(result.CleanupCandidates))
	for _, f := range result.CleanupCandidates {
		ids = append(ids, f.ID)
	}
	// Non-expected files are candidates, including redundant legacy files.
	assert.Contains(t, ids, stray)
	assert.Contains(t, ids, legacy)
	// Expected and ignored files never are.
	assert.NotContains(t, ids, result.ExpectedText["ch1"])
	assert.Len(t, ids, 2)
}

func TestScanSafeToCleanupViaRecovery(t *testing.T) {
	drive, folder := setupBookFolder(t, twoChapterManifest)
	now := time.Now()

	drive.AddFile(folder, "c_ch1.txt", "1", now)
	drive.AddFile(folder, "c_ch1.mp3", "1", now)
	// ch2 is covered entirely by legacy recovery candidates.
	drive.AddFile(folder, "2_chapter_two.txt", "2", now)
	drive.AddFile(folder, "2_chapter_two.mp3", "2", now)

	result, err := newTestScanner(drive).Scan(context.Background(), folder)
	require.NoError(t, err)

	assert.True(t, result.SafeToCleanup)
}

func TestScanListFailurePropagates(t *testing.T) {
	drive, folder := setupBookFolder(t, twoChapterManifest)
	drive.AddFile(folder, "c_ch1.txt", "1", time.Now())

	scanner := newTestScanner(drive)
	drive.FailWith("listChildren", folder, assertionError("list failed"))

	_, err := scanner.Scan(context.Background(), folder)
	require.Error(t, err)
}

// assertionError is a trivial error type for failure injection.
type assertionError string

func (e assertionError) Error() string { return string(e) }
