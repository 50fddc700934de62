package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern-server/internal/audio"
	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/storage"
)

type stubChapterStore struct {
	mu       sync.Mutex
	chapters map[string]domain.Chapter
}

func newStubChapterStore(chapters ...domain.Chapter) *stubChapterStore {
	s := &stubChapterStore{chapters: make(map[string]domain.Chapter)}
	for _, c := range chapters {
		s.chapters[c.ID] = c
	}
	return s
}

func (s *stubChapterStore) GetChapter(_ context.Context, _, chapterID string) (domain.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chapters[chapterID]
	if !ok {
		return domain.Chapter{}, fmt.Errorf("chapter %s not found", chapterID)
	}
	return c, nil
}

func (s *stubChapterStore) UpdateChapter(_ context.Context, chapter domain.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chapters[chapter.ID] = chapter
	return nil
}

func (s *stubChapterStore) chapter(id string) domain.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapters[id]
}

type stubGenerator struct {
	mu       sync.Mutex
	requests []*audio.GenerateRequest
	errFor   map[string]error
}

func (g *stubGenerator) GenerateAndPersist(_ context.Context, req *audio.GenerateRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.errFor[req.Chapter.ID]
}

func newTestExecutor(drive storage.Client, store ChapterStore, gen audio.Generator) *Executor {
	return NewExecutor(drive, store, gen, "en-us-standard", "r2", testLogger())
}

func TestExecuteConversions(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")
	legacyText := drive.AddFile(folder, "1_one.txt", "text one", time.Now())
	legacyAudio := drive.AddFile(folder, "2_two.mp3", "audio two", time.Now())

	store := newStubChapterStore(
		domain.Chapter{ID: "ch1", BookID: "b1"},
		domain.Chapter{ID: "ch2", BookID: "b1"},
	)
	exec := newTestExecutor(drive, store, &stubGenerator{})

	scan := &ScanResult{BookFolderID: folder}
	plan := &FixPlan{Conversions: []Conversion{
		{ChapterID: "ch1", Type: ConversionText, Source: storage.File{ID: legacyText, Name: "1_one.txt"}, TargetName: "c_ch1.txt"},
		{ChapterID: "ch2", Type: ConversionAudio, Source: storage.File{ID: legacyAudio, Name: "2_two.mp3"}, TargetName: "c_ch2.mp3"},
	}, TotalSteps: 2}

	report := exec.Execute(context.Background(), "b1", scan, plan, NewTracker(plan.TotalSteps, nil))

	assert.Equal(t, 2, report.StepsRun)
	assert.Equal(t, 0, report.ErrorCount)
	assert.False(t, report.Canceled)

	names := drive.Names(folder)
	assert.Contains(t, names, "c_ch1.txt")
	assert.Contains(t, names, "c_ch2.mp3")
	// Conversion copies; the legacy originals stay put.
	assert.Contains(t, names, "1_one.txt")

	ch1 := store.chapter("ch1")
	assert.NotEmpty(t, ch1.CloudTextFileID)
	assert.Equal(t, domain.PresencePresent, ch1.HasTextOnDrive)
	assert.Equal(t, "text one", drive.Content(ch1.CloudTextFileID))

	ch2 := store.chapter("ch2")
	assert.NotEmpty(t, ch2.CloudAudioFileID)
	assert.Equal(t, domain.AudioStatusReady, ch2.AudioStatus)
}

func TestExecuteConversionFailureContinuesAndSkipsCleanup(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")
	legacy1 := drive.AddFile(folder, "1_one.txt", "one", time.Now())
	legacy2 := drive.AddFile(folder, "2_two.txt", "two", time.Now())
	junk := drive.AddFile(folder, "notes.bak", "junk", time.Now())

	drive.FailWith("copyFile", "c_ch1.txt", assertionError("copy failed"))

	store := newStubChapterStore(
		domain.Chapter{ID: "ch1", BookID: "b1"},
		domain.Chapter{ID: "ch2", BookID: "b1"},
	)
	exec := newTestExecutor(drive, store, &stubGenerator{})

	scan := &ScanResult{BookFolderID: folder}
	plan := &FixPlan{
		Conversions: []Conversion{
			{ChapterID: "ch1", Type: ConversionText, Source: storage.File{ID: legacy1, Name: "1_one.txt"}, TargetName: "c_ch1.txt"},
			{ChapterID: "ch2", Type: ConversionText, Source: storage.File{ID: legacy2, Name: "2_two.txt"}, TargetName: "c_ch2.txt"},
		},
		Cleanup:    []storage.File{{ID: junk, Name: "notes.bak"}},
		TotalSteps: 3,
	}

	report := exec.Execute(context.Background(), "b1", scan, plan, NewTracker(plan.TotalSteps, nil))

	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 2, report.StepsRun)

	// The failed chapter was never advanced; the remote write was not confirmed.
	assert.Empty(t, store.chapter("ch1").CloudTextFileID)
	// The second conversion still ran.
	assert.NotEmpty(t, store.chapter("ch2").CloudTextFileID)
	// Cleanup refuses to run after any failure.
	assert.Empty(t, drive.Trashed)
	assert.Contains(t, drive.Names(folder), "notes.bak")
}

func TestExecuteGeneration(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")

	store := newStubChapterStore(
		domain.Chapter{ID: "ch1", BookID: "b1"},
		domain.Chapter{ID: "ch2", BookID: "b1"},
	)
	gen := &stubGenerator{errFor: map[string]error{"ch2": assertionError("synthesis failed")}}
	exec := newTestExecutor(drive, store, gen)

	scan := &ScanResult{BookFolderID: folder}
	plan := &FixPlan{GenerationIDs: []string{"ch1", "ch2"}, TotalSteps: 2}

	report := exec.Execute(context.Background(), "b1", scan, plan, NewTracker(plan.TotalSteps, nil))

	assert.Equal(t, 2, report.StepsRun)
	assert.Equal(t, 1, report.ErrorCount)

	require.Len(t, gen.requests, 2)
	req := gen.requests[0]
	assert.Equal(t, "ch1", req.Chapter.ID)
	assert.Equal(t, "b1", req.BookID)
	assert.Equal(t, "en-us-standard", req.VoiceID)
	assert.Equal(t, "r2", req.Rules)
	assert.Equal(t, folder, req.FolderID)
	assert.Equal(t, "c_ch1.mp3", req.TargetName)
	assert.True(t, req.UploadToCloud)
}

func TestExecuteGenerationUnknownChapter(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")

	store := newStubChapterStore(domain.Chapter{ID: "ch2", BookID: "b1"})
	gen := &stubGenerator{}
	exec := newTestExecutor(drive, store, gen)

	scan := &ScanResult{BookFolderID: folder}
	plan := &FixPlan{GenerationIDs: []string{"missing", "ch2"}, TotalSteps: 2}

	report := exec.Execute(context.Background(), "b1", scan, plan, NewTracker(plan.TotalSteps, nil))

	assert.Equal(t, 1, report.ErrorCount)
	// The unknown chapter never reached the generator; ch2 did.
	require.Len(t, gen.requests, 1)
	assert.Equal(t, "ch2", gen.requests[0].Chapter.ID)
}

func TestExecuteCleanup(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")
	junk1 := drive.AddFile(folder, "notes.bak", "junk", time.Now())
	junk2 := drive.AddFile(folder, "1_old.txt", "old", time.Now())

	exec := newTestExecutor(drive, newStubChapterStore(), &stubGenerator{})

	scan := &ScanResult{BookFolderID: folder}
	plan := &FixPlan{Cleanup: []storage.File{
		{ID: junk1, Name: "notes.bak"},
		{ID: junk2, Name: "1_old.txt"},
	}, TotalSteps: 2}

	report := exec.Execute(context.Background(), "b1", scan, plan, NewTracker(plan.TotalSteps, nil))

	assert.Equal(t, 2, report.StepsRun)
	assert.Equal(t, 0, report.ErrorCount)
	assert.Equal(t, []string{junk1, junk2}, drive.Trashed)
	assert.Empty(t, drive.Names(folder))
}

func TestExecuteCanceledContext(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")
	legacy := drive.AddFile(folder, "1_one.txt", "one", time.Now())
	junk := drive.AddFile(folder, "notes.bak", "junk", time.Now())

	exec := newTestExecutor(drive, newStubChapterStore(domain.Chapter{ID: "ch1", BookID: "b1"}), &stubGenerator{})

	scan := &ScanResult{BookFolderID: folder}
	plan := &FixPlan{
		Conversions:   []Conversion{{ChapterID: "ch1", Type: ConversionText, Source: storage.File{ID: legacy, Name: "1_one.txt"}, TargetName: "c_ch1.txt"}},
		GenerationIDs: []string{"ch1"},
		Cleanup:       []storage.File{{ID: junk, Name: "notes.bak"}},
		TotalSteps:    3,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := exec.Execute(ctx, "b1", scan, plan, NewTracker(plan.TotalSteps, nil))

	assert.True(t, report.Canceled)
	assert.Equal(t, 0, report.StepsRun)
	assert.Empty(t, drive.Trashed)
	assert.NotContains(t, drive.Names(folder), "c_ch1.txt")
}

func TestExecuteReportCarriesLog(t *testing.T) {
	drive, root := storage.NewFake()
	folder := drive.AddFolder(root, "book")
	junk := drive.AddFile(folder, "notes.bak", "junk", time.Now())

	exec := newTestExecutor(drive, newStubChapterStore(), &stubGenerator{})

	scan := &ScanResult{BookFolderID: folder}
	plan := &FixPlan{Cleanup: []storage.File{{ID: junk, Name: "notes.bak"}}, TotalSteps: 1}

	report := exec.Execute(context.Background(), "b1", scan, plan, NewTracker(plan.TotalSteps, nil))

	require.NotEmpty(t, report.Log)
	assert.Contains(t, report.Log, "trashed notes.bak")
}
