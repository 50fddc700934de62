package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lecternapp/lectern-server/internal/audio"
	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/storage"
)

// ChapterStore is the slice of the persistence layer the executor needs to
// record confirmed remote writes on chapters.
type ChapterStore interface {
	GetChapter(ctx context.Context, bookID, chapterID string) (domain.Chapter, error)
	UpdateChapter(ctx context.Context, chapter domain.Chapter) error
}

// Executor runs a fix plan against the remote folder. Phases run strictly in
// order: conversions, then audio generation, then cleanup. Within a phase,
// one failed item never aborts the others; cleanup as a whole is skipped if
// any earlier step failed.
type Executor struct {
	drive     storage.Client
	store     ChapterStore
	generator audio.Generator
	voiceID   string
	rules     string
	logger    *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(drive storage.Client, store ChapterStore, generator audio.Generator, voiceID, rules string, logger *slog.Logger) *Executor {
	return &Executor{
		drive:     drive,
		store:     store,
		generator: generator,
		voiceID:   voiceID,
		rules:     rules,
		logger:    logger,
	}
}

// Execute runs the plan. It always returns a report; the error return is
// reserved for the run being unable to start at all. Cancellation stops the
// run between items and is reported, not returned.
func (e *Executor) Execute(ctx context.Context, bookID string, scan *ScanResult, plan *FixPlan, tracker *Tracker) *FixReport {
	report := &FixReport{}

	e.runConversions(ctx, bookID, scan, plan, tracker, report)
	e.runGeneration(ctx, bookID, scan, plan, tracker, report)
	e.runCleanup(ctx, plan, tracker, report)

	report.Log = tracker.Log()

	e.logger.Info("fix run finished",
		"book_id", bookID,
		"steps_run", report.StepsRun,
		"errors", report.ErrorCount,
		"canceled", report.Canceled,
	)
	return report
}

func (e *Executor) runConversions(ctx context.Context, bookID string, scan *ScanResult, plan *FixPlan, tracker *Tracker, report *FixReport) {
	if len(plan.Conversions) == 0 || report.Canceled {
		return
	}
	tracker.Note(fmt.Sprintf("converting %d legacy file(s)", len(plan.Conversions)))

	for _, conv := range plan.Conversions {
		if ctx.Err() != nil {
			report.Canceled = true
			tracker.Note("run canceled")
			return
		}

		newID, err := e.drive.CopyFile(ctx, conv.Source.ID, scan.BookFolderID, conv.TargetName)
		report.StepsRun++
		if err != nil {
			report.ErrorCount++
			tracker.Step(fmt.Sprintf("convert %s -> %s: %v", conv.Source.Name, conv.TargetName, err))
			e.logger.Error("conversion failed", "chapter_id", conv.ChapterID, "source", conv.Source.Name, "error", err)
			continue
		}

		// The remote write is confirmed; only now does the chapter record
		// learn the new file ID.
		if err := e.recordConversion(ctx, bookID, conv, newID); err != nil {
			report.ErrorCount++
			tracker.Step(fmt.Sprintf("convert %s -> %s: copied but not recorded: %v", conv.Source.Name, conv.TargetName, err))
			e.logger.Error("failed to record conversion", "chapter_id", conv.ChapterID, "error", err)
			continue
		}

		tracker.Step(fmt.Sprintf("converted %s -> %s", conv.Source.Name, conv.TargetName))
	}
}

func (e *Executor) recordConversion(ctx context.Context, bookID string, conv Conversion, newFileID string) error {
	chapter, err := e.store.GetChapter(ctx, bookID, conv.ChapterID)
	if err != nil {
		return err
	}
	switch conv.Type {
	case ConversionText:
		chapter = chapter.MarkTextOnDrive(newFileID)
	case ConversionAudio:
		chapter = chapter.MarkAudioOnDrive(newFileID)
	}
	return e.store.UpdateChapter(ctx, chapter)
}

func (e *Executor) runGeneration(ctx context.Context, bookID string, scan *ScanResult, plan *FixPlan, tracker *Tracker, report *FixReport) {
	if len(plan.GenerationIDs) == 0 || report.Canceled {
		return
	}
	tracker.Note(fmt.Sprintf("generating audio for %d chapter(s)", len(plan.GenerationIDs)))

	for _, chapterID := range plan.GenerationIDs {
		if ctx.Err() != nil {
			report.Canceled = true
			tracker.Note("run canceled")
			return
		}

		report.StepsRun++
		chapter, err := e.store.GetChapter(ctx, bookID, chapterID)
		if err != nil {
			report.ErrorCount++
			tracker.Step(fmt.Sprintf("generate audio for %s: %v", chapterID, err))
			e.logger.Error("generation failed", "chapter_id", chapterID, "error", err)
			continue
		}

		err = e.generator.GenerateAndPersist(ctx, &audio.GenerateRequest{
			Chapter:       chapter,
			BookID:        bookID,
			VoiceID:       e.voiceID,
			Rules:         e.rules,
			FolderID:      scan.BookFolderID,
			TargetName:    ExpectedAudioName(chapterID),
			UploadToCloud: true,
		})
		if err != nil {
			report.ErrorCount++
			tracker.Step(fmt.Sprintf("generate audio for %s: %v", chapterID, err))
			e.logger.Error("generation failed", "chapter_id", chapterID, "error", err)
			continue
		}

		tracker.Step(fmt.Sprintf("generated audio for chapter %s", chapterID))
	}
}

// runCleanup trashes the plan's cleanup set. It refuses to run after any
// earlier failure: a partially repaired folder must keep its recovery
// material.
func (e *Executor) runCleanup(ctx context.Context, plan *FixPlan, tracker *Tracker, report *FixReport) {
	if len(plan.Cleanup) == 0 || report.Canceled {
		return
	}
	if report.ErrorCount > 0 {
		tracker.Note(fmt.Sprintf("skipping cleanup of %d file(s): %d earlier step(s) failed", len(plan.Cleanup), report.ErrorCount))
		e.logger.Warn("cleanup skipped after errors", "errors", report.ErrorCount, "candidates", len(plan.Cleanup))
		return
	}
	tracker.Note(fmt.Sprintf("moving %d file(s) to trash", len(plan.Cleanup)))

	for _, f := range plan.Cleanup {
		if ctx.Err() != nil {
			report.Canceled = true
			tracker.Note("run canceled")
			return
		}

		report.StepsRun++
		if err := e.drive.MoveToTrash(ctx, f.ID); err != nil {
			report.ErrorCount++
			tracker.Step(fmt.Sprintf("trash %s: %v", f.Name, err))
			e.logger.Error("trash failed", "file", f.Name, "error", err)
			continue
		}
		tracker.Step(fmt.Sprintf("trashed %s", f.Name))
	}
}
