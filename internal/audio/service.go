package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/errors"
	"github.com/lecternapp/lectern-server/internal/storage"
)

// ChapterStore is the slice of the chapter store the audio service needs.
type ChapterStore interface {
	LoadText(ctx context.Context, bookID, chapterID string) (string, error)
	UpdateChapter(ctx context.Context, chapter domain.Chapter) error
	PutAudioBlob(ctx context.Context, chapterID, signature string, data []byte) error
	GetAudioBlob(ctx context.Context, chapterID, signature string) ([]byte, error)
}

// Service generates chapter audio via a Synthesizer, caches the result
// locally, and uploads it to remote storage.
type Service struct {
	synth         Synthesizer
	store         ChapterStore
	drive         storage.Client
	formatVersion string
	logger        *slog.Logger
}

// NewService creates an audio generation service.
func NewService(synth Synthesizer, store ChapterStore, drive storage.Client, formatVersion string, logger *slog.Logger) *Service {
	return &Service{
		synth:         synth,
		store:         store,
		drive:         drive,
		formatVersion: formatVersion,
		logger:        logger,
	}
}

// GenerateAndPersist implements Generator. A locally cached blob whose
// signature matches the requested settings is reused instead of
// re-synthesizing; otherwise the chapter's text is synthesized and the
// result cached. The chapter's audio fields are only advanced to ready
// after the remote upload is confirmed.
func (s *Service) GenerateAndPersist(ctx context.Context, req *GenerateRequest) error {
	chapter := req.Chapter
	signature := Signature(req.VoiceID, req.Rules, s.formatVersion)

	data, err := s.store.GetAudioBlob(ctx, chapter.ID, signature)
	cached := err == nil && len(data) > 0
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		// Worst case is one redundant synthesis; keep going.
		s.logger.Warn("audio cache lookup failed", "chapter_id", chapter.ID, "error", err)
	}

	if !cached {
		text := chapter.Content
		if text == "" {
			loaded, err := s.store.LoadText(ctx, req.BookID, chapter.ID)
			if err != nil {
				return fmt.Errorf("load chapter text: %w", err)
			}
			text = loaded
		}

		chapter.AudioStatus = domain.AudioStatusGenerating
		if err := s.store.UpdateChapter(ctx, chapter); err != nil {
			return fmt.Errorf("mark chapter generating: %w", err)
		}

		data, err = s.synth.Synthesize(ctx, text, req.VoiceID)
		if err != nil {
			chapter.AudioStatus = domain.AudioStatusFailed
			if updateErr := s.store.UpdateChapter(ctx, chapter); updateErr != nil {
				s.logger.Error("failed to record synthesis failure", "chapter_id", chapter.ID, "error", updateErr)
			}
			return fmt.Errorf("synthesize chapter %s: %w", chapter.ID, err)
		}

		if err := s.store.PutAudioBlob(ctx, chapter.ID, signature, data); err != nil {
			// Cache miss on the next run is the only consequence; keep going.
			s.logger.Warn("failed to cache audio blob", "chapter_id", chapter.ID, "error", err)
		}
	}

	if req.UploadToCloud {
		fileID, err := s.drive.UploadOrReplace(ctx, req.FolderID, req.TargetName, string(data), chapter.CloudAudioFileID, "audio/mpeg")
		if err != nil {
			chapter.AudioStatus = domain.AudioStatusFailed
			if updateErr := s.store.UpdateChapter(ctx, chapter); updateErr != nil {
				s.logger.Error("failed to record upload failure", "chapter_id", chapter.ID, "error", updateErr)
			}
			return fmt.Errorf("upload audio for chapter %s: %w", chapter.ID, err)
		}
		chapter = chapter.MarkAudioOnDrive(fileID)
	} else {
		chapter.AudioStatus = domain.AudioStatusReady
	}

	chapter.AudioSignature = signature
	if err := s.store.UpdateChapter(ctx, chapter); err != nil {
		return fmt.Errorf("save chapter after generation: %w", err)
	}

	s.logger.Info("generated chapter audio",
		"chapter_id", chapter.ID,
		"voice", req.VoiceID,
		"bytes", len(data),
		"cached", cached,
		"uploaded", req.UploadToCloud,
	)
	return nil
}
