package store

import (
	"context"
	"encoding/json/v2"

	"github.com/dgraph-io/badger/v4"

	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/errors"
)

// CreateChapter stores a new chapter and its text content.
func (s *Store) CreateChapter(ctx context.Context, chapter domain.Chapter) error {
	key := buildKey(chapterPrefix, chapter.BookID, chapter.ID)
	defer releaseKey(key)

	taken, err := s.exists(key)
	if err != nil {
		return err
	}
	if taken {
		return errors.Conflict("chapter already exists: " + chapter.ID)
	}

	if chapter.Content != "" {
		if err := s.SaveText(ctx, chapter.BookID, chapter.ID, chapter.Content); err != nil {
			return err
		}
	}
	return s.set(key, chapter)
}

// GetChapter retrieves a chapter by book and chapter ID. Content is not
// loaded; use LoadText.
func (s *Store) GetChapter(ctx context.Context, bookID, chapterID string) (domain.Chapter, error) {
	key := buildKey(chapterPrefix, bookID, chapterID)
	defer releaseKey(key)

	var chapter domain.Chapter
	if err := s.get(key, &chapter); err != nil {
		return domain.Chapter{}, mapNotFound(err, "chapter", chapterID)
	}
	return chapter, nil
}

// UpdateChapter replaces a stored chapter. Text content travels separately
// and is only rewritten when the chapter carries it.
func (s *Store) UpdateChapter(ctx context.Context, chapter domain.Chapter) error {
	key := buildKey(chapterPrefix, chapter.BookID, chapter.ID)
	defer releaseKey(key)

	taken, err := s.exists(key)
	if err != nil {
		return err
	}
	if !taken {
		return errors.NotFoundf("chapter %s not found", chapter.ID)
	}

	if chapter.Content != "" {
		if err := s.SaveText(ctx, chapter.BookID, chapter.ID, chapter.Content); err != nil {
			return err
		}
	}
	return s.set(key, chapter)
}

// UpdateChapters replaces several chapters of one book in a single
// transaction, so a reindex is applied atomically.
func (s *Store) UpdateChapters(ctx context.Context, chapters []domain.Chapter) error {
	// Badger holds key slices until commit, so pooled buffers cannot be
	// released inside the transaction.
	keys := make([][]byte, 0, len(chapters))
	defer func() {
		for _, key := range keys {
			releaseKey(key)
		}
	}()

	return s.db.Update(func(txn *badger.Txn) error {
		for _, chapter := range chapters {
			data, err := json.Marshal(chapter)
			if err != nil {
				return err
			}
			key := buildKey(chapterPrefix, chapter.BookID, chapter.ID)
			keys = append(keys, key)
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteChapter removes a chapter and its stored text.
func (s *Store) DeleteChapter(ctx context.Context, bookID, chapterID string) error {
	key := buildKey(chapterPrefix, bookID, chapterID)
	defer releaseKey(key)
	textKey := buildKey(textPrefix, bookID, chapterID)
	defer releaseKey(textKey)

	if err := s.delete(key); err != nil {
		return err
	}
	return s.delete(textKey)
}

// ListChapters returns all chapters of a book in canonical order.
func (s *Store) ListChapters(ctx context.Context, bookID string) ([]domain.Chapter, error) {
	prefix := buildKey(chapterPrefix, bookID)
	prefix = append(prefix, ':')
	defer releaseKey(prefix)

	var chapters []domain.Chapter
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var chapter domain.Chapter
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &chapter)
			})
			if err != nil {
				return err
			}
			chapters = append(chapters, chapter)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return domain.NormalizeOrder(chapters), nil
}

// ListChaptersPage returns one page of a book's chapters in canonical order.
// The cursor is the ID of the last chapter on the previous page.
func (s *Store) ListChaptersPage(ctx context.Context, bookID string, params PaginationParams) (PaginatedResult[domain.Chapter], error) {
	params.Validate()

	all, err := s.ListChapters(ctx, bookID)
	if err != nil {
		return PaginatedResult[domain.Chapter]{}, err
	}

	start := 0
	if params.Cursor != "" {
		afterID, err := DecodeCursor(params.Cursor)
		if err != nil {
			return PaginatedResult[domain.Chapter]{}, errors.Validation(err.Error())
		}
		for i, ch := range all {
			if ch.ID == afterID {
				start = i + 1
				break
			}
		}
	}

	end := start + params.Limit
	if end > len(all) {
		end = len(all)
	}

	result := PaginatedResult[domain.Chapter]{
		Items:   all[start:end],
		HasMore: end < len(all),
		Total:   len(all),
	}
	if result.HasMore && len(result.Items) > 0 {
		result.NextCursor = EncodeCursor(result.Items[len(result.Items)-1].ID)
	}
	return result, nil
}

// SaveText stores a chapter's text content.
func (s *Store) SaveText(ctx context.Context, bookID, chapterID, content string) error {
	key := buildKey(textPrefix, bookID, chapterID)
	defer releaseKey(key)
	return s.setRaw(key, []byte(content))
}

// LoadText retrieves a chapter's text content.
func (s *Store) LoadText(ctx context.Context, bookID, chapterID string) (string, error) {
	key := buildKey(textPrefix, bookID, chapterID)
	defer releaseKey(key)

	data, err := s.getRaw(key)
	if err != nil {
		return "", mapNotFound(err, "chapter text", chapterID)
	}
	return string(data), nil
}

// PutAudioBlob caches generated audio under the chapter and signature.
func (s *Store) PutAudioBlob(ctx context.Context, chapterID, signature string, data []byte) error {
	key := buildKey(audioPrefix, chapterID, signature)
	defer releaseKey(key)
	return s.setRaw(key, data)
}

// GetAudioBlob retrieves cached audio for the chapter and signature.
func (s *Store) GetAudioBlob(ctx context.Context, chapterID, signature string) ([]byte, error) {
	key := buildKey(audioPrefix, chapterID, signature)
	defer releaseKey(key)

	data, err := s.getRaw(key)
	if err != nil {
		return nil, mapNotFound(err, "cached audio for chapter", chapterID)
	}
	return data, nil
}

// HasAudioBlob reports whether cached audio exists for the chapter and
// signature. Signature mismatch counts as absent.
func (s *Store) HasAudioBlob(ctx context.Context, chapterID, signature string) (bool, error) {
	key := buildKey(audioPrefix, chapterID, signature)
	defer releaseKey(key)
	return s.exists(key)
}
