// Package service contains the application services sitting between the HTTP
// API and the store and reconciliation engine.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/errors"
	"github.com/lecternapp/lectern-server/internal/id"
	"github.com/lecternapp/lectern-server/internal/store"
)

// LibraryService manages books and chapters.
type LibraryService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewLibraryService creates a library service.
func NewLibraryService(st *store.Store, logger *slog.Logger) *LibraryService {
	return &LibraryService{store: st, logger: logger}
}

// CreateBookParams are the caller-supplied fields of a new book.
type CreateBookParams struct {
	Title         string
	Author        string
	CloudFolderID string
	VoiceID       string
}

// CreateBook creates a book.
func (s *LibraryService) CreateBook(ctx context.Context, params CreateBookParams) (domain.Book, error) {
	if strings.TrimSpace(params.Title) == "" {
		return domain.Book{}, errors.Validation("book title is required")
	}

	bookID, err := id.Generate(id.BookPrefix)
	if err != nil {
		return domain.Book{}, err
	}

	book := domain.Book{
		ID:            bookID,
		Title:         params.Title,
		Author:        params.Author,
		CloudFolderID: params.CloudFolderID,
		VoiceID:       params.VoiceID,
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return domain.Book{}, err
	}

	s.logger.Info("created book", "book_id", bookID, "title", params.Title)
	return s.store.GetBook(ctx, bookID)
}

// GetBook retrieves a book.
func (s *LibraryService) GetBook(ctx context.Context, bookID string) (domain.Book, error) {
	return s.store.GetBook(ctx, bookID)
}

// ListBooks lists all books.
func (s *LibraryService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return s.store.ListBooks(ctx)
}

// DeleteBook removes a book and everything stored under it. The remote
// folder is untouched.
func (s *LibraryService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return err
	}
	s.logger.Info("deleted book", "book_id", bookID)
	return nil
}

// CreateChapterParams are the caller-supplied fields of a new chapter.
type CreateChapterParams struct {
	Title   string
	Content string
	Index   int
}

// CreateChapter creates a chapter under a book. The chapter starts with no
// cloud presence; a later fix run uploads it.
func (s *LibraryService) CreateChapter(ctx context.Context, bookID string, params CreateChapterParams) (domain.Chapter, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return domain.Chapter{}, err
	}

	chapterID, err := id.Generate(id.ChapterPrefix)
	if err != nil {
		return domain.Chapter{}, err
	}

	chapter := domain.Chapter{
		ID:          chapterID,
		BookID:      bookID,
		Index:       params.Index,
		Title:       params.Title,
		Content:     params.Content,
		AudioStatus: domain.AudioStatusPending,
	}
	if err := s.store.CreateChapter(ctx, chapter); err != nil {
		return domain.Chapter{}, err
	}

	return s.store.GetChapter(ctx, bookID, chapterID)
}

// GetChapter retrieves a chapter.
func (s *LibraryService) GetChapter(ctx context.Context, bookID, chapterID string) (domain.Chapter, error) {
	return s.store.GetChapter(ctx, bookID, chapterID)
}

// ListChapters returns one page of a book's chapters in canonical order.
func (s *LibraryService) ListChapters(ctx context.Context, bookID string, params store.PaginationParams) (store.PaginatedResult[domain.Chapter], error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return store.PaginatedResult[domain.Chapter]{}, err
	}
	return s.store.ListChaptersPage(ctx, bookID, params)
}

// ReindexChapters normalizes a book's chapter ordering to a dense 1..N
// sequence and persists the changed chapters atomically.
func (s *LibraryService) ReindexChapters(ctx context.Context, bookID string) (domain.ReindexResult, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return domain.ReindexResult{}, err
	}

	chapters, err := s.store.ListChapters(ctx, bookID)
	if err != nil {
		return domain.ReindexResult{}, err
	}

	result := domain.Reindex(chapters)
	if result.Updated > 0 {
		if err := s.store.UpdateChapters(ctx, result.Chapters); err != nil {
			return domain.ReindexResult{}, err
		}
	}

	s.logger.Info("reindexed chapters",
		"book_id", bookID,
		"chapters", len(result.Chapters),
		"updated", result.Updated,
	)
	return result, nil
}
