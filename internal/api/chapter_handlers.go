package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lecternapp/lectern-server/internal/http/response"
	"github.com/lecternapp/lectern-server/internal/service"
)

type createChapterRequest struct {
	Title   string `json:"title" validate:"required,max=512"`
	Content string `json:"content" validate:"required"`
	Index   int    `json:"index" validate:"gte=0"`
}

// handleCreateChapter creates a chapter under a book.
func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var req createChapterRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	chapter, err := s.library.CreateChapter(r.Context(), bookID, service.CreateChapterParams{
		Title:   req.Title,
		Content: req.Content,
		Index:   req.Index,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, chapter, s.logger)
}

// handleListChapters returns one page of a book's chapters.
func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	params := parsePaginationParams(r)

	page, err := s.library.ListChapters(r.Context(), bookID, params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, page, s.logger)
}

// handleGetChapter returns one chapter.
func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	chapterID := chi.URLParam(r, "chapterID")

	chapter, err := s.library.GetChapter(r.Context(), bookID, chapterID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, chapter, s.logger)
}

// handleReindexChapters normalizes the book's chapter ordering.
func (s *Server) handleReindexChapters(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	result, err := s.library.ReindexChapters(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}
