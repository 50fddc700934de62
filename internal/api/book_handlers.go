package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lecternapp/lectern-server/internal/http/response"
	"github.com/lecternapp/lectern-server/internal/service"
)

type createBookRequest struct {
	Title         string `json:"title" validate:"required,max=512"`
	Author        string `json:"author" validate:"max=512"`
	CloudFolderID string `json:"cloud_folder_id" validate:"required"`
	VoiceID       string `json:"voice_id"`
}

// handleCreateBook creates a book.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	book, err := s.library.CreateBook(r.Context(), service.CreateBookParams{
		Title:         req.Title,
		Author:        req.Author,
		CloudFolderID: req.CloudFolderID,
		VoiceID:       req.VoiceID,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, book, s.logger)
}

// handleListBooks returns all books.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.library.ListBooks(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, books, s.logger)
}

// handleGetBook returns one book.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	book, err := s.library.GetBook(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

// handleDeleteBook removes a book from the local library. The remote folder
// is left alone.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	if err := s.library.DeleteBook(r.Context(), bookID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
