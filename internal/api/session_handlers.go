package api

import (
	"net/http"

	"github.com/lecternapp/lectern-server/internal/http/response"
)

type signInRequest struct {
	Backend string `json:"backend" validate:"required,oneof=fs gdrive"`
}

// handleSignIn establishes a fresh drive session.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	token, err := s.session.SignIn(req.Backend)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{
		"token":   token,
		"backend": req.Backend,
	}, s.logger)
}

// handleSignOut drops the current drive session.
func (s *Server) handleSignOut(w http.ResponseWriter, _ *http.Request) {
	s.session.SignOut()
	response.NoContent(w)
}

// handleSessionStatus reports whether the drive session is still valid.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Validate(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]bool{"valid": true}, s.logger)
}
