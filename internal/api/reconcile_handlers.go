package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lecternapp/lectern-server/internal/http/response"
	"github.com/lecternapp/lectern-server/internal/reconcile"
)

type fixOptionsRequest struct {
	ConvertLegacy bool `json:"convert_legacy"`
	GenerateAudio bool `json:"generate_audio"`
	Cleanup       bool `json:"cleanup"`
}

func (r fixOptionsRequest) planOptions() reconcile.PlanOptions {
	return reconcile.PlanOptions{
		ConvertLegacy: r.ConvertLegacy,
		GenerateAudio: r.GenerateAudio,
		Cleanup:       r.Cleanup,
	}
}

// handleRunScan runs a fresh reconciliation scan of the book's folder.
func (s *Server) handleRunScan(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	result, err := s.reconcile.Scan(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}

// handleGetScan returns the cached scan result.
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	result, err := s.reconcile.CachedScan(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}

// handleBuildPlan builds a fix plan from the cached scan without running it.
func (s *Server) handleBuildPlan(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var req fixOptionsRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	plan, err := s.reconcile.Plan(r.Context(), bookID, req.planOptions())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, plan, s.logger)
}

// handleRunFix plans and executes repairs. The call blocks until the run
// finishes; progress is available concurrently via the progress endpoint.
func (s *Server) handleRunFix(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var req fixOptionsRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	report, err := s.reconcile.Fix(r.Context(), bookID, req.planOptions())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, report, s.logger)
}

// handleFixProgress reports the state of the current or last fix run.
func (s *Server) handleFixProgress(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	state, progress, log, err := s.reconcile.Progress(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]any{
		"state":    state,
		"progress": progress,
		"log":      log,
	}, s.logger)
}

// handleAudioCacheStatus reports per-chapter local audio cache state for the
// book's current synthesis settings.
func (s *Server) handleAudioCacheStatus(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	entries, err := s.reconcile.AudioCacheStatus(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, entries, s.logger)
}

// handleCancelFix requests cancellation of the in-flight fix run.
func (s *Server) handleCancelFix(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	if err := s.reconcile.CancelFix(r.Context(), bookID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
