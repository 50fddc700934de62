// Package api provides the HTTP API server and handlers for the Lectern application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lecternapp/lectern-server/internal/auth"
	"github.com/lecternapp/lectern-server/internal/http/response"
	"github.com/lecternapp/lectern-server/internal/ratelimit"
	"github.com/lecternapp/lectern-server/internal/service"
	"github.com/lecternapp/lectern-server/internal/sse"
	"github.com/lecternapp/lectern-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	library    *service.LibraryService
	reconcile  *service.ReconcileService
	session    *auth.SessionState
	sseHandler *sse.Handler
	validator  *validation.Validator
	router     *chi.Mux
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(library *service.LibraryService, reconcileSvc *service.ReconcileService, session *auth.SessionState, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	s := &Server{
		library:    library,
		reconcile:  reconcileSvc,
		session:    session,
		sseHandler: sseHandler,
		validator:  validation.New(),
		router:     chi.NewRouter(),
		logger:     logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.rateLimit(ratelimit.New(apiRequestsPerSecond, apiBurst)))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Event stream; ?book=<id> limits to one book.
		r.Get("/events", s.sseHandler.ServeHTTP)

		// Drive session endpoints.
		r.Route("/session", func(r chi.Router) {
			r.Post("/signin", s.handleSignIn)
			r.Post("/signout", s.handleSignOut)
			r.Get("/", s.handleSessionStatus)
		})

		// Books and chapters.
		r.Route("/books", func(r chi.Router) {
			r.Post("/", s.handleCreateBook)
			r.Get("/", s.handleListBooks)

			r.Route("/{bookID}", func(r chi.Router) {
				r.Get("/", s.handleGetBook)
				r.Delete("/", s.handleDeleteBook)

				r.Route("/chapters", func(r chi.Router) {
					r.Post("/", s.handleCreateChapter)
					r.Get("/", s.handleListChapters)
					r.Post("/reindex", s.handleReindexChapters)
					r.Get("/{chapterID}", s.handleGetChapter)
				})

				// Reconciliation engine.
				r.Route("/reconcile", func(r chi.Router) {
					r.Post("/scan", s.handleRunScan)
					r.Get("/scan", s.handleGetScan)
					r.Post("/plan", s.handleBuildPlan)
					r.Post("/fix", s.handleRunFix)
					r.Get("/fix/progress", s.handleFixProgress)
					r.Post("/fix/cancel", s.handleCancelFix)
					r.Get("/audio-cache", s.handleAudioCacheStatus)
				})
			})
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
