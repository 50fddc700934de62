package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lecternapp/lectern-server/internal/audio"
	"github.com/lecternapp/lectern-server/internal/config"
	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/errors"
	"github.com/lecternapp/lectern-server/internal/manifest"
	"github.com/lecternapp/lectern-server/internal/reconcile"
	"github.com/lecternapp/lectern-server/internal/sse"
	"github.com/lecternapp/lectern-server/internal/storage"
	"github.com/lecternapp/lectern-server/internal/store"
)

// EventEmitter broadcasts engine events to connected clients.
type EventEmitter interface {
	Emit(event sse.Event)
}

// ReconcileService exposes the reconciliation engine per book. It owns the
// session registry: one reconcile.Session per book, created lazily and
// reused so the scan cache and run latch survive across requests.
type ReconcileService struct {
	store     *store.Store
	drive     storage.Client
	manifests *manifest.Reader
	generator audio.Generator
	cache     *audio.CacheChecker
	validator reconcile.SessionValidator
	audioCfg  config.AudioConfig
	logger    *slog.Logger

	// events is optional; set via SetEventEmitter after construction.
	events EventEmitter

	mu       sync.Mutex
	sessions map[string]*reconcile.Session
}

// NewReconcileService creates a reconcile service.
func NewReconcileService(
	st *store.Store,
	drive storage.Client,
	manifests *manifest.Reader,
	generator audio.Generator,
	cache *audio.CacheChecker,
	validator reconcile.SessionValidator,
	audioCfg config.AudioConfig,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		store:     st,
		drive:     drive,
		manifests: manifests,
		generator: generator,
		cache:     cache,
		validator: validator,
		audioCfg:  audioCfg,
		logger:    logger,
		sessions:  make(map[string]*reconcile.Session),
	}
}

// SetEventEmitter wires progress broadcasting. Set once at startup.
func (s *ReconcileService) SetEventEmitter(events EventEmitter) {
	s.events = events
}

// session returns the book's reconciliation session, creating it on first
// use. The book's voice override, when set, wins over the configured default.
func (s *ReconcileService) session(ctx context.Context, bookID string) (*reconcile.Session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[bookID]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.CloudFolderID == "" {
		return nil, errors.Validation("book has no cloud folder configured")
	}

	voiceID := s.audioCfg.VoiceID
	if book.VoiceID != "" {
		voiceID = book.VoiceID
	}

	scanner := reconcile.NewScanner(s.drive, s.manifests, s.logger)
	executor := reconcile.NewExecutor(s.drive, s.store, s.generator, voiceID, s.audioCfg.RulesVersion, s.logger)
	sess := reconcile.NewSession(bookID, book.CloudFolderID, scanner, executor, s.validator, s.logger)
	if s.events != nil {
		sess.OnProgress(func(p reconcile.Progress) {
			s.events.Emit(sse.NewFixProgressEvent(bookID, p.Current, p.Total))
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[bookID]; ok {
		return existing, nil
	}
	s.sessions[bookID] = sess
	return sess, nil
}

// Scan runs a fresh reconciliation scan of the book's folder.
func (s *ReconcileService) Scan(ctx context.Context, bookID string) (*reconcile.ScanResult, error) {
	sess, err := s.session(ctx, bookID)
	if err != nil {
		return nil, err
	}
	result, err := sess.RunScan(ctx)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.Emit(sse.NewScanDoneEvent(bookID, result.SafeToCleanup))
	}
	return result, nil
}

// CachedScan returns the book's cached scan result, if one exists.
func (s *ReconcileService) CachedScan(ctx context.Context, bookID string) (*reconcile.ScanResult, error) {
	sess, err := s.session(ctx, bookID)
	if err != nil {
		return nil, err
	}
	result, ok := sess.CachedScan()
	if !ok {
		return nil, errors.NotFound("no scan result cached; run a scan first")
	}
	return result, nil
}

// Plan builds a fix plan from the book's cached scan without executing it.
func (s *ReconcileService) Plan(ctx context.Context, bookID string, opts reconcile.PlanOptions) (*reconcile.FixPlan, error) {
	sess, err := s.session(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return sess.BuildPlan(opts)
}

// Fix plans and executes repairs against the book's cached scan.
func (s *ReconcileService) Fix(ctx context.Context, bookID string, opts reconcile.PlanOptions) (*reconcile.FixReport, error) {
	sess, err := s.session(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return sess.RunFix(ctx, opts)
}

// AudioCacheEntry describes one chapter's local audio cache state relative
// to the current synthesis settings.
type AudioCacheEntry struct {
	// Cached means a local blob exists for the current signature, so a fix
	// run can upload it without re-synthesizing.
	Cached bool `json:"cached"`
	// Stale means the chapter's audio is ready but was generated under
	// different settings.
	Stale bool `json:"stale"`
}

// AudioCacheStatus reports, per chapter, whether locally cached audio exists
// for the book's current synthesis settings and whether already-generated
// audio predates them.
func (s *ReconcileService) AudioCacheStatus(ctx context.Context, bookID string) (map[string]AudioCacheEntry, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	voiceID := s.audioCfg.VoiceID
	if book.VoiceID != "" {
		voiceID = book.VoiceID
	}
	signature := audio.Signature(voiceID, s.audioCfg.RulesVersion, s.audioCfg.FormatVersion)

	chapters, err := s.store.ListChapters(ctx, bookID)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Check(ctx, chapters, signature)
	if err != nil {
		return nil, err
	}

	out := make(map[string]AudioCacheEntry, len(chapters))
	for _, chapter := range chapters {
		out[chapter.ID] = AudioCacheEntry{
			Cached: cached[chapter.ID],
			Stale:  chapter.AudioStatus == domain.AudioStatusReady && chapter.AudioSignature != signature,
		}
	}
	return out, nil
}

// Progress reports the state of the book's current or last fix run.
func (s *ReconcileService) Progress(ctx context.Context, bookID string) (reconcile.RunState, reconcile.Progress, []string, error) {
	sess, err := s.session(ctx, bookID)
	if err != nil {
		return reconcile.RunStateIdle, reconcile.Progress{}, nil, err
	}
	state, progress, log := sess.Progress()
	return state, progress, log, nil
}

// CancelFix requests cancellation of the book's in-flight fix run.
func (s *ReconcileService) CancelFix(ctx context.Context, bookID string) error {
	sess, err := s.session(ctx, bookID)
	if err != nil {
		return err
	}
	sess.CancelFix()
	return nil
}
