package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lecternapp/lectern-server/internal/errors"
)

// SessionValidator checks that the caller's session is still valid before a
// scan or fix run starts. The single user can still hold a stale session.
type SessionValidator interface {
	Validate(ctx context.Context) error
}

// Session owns the reconciliation state for one book: the cached scan, the
// generation counter that discards superseded scans, and the latch that
// serializes fix runs. One Session per book folder.
type Session struct {
	bookID    string
	folderID  string
	scanner   *Scanner
	executor  *Executor
	validator SessionValidator
	logger    *slog.Logger

	// generation increments on every scan request; a scan whose generation
	// no longer matches when it finishes is stale and its result is dropped.
	generation atomic.Uint64

	mu         sync.Mutex
	scan       *ScanResult
	state      RunState
	tracker    *Tracker
	cancel     context.CancelFunc
	onProgress func(Progress)
}

// NewSession creates a session for one book folder.
func NewSession(bookID, folderID string, scanner *Scanner, executor *Executor, validator SessionValidator, logger *slog.Logger) *Session {
	return &Session{
		bookID:    bookID,
		folderID:  folderID,
		scanner:   scanner,
		executor:  executor,
		validator: validator,
		state:     RunStateIdle,
		logger:    logger,
	}
}

// OnProgress registers a callback invoked after every executed fix step.
// Must be set before the first RunFix.
func (s *Session) OnProgress(fn func(Progress)) {
	s.mu.Lock()
	s.onProgress = fn
	s.mu.Unlock()
}

// RunScan performs a fresh scan and caches the result. If another scan was
// requested while this one ran, the older result is discarded rather than
// overwriting the newer one.
func (s *Session) RunScan(ctx context.Context) (*ScanResult, error) {
	if err := s.validator.Validate(ctx); err != nil {
		return nil, err
	}

	gen := s.generation.Add(1)
	result, err := s.scanner.Scan(ctx, s.folderID)
	if err != nil {
		return nil, err
	}
	result.Generation = gen

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation.Load() {
		s.logger.Debug("discarding superseded scan", "book_id", s.bookID, "generation", gen)
		return result, nil
	}
	s.scan = result
	return result, nil
}

// CachedScan returns the cached scan result, if any.
func (s *Session) CachedScan() (*ScanResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scan == nil {
		return nil, false
	}
	return s.scan, true
}

// BuildPlan builds a fix plan from the cached scan.
func (s *Session) BuildPlan(opts PlanOptions) (*FixPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scan == nil {
		return nil, errors.Validation("no scan result available; run a scan first")
	}
	return BuildPlan(s.scan, opts), nil
}

// RunFix builds a plan from the cached scan and executes it. Only one fix
// run per session at a time; a second request fails with ErrRunBusy. The
// cached scan is invalidated only after a clean, uncanceled completion, so
// an interrupted run can be inspected and retried against the same scan.
func (s *Session) RunFix(ctx context.Context, opts PlanOptions) (*FixReport, error) {
	if err := s.validator.Validate(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == RunStateRunning {
		s.mu.Unlock()
		return nil, errors.ErrRunBusy
	}
	if s.scan == nil {
		s.mu.Unlock()
		return nil, errors.Validation("no scan result available; run a scan first")
	}
	scan := s.scan
	plan := BuildPlan(scan, opts)
	tracker := NewTracker(plan.TotalSteps, s.onProgress)

	runCtx, cancel := context.WithCancel(ctx)
	s.state = RunStateRunning
	s.tracker = tracker
	s.cancel = cancel
	s.mu.Unlock()

	report := s.executor.Execute(runCtx, s.bookID, scan, plan, tracker)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
	switch {
	case report.Canceled:
		s.state = RunStateCanceled
	case report.ErrorCount > 0:
		s.state = RunStateFailed
	default:
		s.state = RunStateCompleted
		// The folder changed under the cached scan; force a rescan before
		// the next plan.
		s.scan = nil
	}
	return report, nil
}

// CancelFix requests cancellation of the in-flight fix run, if any. The run
// stops at the next item boundary.
func (s *Session) CancelFix() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Progress reports the state of the current or most recent fix run.
func (s *Session) Progress() (RunState, Progress, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return s.state, Progress{}, nil
	}
	return s.state, s.tracker.Get(), s.tracker.Log()
}
