package reconcile

import "sync"

// Progress is a monotonically increasing (current, total) pair. Total is
// fixed once at plan-build time.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Tracker reports executor progress and keeps the human-readable step log
// for display and audit.
type Tracker struct {
	mu       sync.RWMutex
	progress Progress
	log      []string
	callback func(Progress)
}

// NewTracker creates a tracker for a run with the given fixed total.
func NewTracker(total int, callback func(Progress)) *Tracker {
	return &Tracker{
		progress: Progress{Total: total},
		callback: callback,
	}
}

// Step records one executed step with its log line and bumps progress.
func (t *Tracker) Step(line string) {
	t.mu.Lock()
	t.progress.Current++
	t.log = append(t.log, line)
	progress := t.progress
	callback := t.callback
	t.mu.Unlock()

	if callback != nil {
		callback(progress)
	}
}

// Note appends a log line without advancing progress (phase banners,
// skip notices).
func (t *Tracker) Note(line string) {
	t.mu.Lock()
	t.log = append(t.log, line)
	t.mu.Unlock()
}

// Get returns the current progress.
func (t *Tracker) Get() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

// Log returns a copy of the step log.
func (t *Tracker) Log() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.log))
	copy(out, t.log)
	return out
}
