package prismlate

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Run is the per-run handle owned by the caller that starts a
// whole-document translation. Cancel may be called from any goroutine;
// the field loop checks it before reading each field.
type Run struct {
	id        string
	cancelled atomic.Bool
}

// NewRun creates a run with a fresh ID.
func NewRun() *Run {
	return &Run{id: uuid.NewString()}
}

// NewRunWithID creates a run with a caller-chosen ID.
func NewRunWithID(id string) *Run {
	if id == "" {
		return NewRun()
	}
	return &Run{id: id}
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// Cancel asks the run to stop before its next field. Fields already
// written are left as they are.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (r *Run) Cancelled() bool {
	return r.cancelled.Load()
}

// SelectionGuard prevents overlapping selection translations on one page.
// Triggers arriving while one is in flight are dropped, not queued.
type SelectionGuard struct {
	busy atomic.Bool
}

// TryAcquire claims the guard. It returns false when a selection
// translation is already in flight.
func (g *SelectionGuard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *SelectionGuard) Release() {
	g.busy.Store(false)
}

// Busy reports whether a selection translation is in flight.
func (g *SelectionGuard) Busy() bool {
	return g.busy.Load()
}
