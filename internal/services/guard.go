package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// PassGuard admits at most one materialization pass at a time. A request
// arriving while a pass runs is dropped, not queued: passes re-derive
// everything from the current snapshot, so the next feed tick produces a
// fully correct pass anyway.
type PassGuard struct {
	running atomic.Bool
}

// TryStart moves the guard from idle to running. It returns false when a pass
// already holds the slot.
func (g *PassGuard) TryStart() bool {
	return g.running.CompareAndSwap(false, true)
}

// Done releases the slot. Call it when the pass finishes, success or failure.
func (g *PassGuard) Done() {
	g.running.Store(false)
}

// Running reports whether a pass currently holds the slot.
func (g *PassGuard) Running() bool {
	return g.running.Load()
}

// Debouncer coalesces bursts of triggers: fn runs once a fixed quiet delay
// after the most recent Trigger. Each Trigger during the delay restarts it.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func()
}

func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn after the quiet delay, replacing any pending schedule.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending run.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
