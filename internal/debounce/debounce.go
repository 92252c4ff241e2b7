// Package debounce coalesces bursts of calls into one.
//
// A Debouncer holds at most one pending callback. Schedule replaces the
// pending callback and restarts the quiet period, so after a burst only
// the last scheduled callback runs, once, delay after the last Schedule.
// CancelPending drops the pending callback without running it.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delays and coalesces callbacks. The zero value is not usable;
// call New.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	// seq identifies the most recent Schedule; a timer that fires for an
	// older seq does nothing.
	seq uint64
}

// New returns a Debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule arranges for fn to run after the quiet period, replacing any
// callback still pending.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// CancelPending drops the pending callback. It reports whether one was
// pending. A callback that has already started is not interrupted.
func (d *Debouncer) CancelPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	d.seq++
	d.timer.Stop()
	d.timer = nil
	return true
}

// Pending reports whether a callback is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
