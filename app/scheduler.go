package app

import (
	"sync"
	"time"

	"github.com/artpar/coursesync/ports"
)

// Debouncer runs at most one pending call per key. Scheduling a key again
// before its call fires cancels the previous call.
//
// Each pending call carries a generation number. A timer whose callback
// raced with a re-arm sees a stale generation and does nothing, so only the
// last scheduled call for a key ever runs.
type Debouncer struct {
	clock ports.Clock

	mu      sync.Mutex
	pending map[string]*pendingCall
	gen     uint64
	stopped bool
}

type pendingCall struct {
	timer ports.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer driven by clock.
func NewDebouncer(clock ports.Clock) *Debouncer {
	return &Debouncer{
		clock:   clock,
		pending: make(map[string]*pendingCall),
	}
}

// Schedule arms fn to run after delay, replacing any pending call for key.
// It is a no-op after Stop.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}

	d.gen++
	gen := d.gen
	call := &pendingCall{gen: gen}
	d.pending[key] = call
	call.timer = d.clock.AfterFunc(delay, func() {
		if d.take(key, gen) {
			fn()
		}
	})
}

// take removes the pending call for key if it is still generation gen.
func (d *Debouncer) take(key string, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	call, ok := d.pending[key]
	if !ok || call.gen != gen {
		return false
	}
	delete(d.pending, key)
	return true
}

// Cancel drops the pending call for key. It reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	call, ok := d.pending[key]
	if !ok {
		return false
	}
	call.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending reports whether a call is armed for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Len returns the number of armed calls.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending call and rejects further scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, call := range d.pending {
		call.timer.Stop()
		delete(d.pending, key)
	}
	d.stopped = true
}
