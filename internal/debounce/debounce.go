// Package debounce provides cancellable callbacks keyed by string.
package debounce

import (
	"sync"
	"time"
)

type entry struct {
	timer *time.Timer
	seq   uint64
}

// Debouncer runs a callback once a key has been quiet for a fixed duration.
// Scheduling a key again cancels the callback installed before it.
type Debouncer struct {
	mu       sync.Mutex
	timers   map[string]*entry
	duration time.Duration
	seq      uint64
	stopped  bool
	running  sync.WaitGroup
}

// New creates a debouncer with the specified quiet period.
func New(duration time.Duration) *Debouncer {
	return &Debouncer{
		timers:   make(map[string]*entry),
		duration: duration,
	}
}

// Duration returns the quiet period.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

// Debounce schedules fn for key, replacing any callback still pending for it.
// It reports false when the debouncer has been stopped.
func (d *Debouncer) Debounce(key string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	if e, ok := d.timers[key]; ok {
		e.timer.Stop()
	}

	d.seq++
	e := &entry{seq: d.seq}
	e.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		// A callback that lost the race with Stop in Debounce/Cancel is stale.
		if cur, ok := d.timers[key]; !ok || cur.seq != e.seq || d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.running.Add(1)
		d.mu.Unlock()

		defer d.running.Done()
		fn()
	})
	d.timers[key] = e
	return true
}

// Cancel drops the pending callback for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.timers[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.timers, key)
	return true
}

// Pending reports whether a callback is scheduled for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Len returns the number of scheduled callbacks.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// StopAndWait cancels every pending callback, refuses new ones and waits up to
// timeout for callbacks that are already running. It reports whether they all
// returned in time.
func (d *Debouncer) StopAndWait(timeout time.Duration) bool {
	d.mu.Lock()
	d.stopped = true
	for key, e := range d.timers {
		e.timer.Stop()
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
