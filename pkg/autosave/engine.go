// Package autosave turns a stream of content changes into rate-limited,
// per-note serialized persistence calls and tracks the resulting SaveState.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/draft/internal/debounce"
	"github.com/aretw0/draft/pkg/core"
)

// Binding connects a tracked note to its owner. The engine reads the note and
// reports saves through it but never owns the note.
type Binding struct {
	// Snapshot returns the owner's current copy of the note. Its Content is
	// replaced by the latest value given to NotifyChange, if any.
	Snapshot func() core.Note
	// Saved is called after a successful write with the save timestamp.
	Saved func(at time.Time)
}

// FlushResult is the outcome of flushing one note.
type FlushResult struct {
	ID    string
	State core.SaveState
	Err   error
}

type session struct {
	id         string
	binding    Binding
	content    string
	hasContent bool
	gen        uint64 // bumped on every change
	savedGen   uint64 // generation covered by the last successful write
	state      core.SaveState
	released   bool
}

func (s *session) dirty() bool {
	return s.gen != s.savedGen
}

// attempt is a single Put in flight.
type attempt struct {
	done chan struct{}
	err  error
	at   time.Time
}

var settled = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Engine debounces content changes into storage writes.
type Engine struct {
	mu       sync.Mutex
	storage  core.Storage
	opts     *options
	timers   *debounce.Debouncer
	sessions map[string]*session
	inflight map[string]*attempt // keyed by note id, outlives sessions
	watchers []watcher
	nextW    int
	closed   bool
}

type watcher struct {
	id int
	fn func(id string, s core.SaveState)
}

// New creates an Engine writing to storage.
func New(storage core.Storage, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Engine{
		storage:  storage,
		opts:     o,
		timers:   debounce.New(o.delay),
		sessions: make(map[string]*session),
		inflight: make(map[string]*attempt),
	}
}

// Delay returns the debounce delay.
func (e *Engine) Delay() time.Duration {
	return e.opts.delay
}

// Track starts a save session for a note in state Idle. Tracking an id that
// is already tracked only replaces its binding.
func (e *Engine) Track(id string, b Binding) {
	if b.Snapshot == nil {
		b.Snapshot = func() core.Note { return core.Note{ID: id} }
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[id]; ok {
		s.binding = b
		return
	}
	s := &session{id: id, binding: b}
	e.sessions[id] = s
	e.setState(s, core.SaveState{Status: core.StatusIdle})
	e.opts.logger.Debug("tracking note", "id", id)
}

// Observe registers fn for every SaveState transition, under the same rules as
// WithStateHook. The returned function removes it.
func (e *Engine) Observe(fn func(id string, s core.SaveState)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextW++
	w := watcher{id: e.nextW, fn: fn}
	e.watchers = append(e.watchers, w)
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.watchers = slices.DeleteFunc(e.watchers, func(x watcher) bool { return x.id == w.id })
	}
}

// Tracked reports whether id has a save session.
func (e *Engine) Tracked(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[id]
	return ok
}

// SaveState returns the state of a note. Untracked notes are Idle.
func (e *Engine) SaveState(id string) core.SaveState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[id]; ok {
		return s.state
	}
	return core.SaveState{Status: core.StatusIdle}
}

// NotifyChange records new content for a note and restarts its debounce timer.
// Repeated calls inside the delay coalesce into one write of the last content.
// Changes for untracked notes are ignored.
func (e *Engine) NotifyChange(id, content string) core.SaveState {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	if !ok || e.closed {
		e.opts.logger.Warn("ignoring change for untracked note", "id", id)
		return core.SaveState{Status: core.StatusIdle}
	}

	s.content = content
	s.hasContent = true
	s.gen++
	e.setState(s, core.SaveState{Status: core.StatusPending})
	e.schedule(s)
	return s.state
}

// SaveNow cancels the pending timer and writes the note immediately, after
// any write already in flight for it has settled. A note without unsaved
// changes is left alone and its current state returned.
//
// Failures are reported in the returned state and error: *core.IOError for a
// failed write, *core.TimeoutError when ctx ends first, *core.NotFoundError
// for an untracked id.
func (e *Engine) SaveNow(ctx context.Context, id string) (core.SaveState, error) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	e.mu.Unlock()
	if !ok {
		return core.SaveState{Status: core.StatusIdle}, &core.NotFoundError{ID: id}
	}

	e.timers.Cancel(id)
	return e.save(ctx, s)
}

// FlushAll saves every note with unsaved changes or a write in flight. Each
// note gets at most the flush timeout; a stalled note reports a
// *core.TimeoutError and does not hold back the others. Results are sorted by id.
func (e *Engine) FlushAll(ctx context.Context) []FlushResult {
	e.mu.Lock()
	var targets []*session
	for id, s := range e.sessions {
		if s.dirty() || e.inflight[id] != nil {
			targets = append(targets, s)
		}
	}
	e.mu.Unlock()

	results := make([]FlushResult, len(targets))
	var g errgroup.Group
	for i, s := range targets {
		g.Go(func() error {
			e.timers.Cancel(s.id)

			sctx, cancel := context.WithTimeout(ctx, e.opts.flushTimeout)
			defer cancel()

			st, err := e.save(sctx, s)
			var te *core.TimeoutError
			if errors.As(err, &te) {
				te.Wait = e.opts.flushTimeout
			}
			results[i] = FlushResult{ID: s.id, State: st, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(results, func(a, b FlushResult) int { return strings.Compare(a.ID, b.ID) })
	for _, r := range results {
		if r.Err != nil {
			e.opts.logger.Warn("flush failed", "id", r.ID, "error", r.Err)
		}
	}
	return results
}

// Cancel drops the pending debounce timer of a note. Its state is unchanged.
func (e *Engine) Cancel(id string) {
	e.timers.Cancel(id)
}

// Release ends the save session of a note. The pending timer is cancelled and
// the result of a write still in flight is discarded. It returns the last
// state and a channel that is closed once that write has settled.
func (e *Engine) Release(id string) (core.SaveState, <-chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timers.Cancel(id)

	wait := settled
	if a := e.inflight[id]; a != nil {
		wait = a.done
	}

	s, ok := e.sessions[id]
	if !ok {
		return core.SaveState{Status: core.StatusIdle}, wait
	}
	s.released = true
	delete(e.sessions, id)
	e.opts.logger.Debug("released note", "id", id, "state", s.state.Status)
	return s.state, wait
}

// Close stops all timers and waits for running debounce callbacks. It does not
// flush; call FlushAll first.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	if !e.timers.StopAndWait(e.opts.flushTimeout) {
		e.opts.logger.Warn("auto-save callbacks still running after close", "timeout", e.opts.flushTimeout)
	}
}

// schedule must be called with e.mu held.
func (e *Engine) schedule(s *session) {
	e.timers.Debounce(s.id, func() {
		if _, err := e.save(context.Background(), s); err != nil {
			e.opts.logger.Debug("debounced save failed", "id", s.id, "error", err)
		}
	})
}

// save writes s once no other write for the same id is in flight.
func (e *Engine) save(ctx context.Context, s *session) (core.SaveState, error) {
	start := time.Now()
	for {
		e.mu.Lock()
		if s.released {
			st := s.state
			e.mu.Unlock()
			return st, &core.NotFoundError{ID: s.id}
		}

		if a := e.inflight[s.id]; a != nil {
			e.mu.Unlock()
			select {
			case <-a.done:
				continue
			case <-ctx.Done():
				return e.timedOut(ctx, s, start)
			}
		}

		if !s.dirty() {
			st := s.state
			e.mu.Unlock()
			return st, nil
		}

		e.timers.Cancel(s.id)
		a := &attempt{done: make(chan struct{})}
		e.inflight[s.id] = a
		gen := s.gen
		content, hasContent := s.content, s.hasContent
		snapshot := s.binding.Snapshot
		e.setState(s, core.SaveState{Status: core.StatusSaving})
		e.mu.Unlock()

		note := snapshot()
		note.ID = s.id
		if hasContent {
			note.Content = content
		}
		// The stored record carries the time of the save that wrote it.
		at := e.opts.clock()
		note.UpdatedAt = at

		lifecycle.Go(context.Background(), func(ctx context.Context) error {
			e.persist(ctx, s, note, at, gen, a)
			return nil
		}, lifecycle.WithErrorHandler(func(err error) {
			e.opts.logger.Error("auto-save worker failed", "id", s.id, "error", err)
		}))

		select {
		case <-a.done:
			e.mu.Lock()
			st := s.state
			e.mu.Unlock()
			if a.err != nil {
				return st, a.err
			}
			return st, nil
		case <-ctx.Done():
			return e.timedOut(ctx, s, start)
		}
	}
}

// timedOut re-arms the debounce for changes that are still unsaved, so giving
// up on the wait never drops them. Wait is the deadline budget of ctx, when it
// has one.
func (e *Engine) timedOut(ctx context.Context, s *session, start time.Time) (core.SaveState, error) {
	var wait time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		wait = deadline.Sub(start).Round(time.Millisecond)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !s.released && s.dirty() && !e.closed {
		e.schedule(s)
	}
	return s.state, &core.TimeoutError{ID: s.id, Wait: wait}
}

// persist performs the write. It runs outside any caller context: a write in
// flight is never aborted, only waited for.
func (e *Engine) persist(ctx context.Context, s *session, note core.Note, at time.Time, gen uint64, a *attempt) {
	err := e.put(ctx, note)

	e.mu.Lock()
	if e.inflight[s.id] == a {
		delete(e.inflight, s.id)
	}
	if err != nil {
		a.err = &core.IOError{Op: "put", ID: s.id, Err: err}
	}
	a.at = at

	var saved func(time.Time)
	switch {
	case s.released:
		e.opts.logger.Debug("discarding save result of released note", "id", s.id)
	case err != nil:
		e.opts.logger.Warn("auto-save failed", "id", s.id, "error", err)
		e.setState(s, core.SaveState{Status: core.StatusError, Err: a.err})
	default:
		if gen > s.savedGen {
			s.savedGen = gen
		}
		if s.dirty() {
			// Newer edits arrived while writing; their timer is armed.
			e.setState(s, core.SaveState{Status: core.StatusPending})
		} else {
			e.setState(s, core.SaveState{Status: core.StatusSaved, SavedAt: at})
		}
		saved = s.binding.Saved
	}
	e.mu.Unlock()

	if saved != nil {
		saved(at)
	}
	close(a.done)
}

func (e *Engine) put(ctx context.Context, note core.Note) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage panic: %v", r)
		}
	}()
	return e.storage.Put(ctx, note)
}

// setState must be called with e.mu held.
func (e *Engine) setState(s *session, next core.SaveState) {
	prev := s.state
	s.state = next
	if prev.Status == next.Status && next.Status != core.StatusSaved && next.Status != core.StatusError {
		return
	}
	if e.opts.stateHook != nil {
		e.opts.stateHook(s.id, next)
	}
	for _, w := range e.watchers {
		w.fn(s.id, next)
	}
}
