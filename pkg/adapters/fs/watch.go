package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/draft/internal/debounce"
	"github.com/aretw0/draft/pkg/core"
)

// Watch reports changes to note files whose id matches the doublestar pattern
// until ctx ends, then closes the channel. An empty pattern matches every
// note. Bursts of events for one file are coalesced and the event type is
// decided from the file's state once the burst is over.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("watch pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(r.Path); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", r.Path, err)
	}

	w := &watcher{
		repo:    r,
		pattern: pattern,
		fsw:     fsw,
		out:     make(chan core.Event, 64),
		timers:  debounce.New(r.config.WatchDebounce),
		known:   r.existingIDs(),
	}
	r.watcherStarted()

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		r.logger.Error("fs watcher failed", "path", r.Path, "error", err)
	}))
	return w.out, nil
}

type watcher struct {
	repo    *Repository
	pattern string
	fsw     *fsnotify.Watcher
	out     chan core.Event
	timers  *debounce.Debouncer

	mu    sync.Mutex
	known map[string]bool
}

func (w *watcher) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		_ = w.fsw.Close()
		if !w.timers.StopAndWait(time.Second) {
			w.repo.logger.Warn("fs watcher callbacks still running at shutdown")
		}
		w.repo.watcherStopped()
		close(w.out)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.repo.logger.Error("fsnotify error", "error", err)
		}
	}
}

func (w *watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	name := filepath.Base(ev.Name)
	if !isNoteFile(name) {
		return
	}
	id := strings.TrimSuffix(name, noteExt)
	if ok, _ := doublestar.Match(w.pattern, id); !ok {
		return
	}
	w.repo.logger.Debug("fs event", "op", ev.Op.String(), "id", id)
	w.timers.Debounce(id, func() { w.emit(ctx, id) })
}

// emit sends the settled change for id.
func (w *watcher) emit(ctx context.Context, id string) {
	_, err := os.Stat(filepath.Join(w.repo.Path, id+noteExt))
	exists := err == nil

	w.mu.Lock()
	var typ core.EventType
	switch {
	case !exists && w.known[id]:
		typ = core.EventDelete
		delete(w.known, id)
	case !exists:
		// Created and removed inside one burst.
	case w.known[id]:
		typ = core.EventModify
	default:
		typ = core.EventCreate
		w.known[id] = true
	}
	w.mu.Unlock()
	if typ == "" {
		return
	}

	defer func() {
		// out is closed once the watcher stops; late sends are dropped.
		_ = recover()
	}()
	select {
	case w.out <- core.Event{Type: typ, ID: id, Timestamp: time.Now().Unix()}:
	case <-ctx.Done():
	}
}

func (r *Repository) existingIDs() map[string]bool {
	known := make(map[string]bool)
	entries, err := os.ReadDir(r.Path)
	if err != nil {
		return known
	}
	for _, d := range entries {
		if !d.IsDir() && isNoteFile(d.Name()) {
			known[strings.TrimSuffix(d.Name(), noteExt)] = true
		}
	}
	return known
}
