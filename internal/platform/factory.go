package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/introspection"

	"github.com/aretw0/draft/pkg/adapters/fs"
	"github.com/aretw0/draft/pkg/adapters/memory"
	"github.com/aretw0/draft/pkg/adapters/sqlite"
	"github.com/aretw0/draft/pkg/autosave"
	"github.com/aretw0/draft/pkg/core"
	"github.com/aretw0/draft/pkg/editor"
	"github.com/aretw0/draft/pkg/render"
)

// sqliteFile is the database name used when the sqlite URI is a directory.
const sqliteFile = "notes.db"

// Session bundles the wired components of an editing session.
type Session struct {
	Storage core.Storage
	Engine  *autosave.Engine
	Editor  *editor.Manager
	// Path is where storage really lives after dev-safety resolution.
	Path string

	cancel  context.CancelFunc
	closers []func() error
}

// Init resolves the storage location for uri and prepares the selected
// adapter. The URI is adapter-specific: a directory for "fs", a database
// file or directory for "sqlite", ignored for "memory".
func Init(ctx context.Context, uri string, opts ...Option) (core.Storage, string, func() error, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return initStorage(ctx, uri, o)
}

func initStorage(ctx context.Context, uri string, o *options) (core.Storage, string, func() error, error) {
	noop := func() error { return nil }
	if o.storage != nil {
		if err := initialize(ctx, o.storage); err != nil {
			return nil, "", nil, err
		}
		return o.storage, uri, noop, nil
	}

	path := uri
	switch {
	case o.tempDir:
		path = ResolvePath(uri, true)
	case o.devSafety && IsDevRun():
		path = ResolvePath(uri, true)
		if path != uri {
			o.logger.Warn("dev run detected, storage redirected", "requested", uri, "path", path)
		}
	}

	switch o.adapter {
	case AdapterMemory:
		return memory.NewRepository(), "", noop, nil

	case AdapterSQLite:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, sqliteFile)
		} else if !o.mustExist {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, "", nil, fmt.Errorf("create database directory: %w", err)
			}
		} else if err != nil {
			return nil, "", nil, fmt.Errorf("database does not exist: %s", path)
		}
		repo, err := sqlite.Open(sqlite.Config{Path: path, Logger: o.logger})
		if err != nil {
			return nil, "", nil, err
		}
		if err := repo.Initialize(ctx); err != nil {
			_ = repo.Close()
			return nil, "", nil, err
		}
		return repo, path, repo.Close, nil

	case AdapterFS, "":
		repo := fs.NewRepository(fs.Config{
			Path:      path,
			SystemDir: o.systemDir,
			MustExist: o.mustExist,
			Logger:    o.logger,
		})
		if err := repo.Initialize(ctx); err != nil {
			return nil, "", nil, err
		}
		return repo, path, noop, nil

	default:
		return nil, "", nil, fmt.Errorf("unknown storage adapter %q", o.adapter)
	}
}

func initialize(ctx context.Context, s core.Storage) error {
	if i, ok := s.(core.Initializer); ok {
		return i.Initialize(ctx)
	}
	return nil
}

// New wires storage, the auto-save engine and the editor, then opens the
// note list. Close the session to flush pending edits.
func New(ctx context.Context, uri string, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	storage, path, closeStorage, err := initStorage(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	var engineOpts []autosave.Option
	engineOpts = append(engineOpts, autosave.WithLogger(o.logger))
	if o.delay > 0 {
		engineOpts = append(engineOpts, autosave.WithDelay(o.delay))
	}
	if o.flushTimeout > 0 {
		engineOpts = append(engineOpts, autosave.WithFlushTimeout(o.flushTimeout))
	}
	engine := autosave.New(storage, engineOpts...)

	renderer := o.renderer
	if renderer == nil {
		renderer = render.NewMarkdown()
	}
	editorOpts := []editor.Option{
		editor.WithLogger(o.logger),
		editor.WithRenderer(renderer),
	}
	if o.switchTimeout > 0 {
		editorOpts = append(editorOpts, editor.WithSwitchTimeout(o.switchTimeout))
	}
	if o.eventBuffer > 0 {
		editorOpts = append(editorOpts, editor.WithEventBuffer(o.eventBuffer))
	}
	ed := editor.New(storage, engine, editorOpts...)

	s := &Session{
		Storage: storage,
		Engine:  engine,
		Editor:  ed,
		Path:    path,
		closers: []func() error{closeStorage},
	}

	if err := ed.Open(ctx); err != nil {
		engine.Close()
		_ = closeStorage()
		return nil, err
	}

	if w, ok := storage.(core.Watchable); ok && o.watch {
		watchCtx, cancel := context.WithCancel(context.Background())
		if err := ed.Watch(watchCtx, w); err != nil {
			o.logger.Warn("storage watch unavailable", "error", err)
			cancel()
		} else {
			s.cancel = cancel
		}
	}
	return s, nil
}

// Close flushes every unsaved note, stops the watcher and releases storage.
// Notes that could not be saved are reported in the returned error.
func (s *Session) Close(ctx context.Context) error {
	results := s.Editor.Close(ctx)
	if s.cancel != nil {
		s.cancel()
	}
	s.Engine.Close()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", r.ID, r.Err))
		}
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State returns the observable state of every component keyed by its
// component type.
func (s *Session) State() map[string]any {
	out := map[string]any{
		s.Engine.ComponentType(): s.Engine.State(),
		s.Editor.ComponentType(): s.Editor.State(),
	}
	if c, ok := s.Storage.(introspection.Component); ok {
		if i, ok := s.Storage.(introspection.Introspectable); ok {
			out[c.ComponentType()] = i.State()
		}
	}
	return out
}
