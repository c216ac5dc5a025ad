package draft

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/draft/internal/platform"
	"github.com/aretw0/draft/pkg/core"
)

// --- Types ---

// Session bundles storage, the auto-save engine and the editor.
type Session = platform.Session

// Option defines a functional option for configuring a Session.
type Option = platform.Option

// Storage adapter names.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterMemory = platform.AdapterMemory
)

// --- Configuration ---

// WithStorage injects a custom storage adapter.
func WithStorage(s core.Storage) Option {
	return platform.WithStorage(s)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRenderer replaces the Markdown preview renderer.
func WithRenderer(r core.Renderer) Option {
	return platform.WithRenderer(r)
}

// WithAutoSaveDelay sets the quiet period before an edit is saved.
func WithAutoSaveDelay(d time.Duration) Option {
	return platform.WithAutoSaveDelay(d)
}

// WithFlushTimeout bounds the wait for each note on Close.
func WithFlushTimeout(d time.Duration) Option {
	return platform.WithFlushTimeout(d)
}

// WithSwitchTimeout bounds the save of the outgoing note on a switch.
func WithSwitchTimeout(d time.Duration) Option {
	return platform.WithSwitchTimeout(d)
}

// WithEventBuffer sets the channel size of editor subscribers.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithSystemDir sets the hidden directory name (e.g. ".draft").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithMustExist ensures the notes directory already exists.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the sandbox applied under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithWatch picks up notes changed by other programs.
func WithWatch(enabled bool) Option {
	return platform.WithWatch(enabled)
}

// --- Factory ---

// New opens an editing session on the notes at path.
func New(ctx context.Context, path string, opts ...Option) (*Session, error) {
	return platform.New(ctx, path, opts...)
}

// Init prepares storage without starting an editing session. The returned
// function releases it.
func Init(ctx context.Context, path string, opts ...Option) (core.Storage, func() error, error) {
	s, _, release, err := platform.Init(ctx, path, opts...)
	return s, release, err
}

// --- Safety & Utils ---

// ResolveNotesPath determines where notes really live based on safety rules.
func ResolveNotesPath(userPath string, forceTemp bool) string {
	return platform.ResolvePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindRoot looks upwards from startDir for a notes directory.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir, "")
}
