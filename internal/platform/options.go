package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/draft/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMemory = "memory"
)

// options holds the internal configuration for a draft session.
type options struct {
	storage       core.Storage
	adapter       string
	logger        *slog.Logger
	renderer      core.Renderer
	delay         time.Duration
	flushTimeout  time.Duration
	switchTimeout time.Duration
	eventBuffer   int
	systemDir     string
	mustExist     bool
	tempDir       bool
	devSafety     bool
	watch         bool
}

// Option defines a functional option for configuring a session.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:   AdapterFS,
		logger:    slog.New(slog.DiscardHandler),
		devSafety: true,
	}
}

// WithStorage injects a storage adapter (e.g. a mock). The adapter named by
// WithAdapter is then skipped.
func WithStorage(s core.Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithAdapter selects the storage adapter by name: "fs" (default), "sqlite"
// or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRenderer replaces the Markdown preview renderer.
func WithRenderer(r core.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithAutoSaveDelay sets the quiet period before an edit is saved.
func WithAutoSaveDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithFlushTimeout bounds the wait for each note when the session closes.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		o.flushTimeout = d
	}
}

// WithSwitchTimeout bounds the save of the outgoing note on a note switch.
func WithSwitchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.switchTimeout = d
	}
}

// WithEventBuffer sets the channel size of editor subscribers.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithSystemDir sets the hidden directory of the fs adapter (default ".draft").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithMustExist requires the notes directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithForceTemp re-roots storage into a temporary directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.tempDir = force
	}
}

// WithDevSafety controls the sandbox applied under `go run` and `go test`.
// By default storage paths outside the temp directory are redirected there.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithWatch refreshes the note list from external changes when the storage
// supports it.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}
