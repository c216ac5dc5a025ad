package autosave

import (
	"log/slog"
	"time"

	"github.com/aretw0/draft/pkg/core"
)

const (
	// DefaultDelay is the quiet period after the last change before a save fires.
	DefaultDelay = 5 * time.Second

	// DefaultFlushTimeout bounds the wait for each note during FlushAll.
	DefaultFlushTimeout = 3 * time.Second
)

// options holds the internal configuration for the Engine.
type options struct {
	delay        time.Duration
	flushTimeout time.Duration
	logger       *slog.Logger
	clock        func() time.Time
	stateHook    func(id string, s core.SaveState)
}

// Option defines a functional option for configuring the Engine.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		delay:        DefaultDelay,
		flushTimeout: DefaultFlushTimeout,
		logger:       slog.New(slog.DiscardHandler),
		clock:        time.Now,
	}
}

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithFlushTimeout sets the per-note bound applied by FlushAll.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushTimeout = d
		}
	}
}

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for save timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithStateHook registers a function called on every SaveState transition, in
// order. It runs while the engine holds its lock and must not call back into
// the Engine.
func WithStateHook(hook func(id string, s core.SaveState)) Option {
	return func(o *options) {
		o.stateHook = hook
	}
}
