package editor

import (
	"log/slog"
	"time"

	"github.com/aretw0/draft/pkg/core"
)

const (
	// DefaultSwitchTimeout bounds the flush of the active note when another
	// note is selected or created.
	DefaultSwitchTimeout = 2 * time.Second

	// DefaultEventBuffer is the channel size of each subscriber.
	DefaultEventBuffer = 64
)

// options holds the internal configuration for the Manager.
type options struct {
	logger        *slog.Logger
	renderer      core.Renderer
	switchTimeout time.Duration
	eventBuffer   int
}

// Option defines a functional option for configuring the Manager.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:        slog.New(slog.DiscardHandler),
		switchTimeout: DefaultSwitchTimeout,
		eventBuffer:   DefaultEventBuffer,
	}
}

// WithLogger sets the logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRenderer sets the renderer used by Preview.
func WithRenderer(r core.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithSwitchTimeout bounds how long a note switch waits for the outgoing note
// to be saved.
func WithSwitchTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.switchTimeout = d
		}
	}
}

// WithEventBuffer sets the channel size given to each subscriber.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}
