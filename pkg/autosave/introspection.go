package autosave

import (
	"sort"

	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Delay         string            `json:"delay"`
	FlushTimeout  string            `json:"flush_timeout"`
	Sessions      map[string]string `json:"sessions"`
	InFlight      []string          `json:"in_flight,omitempty"`
	PendingTimers int               `json:"pending_timers"`
	Closed        bool              `json:"closed"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions := make(map[string]string, len(e.sessions))
	for id, s := range e.sessions {
		sessions[id] = s.state.Status.String()
	}
	inflight := make([]string, 0, len(e.inflight))
	for id := range e.inflight {
		inflight = append(inflight, id)
	}
	sort.Strings(inflight)

	return EngineState{
		Delay:         e.opts.delay.String(),
		FlushTimeout:  e.opts.flushTimeout.String(),
		Sessions:      sessions,
		InFlight:      inflight,
		PendingTimers: e.timers.Len(),
		Closed:        e.closed,
	}
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "autosave"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
