package editor

import (
	"github.com/aretw0/introspection"
)

// ManagerState exposes internal state for observability.
type ManagerState struct {
	Active      string   `json:"active,omitempty"`
	ActiveSave  string   `json:"active_save"`
	Notes       int      `json:"notes"`
	Unsaved     []string `json:"unsaved,omitempty"`
	Subscribers int      `json:"subscribers"`
	Closed      bool     `json:"closed"`
}

// State implements introspection.Introspectable.
func (m *Manager) State() any {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := ManagerState{
		ActiveSave:  "idle",
		Notes:       len(m.notes),
		Subscribers: m.events.len(),
		Closed:      m.closed,
	}
	if m.active != nil {
		st.Active = m.active.id
		st.ActiveSave = m.engine.SaveState(m.active.id).Status.String()
	}
	for _, e := range m.notes {
		if e.isDirty() || (e == m.active && m.engine.SaveState(e.id).Dirty()) {
			st.Unsaved = append(st.Unsaved, e.id)
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (m *Manager) ComponentType() string {
	return "editor"
}

var _ introspection.Introspectable = (*Manager)(nil)
var _ introspection.Component = (*Manager)(nil)
