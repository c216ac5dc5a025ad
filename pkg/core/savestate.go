package core

import (
	"fmt"
	"time"
)

// SaveStatus describes how the in-memory copy of a note relates to the
// persisted one.
type SaveStatus int

const (
	StatusIdle    SaveStatus = iota // matches the last persisted content
	StatusPending                   // changed, save not fired yet
	StatusSaving                    // persistence call in flight
	StatusSaved                     // last save succeeded
	StatusError                     // last save failed, retryable
)

func (s SaveStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("SaveStatus(%d)", int(s))
	}
}

// SaveState is the session-scoped save status of a note. It is never persisted.
type SaveState struct {
	Status  SaveStatus
	SavedAt time.Time // set when Status is StatusSaved
	Err     error     // set when Status is StatusError
}

// Dirty reports whether the state implies unsaved changes.
func (s SaveState) Dirty() bool {
	switch s.Status {
	case StatusPending, StatusSaving, StatusError:
		return true
	}
	return false
}

func (s SaveState) String() string {
	switch s.Status {
	case StatusSaved:
		return fmt.Sprintf("saved at %s", s.SavedAt.Format(time.RFC3339))
	case StatusError:
		return fmt.Sprintf("error: %v", s.Err)
	default:
		return s.Status.String()
	}
}
