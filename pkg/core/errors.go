package core

import (
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	ErrNotFound = errors.New("note not found")
	ErrTimeout  = errors.New("save timed out")
	ErrEmptyID  = errors.New("note ID cannot be empty")
)

// NotFoundError reports an operation on a note id that does not exist.
// It is a caller bug, never a transient condition.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("note %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IOError wraps a failed Storage call.
type IOError struct {
	Op  string // "get", "put", "delete", "list"
	ID  string
	Err error
}

func (e *IOError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a save that did not settle within a bounded wait.
type TimeoutError struct {
	ID   string
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("save of note %s did not complete within %s", e.ID, e.Wait)
	}
	return fmt.Sprintf("save of note %s did not complete in time", e.ID)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsNotFound reports whether err means the note does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
