package core

import "context"

// Storage defines the contract for persisting notes.
// Adhering to this interface keeps the editor independent of the
// underlying storage mechanism (Filesystem, SQLite, memory).
// Every call may fail; the editor never assumes durability beyond the
// returned acknowledgment.
type Storage interface {
	// Get retrieves a note by its ID. Missing notes yield ErrNotFound.
	Get(ctx context.Context, id string) (Note, error)

	// Put persists a note. It creates if not exists, or updates if it does.
	Put(ctx context.Context, n Note) error

	// Delete removes a note by its ID. Missing notes yield ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns summaries of all stored notes.
	List(ctx context.Context) ([]Summary, error)
}

// Initializer is implemented by storages that need setup before use
// (e.g., create directories, schema migration).
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Watchable is implemented by storages that can report external changes.
type Watchable interface {
	// Watch emits events for notes whose ID matches the glob pattern until ctx ends.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Renderer converts note content into a preview representation.
// The editor passes raw content through and never inspects the output.
type Renderer interface {
	Render(content string) (string, error)
}

// EventType represents the type of change in the storage.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the storage.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return string(e.Type) + " " + e.ID
}
