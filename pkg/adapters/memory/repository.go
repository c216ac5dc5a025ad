// Package memory provides a map-backed core.Storage. Notes are copied on the
// way in and out, so callers never share slices with the store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/draft/pkg/core"
)

// Repository implements core.Storage in memory.
type Repository struct {
	mu    sync.RWMutex
	notes map[string]core.Note
	puts  int
}

// NewRepository creates an empty in-memory repository.
func NewRepository(seed ...core.Note) *Repository {
	r := &Repository{notes: make(map[string]core.Note)}
	for _, n := range seed {
		r.notes[n.ID] = n.Clone()
	}
	return r
}

func (r *Repository) Get(ctx context.Context, id string) (core.Note, error) {
	if err := ctx.Err(); err != nil {
		return core.Note{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notes[id]
	if !ok {
		return core.Note{}, &core.NotFoundError{ID: id}
	}
	return n.Clone(), nil
}

func (r *Repository) Put(ctx context.Context, n core.Note) error {
	if n.ID == "" {
		return core.ErrEmptyID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notes[n.ID] = n.Clone()
	r.puts++
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notes[id]; !ok {
		return &core.NotFoundError{ID: id}
	}
	delete(r.notes, id)
	return nil
}

// List returns summaries, most recently updated first.
func (r *Repository) List(ctx context.Context) ([]core.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Summary, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Len returns the number of stored notes.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notes)
}

// Puts returns how many writes the repository has accepted.
func (r *Repository) Puts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.puts
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	return map[string]int{"notes": r.Len(), "puts": r.Puts()}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "memory-repository"
}

var _ core.Storage = (*Repository)(nil)
var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
