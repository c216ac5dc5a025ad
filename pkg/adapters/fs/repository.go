// Package fs stores notes as Markdown files with YAML frontmatter, one file
// per note, in a single directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/draft/pkg/core"
)

const (
	noteExt = ".md"

	// DefaultSystemDir holds the index cache inside the notes directory.
	DefaultSystemDir = ".draft"

	// DefaultWatchDebounce coalesces the burst of events one save produces.
	DefaultWatchDebounce = 50 * time.Millisecond
)

// ErrInvalidID is returned for ids that cannot be used as a file name.
var ErrInvalidID = errors.New("invalid note id")

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path          string
	SystemDir     string // defaults to DefaultSystemDir
	MustExist     bool
	Logger        *slog.Logger
	WatchDebounce time.Duration // defaults to DefaultWatchDebounce
}

// Repository implements core.Storage on a directory of Markdown files.
type Repository struct {
	Path   string
	config Config
	cache  *cache
	logger *slog.Logger

	mu            sync.RWMutex
	watchers      int
	lastListed    *time.Time
	lastListCount int
}

// NewRepository creates a filesystem-backed repository. Call Initialize
// before use.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.WatchDebounce <= 0 {
		config.WatchDebounce = DefaultWatchDebounce
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{
		Path:   config.Path,
		config: config,
		cache:  newCache(config.Path, config.SystemDir),
		logger: logger,
	}
}

// Initialize creates the notes directory, unless MustExist is set, and loads
// the index cache.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("notes path does not exist: %s", r.Path)
		}
		if err != nil {
			return fmt.Errorf("stat notes path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("notes path is not a directory: %s", r.Path)
		}
	} else if err := os.MkdirAll(r.Path, 0o755); err != nil {
		return fmt.Errorf("create notes directory: %w", err)
	}

	if err := r.cache.load(); err != nil {
		r.logger.Warn("ignoring unreadable index", "path", r.cache.path, "error", err)
	}
	return nil
}

// Get reads a note file.
func (r *Repository) Get(ctx context.Context, id string) (core.Note, error) {
	if err := ctx.Err(); err != nil {
		return core.Note{}, err
	}
	path, err := r.notePath(id)
	if err != nil {
		return core.Note{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return core.Note{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Note{}, fmt.Errorf("read %s: %w", id, err)
	}

	n, err := decodeNote(data, id)
	if err != nil {
		return core.Note{}, err
	}
	if n.CreatedAt.IsZero() || n.UpdatedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			fillTimes(&n, info.ModTime())
		}
	}
	return n, nil
}

// Put writes a note file atomically.
func (r *Repository) Put(ctx context.Context, n core.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.notePath(n.ID)
	if err != nil {
		return err
	}

	data, err := encodeNote(n)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", n.ID, err)
	}

	if info, err := os.Stat(path); err == nil {
		r.cache.store(filepath.Base(path), newIndexEntry(n, info.ModTime()))
	}
	r.logger.Debug("wrote note", "id", n.ID, "bytes", len(data))
	return nil
}

// Delete removes a note file.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.notePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &core.NotFoundError{ID: id}
		}
		return fmt.Errorf("remove %s: %w", id, err)
	}
	r.cache.forget(filepath.Base(path))
	r.logger.Debug("removed note", "id", id)
	return nil
}

// List returns summaries of all note files, most recently updated first.
// Files whose mtime matches the index are not parsed. Unreadable files are
// skipped.
func (r *Repository) List(ctx context.Context) ([]core.Summary, error) {
	entries, err := os.ReadDir(r.Path)
	if err != nil {
		return nil, fmt.Errorf("read notes directory: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	out := make([]core.Summary, 0, len(entries))
	for _, d := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := d.Name()
		if d.IsDir() || !isNoteFile(name) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		seen[name] = true

		if e, hit := r.cache.lookup(name, info.ModTime()); hit {
			out = append(out, e.summary())
			continue
		}

		id := strings.TrimSuffix(name, noteExt)
		data, err := os.ReadFile(filepath.Join(r.Path, name))
		if err != nil {
			r.logger.Warn("skipping unreadable note", "file", name, "error", err)
			continue
		}
		n, err := decodeNote(data, id)
		if err != nil {
			r.logger.Warn("skipping unparseable note", "file", name, "error", err)
			continue
		}
		fillTimes(&n, info.ModTime())

		e := newIndexEntry(n, info.ModTime())
		r.cache.store(name, e)
		out = append(out, e.summary())
	}

	r.cache.prune(seen)
	if err := r.cache.save(); err != nil {
		r.logger.Warn("saving index failed", "error", err)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	r.recordList(len(out))
	return out, nil
}

func (r *Repository) notePath(id string) (string, error) {
	if id == "" {
		return "", core.ErrEmptyID
	}
	if strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") || strings.ContainsRune(id, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(r.Path, id+noteExt), nil
}

func isNoteFile(name string) bool {
	return filepath.Ext(name) == noteExt && !strings.HasPrefix(name, ".")
}

func fillTimes(n *core.Note, mtime time.Time) {
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = mtime
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = n.UpdatedAt
	}
}

var _ core.Storage = (*Repository)(nil)
var _ core.Initializer = (*Repository)(nil)
var _ core.Watchable = (*Repository)(nil)
