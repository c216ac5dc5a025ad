// Package sqlite stores notes in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/introspection"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aretw0/draft/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    title_override INTEGER NOT NULL DEFAULT 0,
    content TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated_at DESC);
`

// Config holds the configuration for the SQLite repository.
type Config struct {
	// Path of the database file. ":memory:" keeps everything in memory.
	Path   string
	Logger *slog.Logger
}

// Repository implements core.Storage on SQLite.
type Repository struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens or creates the database at config.Path. Call Initialize to
// create the schema.
func Open(config Config) (*Repository, error) {
	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", config.Path, err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{db: db, path: config.Path, logger: logger}, nil
}

// Initialize creates the notes table.
func (r *Repository) Initialize(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Get(ctx context.Context, id string) (core.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, title_override, content, tags, created_at, updated_at FROM notes WHERE id = ?`, id)

	var (
		n        core.Note
		override int
		tags     string
		created  int64
		updated  int64
	)
	err := row.Scan(&n.ID, &n.Title, &override, &n.Content, &tags, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Note{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Note{}, fmt.Errorf("select %s: %w", id, err)
	}

	n.TitleOverride = override != 0
	n.CreatedAt = time.Unix(0, created).UTC()
	n.UpdatedAt = time.Unix(0, updated).UTC()
	if n.Tags, err = decodeTags(tags); err != nil {
		return core.Note{}, fmt.Errorf("decode tags of %s: %w", id, err)
	}
	return n, nil
}

func (r *Repository) Put(ctx context.Context, n core.Note) error {
	if n.ID == "" {
		return core.ErrEmptyID
	}
	tags, err := json.Marshal(nonNil(n.Tags))
	if err != nil {
		return fmt.Errorf("encode tags of %s: %w", n.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO notes (id, title, title_override, content, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    title_override = excluded.title_override,
    content = excluded.content,
    tags = excluded.tags,
    updated_at = excluded.updated_at`,
		n.ID, n.Title, boolInt(n.TitleOverride), n.Content, string(tags),
		n.CreatedAt.UnixNano(), n.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", n.ID, err)
	}
	r.logger.Debug("wrote note", "id", n.ID)
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// List returns summaries, most recently updated first.
func (r *Repository) List(ctx context.Context) ([]core.Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, tags, created_at, updated_at FROM notes ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []core.Summary
	for rows.Next() {
		var (
			s       core.Summary
			tags    string
			created int64
			updated int64
		)
		if err := rows.Scan(&s.ID, &s.Title, &tags, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if s.Tags, err = decodeTags(tags); err != nil {
			r.logger.Warn("ignoring malformed tags", "id", s.ID, "error", err)
			s.Tags = []string{}
		}
		s.CreatedAt = time.Unix(0, created).UTC()
		s.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path      string `json:"path"`
	OpenConns int    `json:"open_connections"`
	InUse     int    `json:"in_use"`
	WaitCount int64  `json:"wait_count"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	st := r.db.Stats()
	return RepositoryState{
		Path:      r.path,
		OpenConns: st.OpenConnections,
		InUse:     st.InUse,
		WaitCount: st.WaitCount,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "sqlite-repository"
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ core.Storage = (*Repository)(nil)
var _ core.Initializer = (*Repository)(nil)
var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
