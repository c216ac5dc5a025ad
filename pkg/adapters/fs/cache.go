package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/draft/pkg/core"
)

const indexVersion = 1

// indexEntry is the list projection of one note file, valid while the file
// keeps the recorded mtime.
type indexEntry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created"`
	UpdatedAt    time.Time `json:"updated"`
	LastModified time.Time `json:"lastModified"`
}

func newIndexEntry(n core.Note, mtime time.Time) *indexEntry {
	return &indexEntry{
		ID:           n.ID,
		Title:        n.Title,
		Tags:         n.Tags,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
		LastModified: mtime,
	}
}

func (e *indexEntry) summary() core.Summary {
	return core.Summary{
		ID:        e.ID,
		Title:     e.Title,
		Tags:      append([]string(nil), e.Tags...),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

type indexFile struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"` // keyed by file name
}

// cache keeps the note index in {root}/{systemDir}/index.json so that List
// only parses files that changed since the last run.
type cache struct {
	path string

	mu      sync.RWMutex
	entries map[string]*indexEntry
	dirty   bool
}

func newCache(root, systemDir string) *cache {
	return &cache{
		path:    filepath.Join(root, systemDir, "index.json"),
		entries: make(map[string]*indexEntry),
	}
}

// load reads the index from disk. A missing, corrupt or outdated index is
// treated as empty.
func (c *cache) load() error {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	var f indexFile
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := json.Unmarshal(data, &f); err != nil || f.Version != indexVersion || f.Entries == nil {
		c.entries = make(map[string]*indexEntry)
		c.dirty = true
		return nil
	}
	c.entries = f.Entries
	c.dirty = false
	return nil
}

// save writes the index when it changed since the last load or save.
func (c *cache) save() error {
	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(indexFile{Version: indexVersion, Entries: c.entries}, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := writeFileAtomic(c.path, data, 0o644); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// lookup returns the entry for name if it was recorded with the same mtime.
func (c *cache) lookup(name string, mtime time.Time) (*indexEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok || !e.LastModified.Equal(mtime) {
		return nil, false
	}
	return e, true
}

func (c *cache) store(name string, e *indexEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = e
	c.dirty = true
}

func (c *cache) forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		delete(c.entries, name)
		c.dirty = true
	}
}

// prune drops entries for files that no longer exist.
func (c *cache) prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range c.entries {
		if !keep[name] {
			delete(c.entries, name)
			c.dirty = true
		}
	}
}

func (c *cache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
