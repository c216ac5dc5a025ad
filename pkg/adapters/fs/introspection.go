package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	CacheSize     int        `json:"cache_size"`
	WatcherActive bool       `json:"watcher_active"`
	Watchers      int        `json:"watchers"`
	LastList      *time.Time `json:"last_list,omitempty"`
	LastListCount int        `json:"last_list_count"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Path:          r.Path,
		SystemDir:     r.config.SystemDir,
		CacheSize:     r.cache.size(),
		WatcherActive: r.watchers > 0,
		Watchers:      r.watchers,
		LastList:      r.lastListed,
		LastListCount: r.lastListCount,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "fs-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) watcherStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers++
}

func (r *Repository) watcherStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers--
}

func (r *Repository) recordList(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.lastListed = &now
	r.lastListCount = n
}
