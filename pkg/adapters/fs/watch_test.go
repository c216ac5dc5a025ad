package fs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/draft/pkg/adapters/fs"
	"github.com/aretw0/draft/pkg/core"
)

func nextEvent(t *testing.T, events <-chan core.Event) core.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return core.Event{}
	}
}

func TestWatch_ReportsLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := newRepo(t)

	events, err := repo.Watch(ctx, "")
	require.NoError(t, err)

	require.NoError(t, repo.Put(ctx, note("n1", "first", time.Now())))
	ev := nextEvent(t, events)
	assert.Equal(t, core.EventCreate, ev.Type)
	assert.Equal(t, "n1", ev.ID)

	require.NoError(t, repo.Put(ctx, note("n1", "second", time.Now())))
	ev = nextEvent(t, events)
	assert.Equal(t, core.EventModify, ev.Type)

	require.NoError(t, repo.Delete(ctx, "n1"))
	ev = nextEvent(t, events)
	assert.Equal(t, core.EventDelete, ev.Type)
	assert.Equal(t, "n1", ev.ID)
}

func TestWatch_FiltersByPattern(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := newRepo(t)

	events, err := repo.Watch(ctx, "keep-*")
	require.NoError(t, err)

	require.NoError(t, repo.Put(ctx, note("skip-1", "x", time.Now())))
	require.NoError(t, repo.Put(ctx, note("keep-1", "y", time.Now())))

	ev := nextEvent(t, events)
	assert.Equal(t, "keep-1", ev.ID)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := newRepo(t)

	events, err := repo.Watch(ctx, "*")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return repo.State().(fs.RepositoryState).WatcherActive
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, repo.State().(fs.RepositoryState).WatcherActive)
}

func TestWatch_BadPattern(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.Watch(context.Background(), "[")
	assert.Error(t, err)
}
