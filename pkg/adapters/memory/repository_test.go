package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/draft/pkg/core"
)

func TestRepository_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()

	n := core.NewBlankNote()
	n.Tags = []string{"a"}
	require.NoError(t, r.Put(ctx, n))
	n.Tags[0] = "changed"

	got, err := r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)

	got.Tags[0] = "mutated"
	again, _ := r.Get(ctx, n.ID)
	assert.Equal(t, []string{"a"}, again.Tags)
	assert.Equal(t, 1, r.Puts())
}

func TestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()

	_, err := r.Get(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(r.Delete(ctx, "missing")))
}

func TestRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	older := core.NewBlankNote()
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := core.NewBlankNote()
	r := NewRepository(older, newer)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	require.NoError(t, r.Delete(ctx, older.ID))
	assert.Equal(t, 1, r.Len())
}
