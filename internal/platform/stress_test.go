package platform

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStress_ExternalWritesDuringEditing edits notes while another process
// keeps rewriting files in the same directory. Every edit made through the
// editor must be on disk after Close.
func TestStress_ExternalWritesDuringEditing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	dir := t.TempDir()
	s, err := New(context.Background(), dir,
		WithWatch(true),
		WithAutoSaveDelay(5*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			name := fmt.Sprintf("noise-%d.md", rand.Intn(10))
			content := fmt.Sprintf("Noise %d", time.Now().UnixNano())
			_ = os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
		}
	}()

	written := make(map[string]string)
	for i := 0; ctx.Err() == nil && i < 50; i++ {
		note, err := s.Editor.CreateNote(ctx)
		require.NoError(t, err)
		for j := 0; j < 5; j++ {
			content := fmt.Sprintf("note %d revision %d", i, j)
			_, err := s.Editor.UpdateContent(note.ID, content)
			require.NoError(t, err)
			written[note.ID] = content
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	wg.Wait()

	require.NoError(t, s.Close(context.Background()))

	for id, content := range written {
		data, err := os.ReadFile(filepath.Join(dir, id+".md"))
		require.NoError(t, err, id)
		assert.Contains(t, string(data), content, id)
	}
}
