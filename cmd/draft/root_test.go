package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommand_WritesOneNote(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DRAFT_CONFIG", "")

	rootCmd.SetArgs([]string{"new", "--path", dir, "--tag", "work", "# Standup", "notes"})
	require.NoError(t, rootCmd.Execute())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var notes []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".md") {
			notes = append(notes, e.Name())
		}
	}
	require.Len(t, notes, 1, "the blank note from opening empty storage is reused")

	data, err := os.ReadFile(filepath.Join(dir, notes[0]))
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Standup")
	assert.Contains(t, string(data), "- work")
	assert.Contains(t, string(data), "# Standup notes")
}
