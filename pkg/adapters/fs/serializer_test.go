package fs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/draft/pkg/core"
)

func TestEncodeDecode(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := core.Note{
		ID:            "abc",
		Title:         "Custom",
		TitleOverride: true,
		Content:       "# Heading\n\n---\n\nafter a rule\n",
		Tags:          []string{"work", "ideas"},
		CreatedAt:     created,
		UpdatedAt:     created.Add(time.Hour),
	}

	data, err := encodeNote(n)
	require.NoError(t, err)
	assert.Contains(t, string(data), "title_override: true")

	got, err := decodeNote(data, "abc")
	require.NoError(t, err)
	assert.Equal(t, n.Content, got.Content, "a rule in the body is not a delimiter")
	assert.Equal(t, n.Title, got.Title)
	assert.True(t, got.TitleOverride)
	assert.Equal(t, n.Tags, got.Tags)
	assert.True(t, n.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, n.UpdatedAt.Equal(got.UpdatedAt))
}

func TestDecode_FileNameWins(t *testing.T) {
	data := []byte("---\nid: other\ntitle: T\n---\nbody")
	got, err := decodeNote(data, "from-file")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got.ID)
	assert.Equal(t, "body", got.Content)
}

func TestDecode_PlainMarkdown(t *testing.T) {
	got, err := decodeNote([]byte("# Shopping\n- milk\n"), "list")
	require.NoError(t, err)
	assert.Equal(t, "Shopping", got.Title)
	assert.Equal(t, "# Shopping\n- milk\n", got.Content)
	assert.Empty(t, got.Tags)
}

func TestDecode_MissingTitleIsDerived(t *testing.T) {
	got, err := decodeNote([]byte("---\ntags: [a, a, b]\n---\nfirst line\nsecond"), "x")
	require.NoError(t, err)
	assert.Equal(t, "first line", got.Title)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
}

func TestDecode_Errors(t *testing.T) {
	_, err := decodeNote([]byte("---\ntitle: [unclosed\n---\n"), "bad")
	assert.Error(t, err)

	got, err := decodeNote([]byte("---\nno closing delimiter"), "open")
	require.NoError(t, err, "an unterminated block is plain content")
	assert.Equal(t, "---\nno closing delimiter", got.Content)
}

func TestSplitFrontmatter_CRLF(t *testing.T) {
	head, body, ok := splitFrontmatter("---\r\ntitle: x\r\n---\r\nbody")
	require.True(t, ok)
	assert.Equal(t, "title: x\r\n", head)
	assert.Equal(t, "body", body)
}
