package fs

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/draft/pkg/core"
)

const frontmatterDelim = "---"

// frontmatter is the YAML header of a note file.
type frontmatter struct {
	ID            string    `yaml:"id"`
	Title         string    `yaml:"title"`
	TitleOverride bool      `yaml:"title_override,omitempty"`
	Tags          []string  `yaml:"tags,omitempty"`
	Created       time.Time `yaml:"created"`
	Updated       time.Time `yaml:"updated"`
}

// encodeNote renders n as Markdown preceded by a YAML frontmatter block.
func encodeNote(n core.Note) ([]byte, error) {
	fm := frontmatter{
		ID:            n.ID,
		Title:         n.Title,
		TitleOverride: n.TitleOverride,
		Tags:          n.Tags,
		Created:       n.CreatedAt.UTC(),
		Updated:       n.UpdatedAt.UTC(),
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	buf.WriteString(frontmatterDelim + "\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// decodeNote parses a note file. The file name decides the id. Files without
// frontmatter are plain Markdown notes with a derived title.
func decodeNote(data []byte, id string) (core.Note, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	head, body, ok := splitFrontmatter(text)
	if !ok {
		return core.Note{
			ID:      id,
			Title:   core.GenerateNoteTitle(text),
			Content: text,
			Tags:    []string{},
		}, nil
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
		return core.Note{}, fmt.Errorf("parse frontmatter of %s: %w", id, err)
	}

	n := core.Note{
		ID:            id,
		Title:         fm.Title,
		TitleOverride: fm.TitleOverride,
		Content:       body,
		Tags:          core.NormalizeTags(fm.Tags),
		CreatedAt:     fm.Created,
		UpdatedAt:     fm.Updated,
	}
	if n.Title == "" {
		n.Title = core.GenerateNoteTitle(body)
		n.TitleOverride = false
	}
	return n, nil
}

// splitFrontmatter separates a leading "---" delimited block from the body.
func splitFrontmatter(text string) (head, body string, ok bool) {
	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, "\r") != frontmatterDelim {
		return "", text, false
	}

	offset := 0
	for {
		line, after, more := strings.Cut(rest[offset:], "\n")
		if strings.TrimRight(line, "\r") == frontmatterDelim {
			return rest[:offset], after, true
		}
		if !more {
			return "", text, false
		}
		offset += len(line) + 1
	}
}
