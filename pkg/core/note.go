package core

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// UntitledTitle is the title of a note with no meaningful content.
	UntitledTitle = "Untitled"

	// MaxTitleLength is the maximum length of a derived title, in runes.
	MaxTitleLength = 50

	// TruncationMarker is appended to derived titles that were cut short.
	TruncationMarker = "..."
)

// Note is the central entity of the domain: the persisted unit of content.
type Note struct {
	ID            string
	Title         string
	TitleOverride bool // Title was set by the user and must not be re-derived.
	Content       string
	Tags          []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Summary is the list projection of a note. It carries no content.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary projects the note for listings.
func (n Note) Summary() Summary {
	return Summary{
		ID:        n.ID,
		Title:     n.Title,
		Tags:      slices.Clone(n.Tags),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// Clone returns a deep copy of the note.
func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

// HasSameTags reports whether both notes carry the same tag set, ignoring order.
func (n Note) HasSameTags(other Note) bool {
	a := NormalizeTags(n.Tags)
	b := NormalizeTags(other.Tags)
	if len(a) != len(b) {
		return false
	}
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

var idSequence atomic.Uint64

// GenerateNoteID returns a new unique note identifier.
// It combines a base36 millisecond timestamp, a process-wide sequence and a
// random fragment, so ids minted within the same millisecond still differ.
func GenerateNoteID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	seq := strconv.FormatUint(idSequence.Add(1), 36)
	entropy := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s%s", ts, seq, entropy)
}

// NewBlankNote builds an empty note with a fresh id.
func NewBlankNote() Note {
	now := time.Now()
	return Note{
		ID:        GenerateNoteID(),
		Title:     UntitledTitle,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var headingPattern = regexp.MustCompile(`^#{1,6}(?:\s+(.*?))?\s*#*\s*$`)

// GenerateNoteTitle derives a display title from markdown content.
//
// Blank content maps to UntitledTitle. A leading ATX heading yields its text,
// otherwise the first line is used. Results longer than MaxTitleLength runes
// are cut and end with TruncationMarker.
func GenerateNoteTitle(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return UntitledTitle
	}

	line, _, _ := strings.Cut(trimmed, "\n")
	line = strings.TrimSpace(line)

	if m := headingPattern.FindStringSubmatch(line); m != nil {
		line = strings.TrimSpace(m[1])
		if line == "" {
			return UntitledTitle
		}
	}

	return truncateTitle(line)
}

// NormalizeTitle cleans a user supplied title: first line only, trimmed and
// cut like a derived title. Blank input returns "".
func NormalizeTitle(title string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(title), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	return truncateTitle(line)
}

func truncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= MaxTitleLength {
		return s
	}
	runes := []rune(s)
	keep := MaxTitleLength - utf8.RuneCountInString(TruncationMarker)
	return string(runes[:keep]) + TruncationMarker
}

// NormalizeTags trims tags, drops empty and duplicate entries and keeps the
// first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
