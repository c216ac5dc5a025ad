// Package editor holds the ordered note list and the single active note of an
// editing session. It routes edits to the auto-save engine and keeps unsaved
// work when the user switches between notes.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/draft/pkg/autosave"
	"github.com/aretw0/draft/pkg/core"
)

var (
	// ErrNotActive is returned for edits aimed at a note that is not active.
	ErrNotActive = errors.New("note is not active")
	// ErrClosed is returned once the manager has been closed.
	ErrClosed = errors.New("editor is closed")
	// ErrNoRenderer is returned by Preview when no renderer was configured.
	ErrNoRenderer = errors.New("no renderer configured")
)

// entry is one note in the list. Only its fields are guarded by mu; the list
// itself belongs to the Manager.
type entry struct {
	id     string
	mu     sync.Mutex
	note   core.Note
	loaded bool // content has been read from storage
	dirty  bool // edits from an earlier session that never reached storage
}

func (e *entry) snapshot() core.Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.note.Clone()
}

func (e *entry) summary() core.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.note.Summary()
}

func (e *entry) saved(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.note.UpdatedAt = at
	e.dirty = false
}

func (e *entry) isLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

func (e *entry) isDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

func (e *entry) setDirty(dirty bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty = dirty
}

// Manager owns the note list and the active note.
type Manager struct {
	mu      sync.Mutex
	storage core.Storage
	engine  *autosave.Engine
	opts    *options
	events  *broker
	unwatch func()

	notes  []*entry
	byID   map[string]*entry
	active *entry
	closed bool
}

// New creates a Manager. Call Open to load the note list.
func New(storage core.Storage, engine *autosave.Engine, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		storage: storage,
		engine:  engine,
		opts:    o,
		events:  newBroker(o.eventBuffer, o.logger),
		byID:    make(map[string]*entry),
	}
	m.unwatch = engine.Observe(func(id string, s core.SaveState) {
		m.events.publish(Event{Type: EventSaveState, ID: id, State: s})
	})
	return m
}

// Open loads the note list from storage, newest first, and activates the
// first note. An empty storage gets one blank note. Calling Open again
// refreshes the list and keeps the active note.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	created, err := m.openLocked(ctx)
	m.mu.Unlock()

	if created != "" {
		m.persistCreated(ctx, created)
	}
	return err
}

// openLocked returns the id of a blank note it created, if any.
func (m *Manager) openLocked(ctx context.Context) (string, error) {
	if m.closed {
		return "", ErrClosed
	}

	sums, err := m.storage.List(ctx)
	if err != nil {
		return "", &core.IOError{Op: "list", Err: err}
	}

	seen := make(map[string]bool, len(sums))
	notes := make([]*entry, 0, len(sums))
	for _, s := range sums {
		seen[s.ID] = true
		e := m.byID[s.ID]
		if e == nil {
			e = &entry{id: s.ID, note: summaryNote(s)}
		}
		notes = append(notes, e)
	}
	// Notes that never reached storage stay in front.
	var local []*entry
	for _, e := range m.notes {
		if !seen[e.id] && (e == m.active || e.isDirty()) {
			local = append(local, e)
		}
	}
	m.setNotesLocked(append(local, notes...))
	m.publish(Event{Type: EventListChanged})
	m.opts.logger.Debug("opened note list", "notes", len(m.notes))

	if m.active != nil {
		return "", nil
	}
	if len(m.notes) == 0 {
		return m.createLocked(ctx).ID, nil
	}
	first := m.notes[0]
	if err := m.load(ctx, first); err != nil {
		return "", err
	}
	m.activateLocked(first)
	return "", nil
}

// CreateNote saves and releases the active note, then inserts a blank note at
// the front of the list, activates it and persists it right away. A failed
// first write is reported through SaveState, not as an error.
func (m *Manager) CreateNote(ctx context.Context) (core.Note, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return core.Note{}, ErrClosed
	}
	n := m.createLocked(ctx)
	m.mu.Unlock()

	m.persistCreated(ctx, n.ID)
	return n, nil
}

// SelectNote makes id the active note. The target is resolved first, so an
// unknown id leaves the current note untouched. The outgoing note is saved
// within the switch timeout; if that fails it keeps its unsaved edits and
// they are saved again when it is selected next.
func (m *Manager) SelectNote(ctx context.Context, id string) (core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.Note{}, ErrClosed
	}

	e := m.byID[id]
	switch {
	case e == nil:
		n, err := m.storage.Get(ctx, id)
		if err != nil {
			return core.Note{}, storageError("get", id, err)
		}
		e = &entry{id: id, note: n, loaded: true}
		m.setNotesLocked(append([]*entry{e}, m.notes...))
		m.publish(Event{Type: EventListChanged})
	case e == m.active:
		return e.snapshot(), nil
	default:
		if err := m.load(ctx, e); err != nil {
			if core.IsNotFound(err) {
				m.removeLocked(e)
				m.publish(Event{Type: EventListChanged})
			}
			return core.Note{}, err
		}
	}

	m.deactivateLocked(ctx)
	m.activateLocked(e)
	return e.snapshot(), nil
}

// UpdateContent replaces the content of the active note and schedules a save.
// The title follows the content unless the user has set one.
func (m *Manager) UpdateContent(id, content string) (core.SaveState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.activeEntryLocked(id)
	if err != nil {
		return core.SaveState{}, err
	}

	e.mu.Lock()
	e.note.Content = content
	retitled := false
	if !e.note.TitleOverride {
		title := core.GenerateNoteTitle(content)
		retitled = title != e.note.Title
		e.note.Title = title
	}
	e.mu.Unlock()

	st := m.engine.NotifyChange(id, content)
	if retitled {
		m.publish(Event{Type: EventListChanged})
	}
	return st, nil
}

// SetTitle sets a user title on the active note. A blank title drops the
// override and the title is derived from the content again.
func (m *Manager) SetTitle(id, title string) (core.SaveState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.activeEntryLocked(id)
	if err != nil {
		return core.SaveState{}, err
	}

	title = core.NormalizeTitle(title)
	e.mu.Lock()
	if title == "" {
		e.note.TitleOverride = false
		e.note.Title = core.GenerateNoteTitle(e.note.Content)
	} else {
		e.note.TitleOverride = true
		e.note.Title = title
	}
	content := e.note.Content
	e.mu.Unlock()

	st := m.engine.NotifyChange(id, content)
	m.publish(Event{Type: EventListChanged})
	return st, nil
}

// SetTags replaces the tag set of the active note and saves it right away.
// Setting the same set again does not write.
func (m *Manager) SetTags(ctx context.Context, id string, tags []string) (core.SaveState, error) {
	m.mu.Lock()
	e, err := m.activeEntryLocked(id)
	if err != nil {
		m.mu.Unlock()
		return core.SaveState{}, err
	}

	tags = core.NormalizeTags(tags)
	e.mu.Lock()
	same := e.note.HasSameTags(core.Note{Tags: tags})
	if !same {
		e.note.Tags = tags
	}
	content := e.note.Content
	e.mu.Unlock()

	if same {
		m.mu.Unlock()
		return m.engine.SaveState(id), nil
	}
	m.engine.NotifyChange(id, content)
	m.publish(Event{Type: EventListChanged})
	m.mu.Unlock()

	// The engine serializes writes per note; edits go on meanwhile.
	return m.engine.SaveNow(ctx, id)
}

// DeleteNote removes a note from storage and from the list. Its save session
// ends first and a write still in flight is waited for, bounded by the switch
// timeout, so the file cannot reappear afterwards. Deleting the active note
// activates the next one, or a new blank note when the list becomes empty.
func (m *Manager) DeleteNote(ctx context.Context, id string) error {
	m.mu.Lock()
	created, err := m.deleteLocked(ctx, id)
	m.mu.Unlock()

	if created != "" {
		m.persistCreated(ctx, created)
	}
	return err
}

// deleteLocked returns the id of a replacement blank note, if one was made.
func (m *Manager) deleteLocked(ctx context.Context, id string) (string, error) {
	if m.closed {
		return "", ErrClosed
	}

	e := m.byID[id]
	if e == nil {
		if err := m.storage.Delete(ctx, id); err != nil {
			return "", storageError("delete", id, err)
		}
		return "", nil
	}

	wasActive := e == m.active
	last, settled := m.engine.Release(id)

	wctx, cancel := context.WithTimeout(ctx, m.opts.switchTimeout)
	defer cancel()
	select {
	case <-settled:
	case <-wctx.Done():
		m.restoreLocked(e, wasActive, last)
		return "", &core.TimeoutError{ID: id, Wait: m.opts.switchTimeout}
	}

	if err := m.storage.Delete(ctx, id); err != nil && !core.IsNotFound(err) {
		m.restoreLocked(e, wasActive, last)
		return "", &core.IOError{Op: "delete", ID: id, Err: err}
	}

	m.removeLocked(e)
	m.publish(Event{Type: EventListChanged})
	m.opts.logger.Info("deleted note", "id", id)

	if wasActive {
		m.active = nil
		return m.activateNextLocked(ctx), nil
	}
	return "", nil
}

// ManualSave saves the active note now.
// The write runs without the manager lock, so edits are not held up by it.
func (m *Manager) ManualSave(ctx context.Context, id string) (core.SaveState, error) {
	m.mu.Lock()
	_, err := m.activeEntryLocked(id)
	m.mu.Unlock()
	if err != nil {
		return core.SaveState{}, err
	}
	return m.engine.SaveNow(ctx, id)
}

// Close flushes unsaved work and closes all subscriptions. Inactive notes
// left unsaved by a failed switch are flushed too. The engine is not closed;
// it belongs to the caller.
func (m *Manager) Close(ctx context.Context) []autosave.FlushResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	for _, e := range m.notes {
		if e != m.active && e.isDirty() {
			m.trackLocked(e)
		}
	}
	results := m.engine.FlushAll(ctx)
	m.unwatch()
	m.events.close()
	return results
}

// Active returns a copy of the active note.
func (m *Manager) Active() (core.Note, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return core.Note{}, false
	}
	return m.active.snapshot(), true
}

// Notes returns the note list in display order.
func (m *Manager) Notes() []core.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Summary, 0, len(m.notes))
	for _, e := range m.notes {
		out = append(out, e.summary())
	}
	return out
}

// SaveState returns the save state of the active note.
func (m *Manager) SaveState() core.SaveState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return core.SaveState{Status: core.StatusIdle}
	}
	return m.engine.SaveState(m.active.id)
}

// Preview renders the content of the active note.
func (m *Manager) Preview() (string, error) {
	if m.opts.renderer == nil {
		return "", ErrNoRenderer
	}
	note, ok := m.Active()
	if !ok {
		return "", nil
	}
	html, err := m.opts.renderer.Render(note.Content)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", note.ID, err)
	}
	return html, nil
}

// Subscribe returns a channel of editor events and a function that ends the
// subscription. Events arrive in the order they happened, but delivery is
// lossy: when the buffer (WithEventBuffer) is full the oldest buffered event
// is discarded to make room, so a slow subscriber may skip transitions yet
// always receives the latest one. Use Active, Notes and SaveState to resync.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.events.subscribe()
}

// Filter returns the notes whose id or title matches a doublestar glob
// pattern. An empty pattern matches everything.
func (m *Manager) Filter(pattern string) ([]core.Summary, error) {
	all := m.Notes()
	if pattern == "" {
		return all, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("filter %q: %w", pattern, doublestar.ErrBadPattern)
	}

	var out []core.Summary
	for _, s := range all {
		byTitle, _ := doublestar.Match(pattern, s.Title)
		byID, _ := doublestar.Match(pattern, s.ID)
		if byTitle || byID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Watch refreshes list entries from external storage changes until ctx ends.
// The active note and notes with unsaved edits are never overwritten.
func (m *Manager) Watch(ctx context.Context, src core.Watchable) error {
	events, err := src.Watch(ctx, "*")
	if err != nil {
		return fmt.Errorf("watch storage: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				m.applyExternal(ctx, ev)
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		m.opts.logger.Error("storage watcher failed", "error", err)
	}))
	return nil
}

func (m *Manager) applyExternal(ctx context.Context, ev core.Event) {
	if !m.acceptsExternal(ev.ID) {
		m.opts.logger.Debug("ignoring external change", "event", ev.String())
		return
	}

	var (
		n   core.Note
		err error
	)
	gone := ev.Type == core.EventDelete
	if !gone {
		n, err = m.storage.Get(ctx, ev.ID)
		switch {
		case core.IsNotFound(err):
			gone = true
		case err != nil:
			m.opts.logger.Warn("reloading changed note failed", "id", ev.ID, "error", err)
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	e := m.byID[ev.ID]
	if e != nil && (e == m.active || e.isDirty()) {
		return
	}

	switch {
	case gone && e == nil:
		return
	case gone:
		m.removeLocked(e)
	case e == nil:
		m.setNotesLocked(append([]*entry{{id: n.ID, note: n, loaded: true}}, m.notes...))
	default:
		e.mu.Lock()
		e.note = n
		e.loaded = true
		e.mu.Unlock()
	}
	m.publish(Event{Type: EventListChanged})
	m.opts.logger.Debug("applied external change", "event", ev.String())
}

func (m *Manager) acceptsExternal(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	e := m.byID[id]
	return e == nil || (e != m.active && !e.isDirty())
}

// createLocked activates a new blank note. Its first write is left to
// persistCreated, called once m.mu is released.
func (m *Manager) createLocked(ctx context.Context) core.Note {
	m.deactivateLocked(ctx)

	n := core.NewBlankNote()
	e := &entry{id: n.ID, note: n, loaded: true}
	m.setNotesLocked(append([]*entry{e}, m.notes...))
	m.publish(Event{Type: EventListChanged})
	m.activateLocked(e)

	m.engine.NotifyChange(n.ID, n.Content)
	m.opts.logger.Info("created note", "id", n.ID)
	return e.snapshot()
}

// persistCreated writes a new note right away. A failure shows in its
// SaveState and the pending change stays armed.
func (m *Manager) persistCreated(ctx context.Context, id string) {
	if _, err := m.engine.SaveNow(ctx, id); err != nil {
		m.opts.logger.Warn("saving new note failed", "id", id, "error", err)
	}
}

// deactivateLocked saves the active note within the switch timeout and ends
// its save session.
func (m *Manager) deactivateLocked(ctx context.Context) {
	e := m.active
	if e == nil {
		return
	}
	m.active = nil

	sctx, cancel := context.WithTimeout(ctx, m.opts.switchTimeout)
	defer cancel()

	_, err := m.engine.SaveNow(sctx, e.id)
	if err != nil {
		m.opts.logger.Warn("saving note before switch failed", "id", e.id, "error", err)
	}
	last, _ := m.engine.Release(e.id)
	e.setDirty(err != nil || last.Dirty())
}

func (m *Manager) activateLocked(e *entry) {
	m.active = e
	m.trackLocked(e)
	m.publish(Event{Type: EventActiveChanged, ID: e.id})
}

func (m *Manager) trackLocked(e *entry) {
	m.engine.Track(e.id, autosave.Binding{Snapshot: e.snapshot, Saved: e.saved})
	if e.isDirty() {
		m.opts.logger.Debug("re-arming unsaved note", "id", e.id)
		m.engine.NotifyChange(e.id, e.snapshot().Content)
	}
}

// restoreLocked undoes a released session after a delete that did not happen.
func (m *Manager) restoreLocked(e *entry, wasActive bool, last core.SaveState) {
	if !wasActive {
		return
	}
	if last.Dirty() {
		e.setDirty(true)
	}
	m.trackLocked(e)
}

// activateNextLocked returns the id of a blank note it had to create.
func (m *Manager) activateNextLocked(ctx context.Context) string {
	if len(m.notes) > 0 {
		next := m.notes[0]
		err := m.load(ctx, next)
		if err == nil {
			m.activateLocked(next)
			return ""
		}
		m.opts.logger.Warn("loading next note failed", "id", next.id, "error", err)
	}
	return m.createLocked(ctx).ID
}

func (m *Manager) activeEntryLocked(id string) (*entry, error) {
	if m.closed {
		return nil, ErrClosed
	}
	e := m.byID[id]
	if e == nil {
		return nil, &core.NotFoundError{ID: id}
	}
	if e != m.active {
		return nil, fmt.Errorf("%w: %s", ErrNotActive, id)
	}
	return e, nil
}

func (m *Manager) load(ctx context.Context, e *entry) error {
	if e.isLoaded() {
		return nil
	}
	n, err := m.storage.Get(ctx, e.id)
	if err != nil {
		return storageError("get", e.id, err)
	}
	e.mu.Lock()
	e.note = n
	e.loaded = true
	e.mu.Unlock()
	return nil
}

func (m *Manager) setNotesLocked(notes []*entry) {
	m.notes = notes
	m.byID = make(map[string]*entry, len(notes))
	for _, e := range notes {
		m.byID[e.id] = e
	}
}

func (m *Manager) removeLocked(e *entry) {
	notes := make([]*entry, 0, len(m.notes))
	for _, x := range m.notes {
		if x != e {
			notes = append(notes, x)
		}
	}
	m.setNotesLocked(notes)
}

func (m *Manager) publish(ev Event) {
	m.events.publish(ev)
}

func summaryNote(s core.Summary) core.Note {
	return core.Note{
		ID:        s.ID,
		Title:     s.Title,
		Tags:      s.Tags,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func storageError(op, id string, err error) error {
	if core.IsNotFound(err) {
		return &core.NotFoundError{ID: id}
	}
	return &core.IOError{Op: op, ID: id, Err: err}
}
