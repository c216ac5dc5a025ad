package autosave_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/draft/pkg/autosave"
	"github.com/aretw0/draft/pkg/core"
)

// fakeStorage records writes, can fail them and can hold them per note id.
type fakeStorage struct {
	mu      sync.Mutex
	puts    []core.Note
	fail    error
	gates   map[string]chan struct{}
	active  map[string]int
	overlap bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		gates:  make(map[string]chan struct{}),
		active: make(map[string]int),
	}
}

func (f *fakeStorage) Put(ctx context.Context, n core.Note) error {
	f.mu.Lock()
	f.active[n.ID]++
	if f.active[n.ID] > 1 {
		f.overlap = true
	}
	gate := f.gates[n.ID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[n.ID]--
	f.puts = append(f.puts, n.Clone())
	return f.fail
}

func (f *fakeStorage) Get(ctx context.Context, id string) (core.Note, error) {
	return core.Note{}, &core.NotFoundError{ID: id}
}

func (f *fakeStorage) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeStorage) List(ctx context.Context) ([]core.Summary, error) { return nil, nil }

func (f *fakeStorage) hold(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[id] = gate
	return gate
}

func (f *fakeStorage) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeStorage) putsFor(id string) []core.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Note
	for _, n := range f.puts {
		if n.ID == id {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeStorage) overlapped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlap
}

// holder plays the note owner behind a Binding.
type holder struct {
	mu    sync.Mutex
	note  core.Note
	saved []time.Time
}

func (h *holder) binding() autosave.Binding {
	return autosave.Binding{
		Snapshot: func() core.Note {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.note.Clone()
		},
		Saved: func(at time.Time) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.note.UpdatedAt = at
			h.saved = append(h.saved, at)
		},
	}
}

func (h *holder) savedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.saved)
}

func newEngine(t *testing.T, storage core.Storage, opts ...autosave.Option) *autosave.Engine {
	t.Helper()
	e := autosave.New(storage, opts...)
	t.Cleanup(e.Close)
	return e
}

func track(e *autosave.Engine, id string) *holder {
	h := &holder{note: core.Note{ID: id, Title: "T", CreatedAt: time.Unix(100, 0)}}
	e.Track(id, h.binding())
	return h
}

func TestNotifyChange_CoalescesIntoOneSave(t *testing.T) {
	storage := newFakeStorage()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := newEngine(t, storage,
		autosave.WithDelay(40*time.Millisecond),
		autosave.WithClock(func() time.Time { return now }),
	)
	h := track(e, "n1")

	for i := 1; i <= 5; i++ {
		st := e.NotifyChange("n1", fmt.Sprintf("v%d", i))
		assert.Equal(t, core.StatusPending, st.Status)
	}

	require.Eventually(t, func() bool { return len(storage.putsFor("n1")) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	puts := storage.putsFor("n1")
	require.Len(t, puts, 1)
	assert.Equal(t, "v5", puts[0].Content)
	assert.Equal(t, "T", puts[0].Title, "note fields come from the owner's snapshot")

	require.Eventually(t, func() bool { return h.savedCount() == 1 }, time.Second, 5*time.Millisecond)
	st := e.SaveState("n1")
	assert.Equal(t, core.StatusSaved, st.Status)
	assert.Equal(t, now, st.SavedAt)
	assert.Equal(t, now, h.note.UpdatedAt)
}

func TestSaveNow_CancelsDebounce(t *testing.T) {
	storage := newFakeStorage()
	e := newEngine(t, storage, autosave.WithDelay(80*time.Millisecond))
	track(e, "n1")

	e.NotifyChange("n1", "hello")
	st, err := e.SaveNow(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusSaved, st.Status)

	time.Sleep(200 * time.Millisecond)
	puts := storage.putsFor("n1")
	require.Len(t, puts, 1, "the cancelled timer must not write again")
	assert.Equal(t, "hello", puts[0].Content)
}

func TestSaveNow_CleanNoteIsNoop(t *testing.T) {
	storage := newFakeStorage()
	e := newEngine(t, storage, autosave.WithDelay(time.Hour))
	track(e, "n1")

	st, err := e.SaveNow(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, st.Status)
	assert.Empty(t, storage.putsFor("n1"))

	e.NotifyChange("n1", "x")
	_, err = e.SaveNow(context.Background(), "n1")
	require.NoError(t, err)

	st, err = e.SaveNow(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusSaved, st.Status)
	assert.Len(t, storage.putsFor("n1"), 1)
}

func TestSaveError_ThenRetrySucceeds(t *testing.T) {
	storage := newFakeStorage()
	cause := errors.New("disk full")
	storage.setFail(cause)
	e := newEngine(t, storage, autosave.WithDelay(30*time.Millisecond))
	track(e, "n1")

	e.NotifyChange("n1", "draft")
	st, err := e.SaveNow(context.Background(), "n1")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	var ioErr *core.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "n1", ioErr.ID)
	assert.Equal(t, core.StatusError, st.Status)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, core.StatusError, e.SaveState("n1").Status, "errors stay visible until a save succeeds")

	storage.setFail(nil)
	st, err = e.SaveNow(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusSaved, st.Status)
	assert.NoError(t, st.Err)

	puts := storage.putsFor("n1")
	require.Len(t, puts, 2)
	assert.Equal(t, "draft", puts[1].Content, "content is kept after a failure")
}

func TestSaveError_RetriedByNextDebounce(t *testing.T) {
	storage := newFakeStorage()
	storage.setFail(errors.New("locked"))
	e := newEngine(t, storage, autosave.WithDelay(20*time.Millisecond))
	track(e, "n1")

	e.NotifyChange("n1", "one")
	require.Eventually(t, func() bool { return e.SaveState("n1").Status == core.StatusError }, time.Second, 5*time.Millisecond)

	storage.setFail(nil)
	assert.Equal(t, core.StatusPending, e.NotifyChange("n1", "two").Status)
	require.Eventually(t, func() bool { return e.SaveState("n1").Status == core.StatusSaved }, time.Second, 5*time.Millisecond)

	puts := storage.putsFor("n1")
	assert.Equal(t, "two", puts[len(puts)-1].Content)
}

func TestSaveNow_WaitsForInFlightWrite(t *testing.T) {
	storage := newFakeStorage()
	gate := storage.hold("n1")
	e := newEngine(t, storage, autosave.WithDelay(time.Hour))
	track(e, "n1")

	e.NotifyChange("n1", "v1")
	first := make(chan error, 1)
	go func() {
		_, err := e.SaveNow(context.Background(), "n1")
		first <- err
	}()
	require.Eventually(t, func() bool { return e.SaveState("n1").Status == core.StatusSaving }, time.Second, 5*time.Millisecond)

	assert.Equal(t, core.StatusPending, e.NotifyChange("n1", "v2").Status)

	second := make(chan error, 1)
	go func() {
		_, err := e.SaveNow(context.Background(), "n1")
		second <- err
	}()

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, storage.putsFor("n1"), "second write must wait for the first")

	close(gate)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	puts := storage.putsFor("n1")
	require.Len(t, puts, 2)
	assert.Equal(t, "v1", puts[0].Content)
	assert.Equal(t, "v2", puts[1].Content)
	assert.False(t, storage.overlapped())
	assert.Equal(t, core.StatusSaved, e.SaveState("n1").Status)
}

func TestEditsDuringSave_AreSavedAfterwards(t *testing.T) {
	storage := newFakeStorage()
	gate := storage.hold("n1")
	e := newEngine(t, storage, autosave.WithDelay(20*time.Millisecond))
	track(e, "n1")

	e.NotifyChange("n1", "v1")
	require.Eventually(t, func() bool { return e.SaveState("n1").Status == core.StatusSaving }, time.Second, 2*time.Millisecond)

	e.NotifyChange("n1", "v2")
	time.Sleep(50 * time.Millisecond) // let the new timer fire while the first write is held
	close(gate)

	require.Eventually(t, func() bool {
		puts := storage.putsFor("n1")
		return len(puts) == 2 && e.SaveState("n1").Status == core.StatusSaved
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "v2", storage.putsFor("n1")[1].Content)
	assert.False(t, storage.overlapped())
}

func TestFlushAll_ReportsStalledNote(t *testing.T) {
	storage := newFakeStorage()
	gate := storage.hold("stuck")
	t.Cleanup(func() { close(gate) })

	e := newEngine(t, storage,
		autosave.WithDelay(time.Hour),
		autosave.WithFlushTimeout(100*time.Millisecond),
	)
	track(e, "ok")
	track(e, "stuck")
	track(e, "clean")
	e.NotifyChange("ok", "fine")
	e.NotifyChange("stuck", "never lands")

	start := time.Now()
	results := e.FlushAll(context.Background())
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, results, 2, "clean notes are not flushed")
	assert.Equal(t, "ok", results[0].ID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, core.StatusSaved, results[0].State.Status)

	assert.Equal(t, "stuck", results[1].ID)
	assert.ErrorIs(t, results[1].Err, core.ErrTimeout)
	var te *core.TimeoutError
	require.ErrorAs(t, results[1].Err, &te)
	assert.Equal(t, 100*time.Millisecond, te.Wait)

	require.Len(t, storage.putsFor("ok"), 1)
	assert.Equal(t, "fine", storage.putsFor("ok")[0].Content)
}

func TestRelease_DiscardsInFlightResult(t *testing.T) {
	storage := newFakeStorage()
	gate := storage.hold("n1")

	var mu sync.Mutex
	var transitions []core.SaveStatus
	e := newEngine(t, storage,
		autosave.WithDelay(time.Hour),
		autosave.WithStateHook(func(id string, s core.SaveState) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, s.Status)
		}),
	)
	h := track(e, "n1")

	e.NotifyChange("n1", "bye")
	go e.SaveNow(context.Background(), "n1") //nolint:errcheck
	require.Eventually(t, func() bool { return e.SaveState("n1").Status == core.StatusSaving }, time.Second, 2*time.Millisecond)

	last, wait := e.Release("n1")
	assert.Equal(t, core.StatusSaving, last.Status)
	assert.False(t, e.Tracked("n1"))

	select {
	case <-wait:
		t.Fatal("write is still held, wait must not be closed")
	default:
	}

	close(gate)
	select {
	case <-wait:
	case <-time.After(time.Second):
		t.Fatal("wait channel not closed after write settled")
	}

	assert.Equal(t, 0, h.savedCount(), "released notes get no save callback")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []core.SaveStatus{core.StatusPending, core.StatusSaving}, transitions)
}

func TestRelease_UntrackedIsSettled(t *testing.T) {
	e := newEngine(t, newFakeStorage())
	st, wait := e.Release("nope")
	assert.Equal(t, core.StatusIdle, st.Status)
	<-wait
}

func TestUntrackedNote(t *testing.T) {
	storage := newFakeStorage()
	e := newEngine(t, storage, autosave.WithDelay(10*time.Millisecond))

	assert.Equal(t, core.StatusIdle, e.NotifyChange("ghost", "x").Status)
	_, err := e.SaveNow(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, storage.putsFor("ghost"))
}

func TestStateHook_ObservesTransitionsInOrder(t *testing.T) {
	storage := newFakeStorage()
	var mu sync.Mutex
	var seen []core.SaveStatus
	e := newEngine(t, storage,
		autosave.WithDelay(10*time.Millisecond),
		autosave.WithStateHook(func(id string, s core.SaveState) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, s.Status)
		}),
	)
	track(e, "n1")

	e.NotifyChange("n1", "a")
	e.NotifyChange("n1", "ab")
	require.Eventually(t, func() bool { return e.SaveState("n1").Status == core.StatusSaved }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []core.SaveStatus{core.StatusPending, core.StatusSaving, core.StatusSaved}, seen)
}

func TestClose_StopsPendingTimers(t *testing.T) {
	storage := newFakeStorage()
	e := autosave.New(storage, autosave.WithDelay(20*time.Millisecond))
	track(e, "n1")

	e.NotifyChange("n1", "unsaved")
	e.Close()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, storage.putsFor("n1"))
	assert.Equal(t, core.StatusIdle, e.NotifyChange("n1", "late").Status, "closed engines ignore changes")
}

func TestEngine_State(t *testing.T) {
	e := newEngine(t, newFakeStorage(), autosave.WithDelay(time.Hour))
	track(e, "n1")
	e.NotifyChange("n1", "x")

	st, ok := e.State().(autosave.EngineState)
	require.True(t, ok)
	assert.Equal(t, "pending", st.Sessions["n1"])
	assert.Equal(t, 1, st.PendingTimers)
	assert.Equal(t, "autosave", e.ComponentType())
}

func TestObserve_AddAndRemove(t *testing.T) {
	e := newEngine(t, newFakeStorage(), autosave.WithDelay(time.Hour))
	track(e, "n1")

	var mu sync.Mutex
	var seen []string
	stop := e.Observe(func(id string, s core.SaveState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, id+":"+s.Status.String())
	})

	e.NotifyChange("n1", "a")
	stop()
	e.Cancel("n1")
	_, err := e.SaveNow(context.Background(), "n1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"n1:pending"}, seen)
}

func TestSave_StoresItsOwnTimestamp(t *testing.T) {
	storage := newFakeStorage()
	var mu sync.Mutex
	tick := time.Unix(1000, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
	e := newEngine(t, storage, autosave.WithDelay(time.Hour), autosave.WithClock(clock))
	h := track(e, "n1")

	for _, content := range []string{"first", "second"} {
		e.NotifyChange("n1", content)
		st, err := e.SaveNow(context.Background(), "n1")
		require.NoError(t, err)
		require.Equal(t, core.StatusSaved, st.Status)

		puts := storage.putsFor("n1")
		stored := puts[len(puts)-1]
		assert.Equal(t, st.SavedAt, stored.UpdatedAt, "stored record carries this save's time")
		h.mu.Lock()
		assert.Equal(t, st.SavedAt, h.note.UpdatedAt)
		h.mu.Unlock()
	}
	assert.Equal(t, time.Unix(100, 0), storage.putsFor("n1")[0].CreatedAt)
}

func TestSaveNow_TimeoutReportsWait(t *testing.T) {
	storage := newFakeStorage()
	gate := storage.hold("n1")
	t.Cleanup(func() { close(gate) })

	e := newEngine(t, storage, autosave.WithDelay(time.Hour))
	track(e, "n1")
	e.NotifyChange("n1", "slow")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.SaveNow(ctx, "n1")

	var te *core.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Greater(t, te.Wait, time.Duration(0))
	assert.LessOrEqual(t, te.Wait, 50*time.Millisecond)
}
