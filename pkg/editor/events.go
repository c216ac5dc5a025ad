package editor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/draft/pkg/core"
)

// EventType identifies what changed in the editor.
type EventType int

const (
	// EventListChanged is sent when notes are added, removed or retitled.
	EventListChanged EventType = iota + 1
	// EventActiveChanged is sent when another note becomes active.
	EventActiveChanged
	// EventSaveState is sent on every save state transition.
	EventSaveState
)

func (t EventType) String() string {
	switch t {
	case EventListChanged:
		return "list"
	case EventActiveChanged:
		return "active"
	case EventSaveState:
		return "save"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a change notification for the presentation layer.
type Event struct {
	Type  EventType
	ID    string         // note concerned, empty for list changes
	State core.SaveState // set for EventSaveState
}

func (e Event) String() string {
	switch e.Type {
	case EventSaveState:
		return fmt.Sprintf("%s %s %s", e.Type, e.ID, e.State)
	case EventActiveChanged:
		return fmt.Sprintf("%s %s", e.Type, e.ID)
	default:
		return e.Type.String()
	}
}

// broker fans events out to subscribers. A subscriber that falls behind loses
// its oldest buffered events rather than stalling the editor.
type broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	size   int
	closed bool
	logger *slog.Logger
}

func newBroker(size int, logger *slog.Logger) *broker {
	return &broker{subs: make(map[int]chan Event), size: size, logger: logger}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.size)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.next++
	key := b.next
	b.subs[key] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[key]; ok {
			delete(b.subs, key)
			close(c)
		}
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, ch := range b.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		// Full buffer: drop the oldest event so the latest state always lands.
		select {
		case old := <-ch:
			b.logger.Warn("dropping editor event for slow subscriber", "subscriber", key, "event", old.String())
		default:
		}
		select {
		case ch <- ev:
		default:
			b.logger.Warn("dropping editor event for slow subscriber", "subscriber", key, "event", ev.String())
		}
	}
}

func (b *broker) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for key, ch := range b.subs {
		delete(b.subs, key)
		close(ch)
	}
}
