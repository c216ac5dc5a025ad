// Package lifecycle exposes draft event streams as lifecycle sources.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"
)

type source[E lifecycle.Event] struct {
	events <-chan E
	out    chan lifecycle.Event
}

// NewSource wraps a typed event channel, such as the storage events of
// core.Watchable or the editor events of Manager.Subscribe, as a
// lifecycle.Source. The output closes when the input closes or the context
// given to Start ends.
func NewSource[E lifecycle.Event](events <-chan E) lifecycle.Source {
	return &source[E]{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *source[E]) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *source[E]) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}

// Merge fans several sources into one. The result closes once every input
// has closed.
func Merge(ctx context.Context, sources ...lifecycle.Source) (<-chan lifecycle.Event, error) {
	out := make(chan lifecycle.Event)
	done := make(chan struct{}, len(sources))
	for _, src := range sources {
		if err := src.Start(ctx); err != nil {
			return nil, err
		}
	}
	for _, src := range sources {
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()
			for e := range src.Events() {
				select {
				case out <- e:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	lifecycle.Go(ctx, func(context.Context) error {
		for range sources {
			<-done
		}
		close(out)
		return nil
	})
	return out, nil
}
