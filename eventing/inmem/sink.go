// Package inmem provides an in-memory event sink for tests and debugging.
package inmem

import (
	"context"
	"sync"

	"turnflow/turn"
)

// Sink stores published turn events in arrival order.
type Sink struct {
	mu     sync.RWMutex
	events []turn.Event
}

func New() *Sink {
	return &Sink{events: make([]turn.Event, 0)}
}

var _ turn.EventSink = (*Sink)(nil)

func (s *Sink) Publish(_ context.Context, event turn.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (s *Sink) Events() []turn.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]turn.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType returns published events matching the type, in arrival order.
func (s *Sink) ByType(eventType turn.EventType) []turn.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []turn.Event
	for _, event := range s.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
