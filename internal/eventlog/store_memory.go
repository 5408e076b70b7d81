package eventlog

import (
	"context"
	"sync"

	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
)

// InMemoryStore keeps events per user in append order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.UserID][]*Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.UserID][]*Event)}
}

// Append stores a copy of e and returns its id, assigning one if unset.
func (s *InMemoryStore) Append(_ context.Context, e *Event) (domain.EventID, error) {
	if err := e.Validate(); err != nil {
		return domain.EventID{}, err
	}
	if e.ID.IsNil() {
		e.ID = domain.NewEventID()
	}
	c := e.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.UserID] = append(s.events[e.UserID], &c)
	return e.ID, nil
}

// ListByUser returns matching events oldest first. A positive Limit keeps the
// most recent entries.
func (s *InMemoryStore) ListByUser(_ context.Context, userID domain.UserID, f Filter) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Event
	for _, e := range s.events[userID] {
		if f.Match(e) {
			c := e.Clone()
			out = append(out, &c)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

func (e *Event) Validate() error {
	if e == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "event is required")
	}
	if e.UserID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "event user id is required")
	}
	if !e.Kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid event kind: "+string(e.Kind))
	}
	if e.At.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "event time is required")
	}
	return nil
}
