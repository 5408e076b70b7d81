package snapshot

import (
	"context"
	"maps"
	"sync"

	"ascent/internal/registry"
	"ascent/pkg/domain"
)

type InMemory struct {
	mu     sync.RWMutex
	latest map[domain.UserID]*Latest
}

func NewInMemory() *InMemory {
	return &InMemory{latest: make(map[domain.UserID]*Latest)}
}

func (s *InMemory) entry(userID domain.UserID) *Latest {
	l, ok := s.latest[userID]
	if !ok {
		l = &Latest{Milestones: registry.SnapshotSet{}}
		s.latest[userID] = l
	}
	return l
}

// PutMilestones replaces the user's snapshot for each domain in set.
func (s *InMemory) PutMilestones(_ context.Context, userID domain.UserID, set registry.SnapshotSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.entry(userID)
	for id, snap := range set {
		l.Milestones[id] = snap.Clone()
	}
	return nil
}

func (s *InMemory) PutSignals(_ context.Context, userID domain.UserID, signals registry.SignalSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := registry.SignalSnapshot{SchemaVersion: signals.SchemaVersion, Counters: maps.Clone(signals.Counters)}
	s.entry(userID).Signals = &c
	return nil
}

// Latest returns copies of the stored snapshots; an unknown user yields an
// empty Latest.
func (s *InMemory) Latest(_ context.Context, userID domain.UserID) (Latest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Latest{Milestones: registry.SnapshotSet{}}
	l, ok := s.latest[userID]
	if !ok {
		return out, nil
	}
	for id, snap := range l.Milestones {
		out.Milestones[id] = snap.Clone()
	}
	if l.Signals != nil {
		c := registry.SignalSnapshot{SchemaVersion: l.Signals.SchemaVersion, Counters: maps.Clone(l.Signals.Counters)}
		out.Signals = &c
	}
	return out, nil
}

// Users lists every user with a stored snapshot.
func (s *InMemory) Users(_ context.Context) ([]domain.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserID, 0, len(s.latest))
	for id := range s.latest {
		out = append(out, id)
	}
	return out, nil
}
