package store

import (
	"context"
	"sync"

	"ascent/internal/compliance/models"
	"ascent/pkg/domain"
	"ascent/pkg/platform/sentinel"
)

// InMemory keeps gates in process. It is safe for concurrent use; per-user
// atomicity across several calls comes from the caller's transaction.
type InMemory struct {
	mu         sync.RWMutex
	gates      map[domain.GateID]*models.Gate
	byUser     map[domain.UserID][]domain.GateID
	watermarks map[domain.UserID]map[string]*models.Watermark
}

func NewInMemory() *InMemory {
	return &InMemory{
		gates:      make(map[domain.GateID]*models.Gate),
		byUser:     make(map[domain.UserID][]domain.GateID),
		watermarks: make(map[domain.UserID]map[string]*models.Watermark),
	}
}

// ListByUser returns copies of the user's gates oldest first.
func (s *InMemory) ListByUser(_ context.Context, userID domain.UserID, includeFulfilled bool) ([]*models.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Gate
	for _, id := range s.byUser[userID] {
		g := s.gates[id]
		if includeFulfilled || g.Open() {
			out = append(out, g.Clone())
		}
	}
	sortGates(out)
	return out, nil
}

// Create stores a new open gate. A duplicate id returns sentinel.ErrAlreadyUsed.
func (s *InMemory) Create(_ context.Context, g *models.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gates[g.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.gates[g.ID] = g.Clone()
	s.byUser[g.UserID] = append(s.byUser[g.UserID], g.ID)
	return nil
}

// Fulfill records the closing of an open gate. An unknown gate returns
// sentinel.ErrNotFound; a gate that is already closed returns
// sentinel.ErrInvalidState.
func (s *InMemory) Fulfill(_ context.Context, g *models.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.gates[g.ID]
	if !ok || stored.UserID != g.UserID {
		return sentinel.ErrNotFound
	}
	if g.FulfilledAt == nil || !stored.Open() {
		return sentinel.ErrInvalidState
	}
	stored.Fulfill(g.FulfilledBy, *g.FulfilledAt)
	return nil
}

// Watermarks returns copies of the user's rule watermarks keyed by rule id.
func (s *InMemory) Watermarks(_ context.Context, userID domain.UserID) (map[string]*models.Watermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Watermark, len(s.watermarks[userID]))
	for id, w := range s.watermarks[userID] {
		out[id] = w.Clone()
	}
	return out, nil
}

// SaveWatermark inserts or replaces the watermark for (user, rule).
func (s *InMemory) SaveWatermark(_ context.Context, w *models.Watermark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	marks, ok := s.watermarks[w.UserID]
	if !ok {
		marks = make(map[string]*models.Watermark)
		s.watermarks[w.UserID] = marks
	}
	marks[w.RuleID] = w.Clone()
	return nil
}

func (s *InMemory) ClearWatermark(_ context.Context, userID domain.UserID, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watermarks[userID], ruleID)
	return nil
}
