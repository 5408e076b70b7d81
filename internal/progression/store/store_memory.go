// Package store persists one DomainState per (user, domain).
package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"ascent/internal/progression/models"
	"ascent/pkg/domain"
	"ascent/pkg/platform/sentinel"
)

type key struct {
	user   domain.UserID
	domain domain.DomainID
}

// InMemory keeps states in a map guarded by a RWMutex. Save enforces the
// same version check as the Postgres store.
type InMemory struct {
	mu     sync.RWMutex
	states map[key]*models.DomainState
}

func NewInMemory() *InMemory {
	return &InMemory{states: make(map[key]*models.DomainState)}
}

// Get returns a copy of the stored state or sentinel.ErrNotFound.
func (s *InMemory) Get(_ context.Context, userID domain.UserID, domainID domain.DomainID) (*models.DomainState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key{userID, domainID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return st.Clone(), nil
}

// ListByUser returns copies of every stored state for the user, by domain id.
func (s *InMemory) ListByUser(_ context.Context, userID domain.UserID) ([]*models.DomainState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DomainState
	for k, st := range s.states {
		if k.user == userID {
			out = append(out, st.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.DomainState) int {
		return strings.Compare(string(a.Domain), string(b.Domain))
	})
	return out, nil
}

// Save inserts a new state (Version 0) or updates one whose Version matches
// the stored row. On success st.Version is incremented. A mismatch returns
// sentinel.ErrConflict and leaves the store unchanged.
func (s *InMemory) Save(_ context.Context, st *models.DomainState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{st.UserID, st.Domain}
	existing, ok := s.states[k]
	switch {
	case st.Version == 0 && ok:
		return sentinel.ErrConflict
	case st.Version != 0 && (!ok || existing.Version != st.Version):
		return sentinel.ErrConflict
	}
	st.Version++
	s.states[k] = st.Clone()
	return nil
}

// SaveAll applies Save to every state as one write: versions are checked for
// the whole batch first and a single conflict leaves the store unchanged.
func (s *InMemory) SaveAll(_ context.Context, states []*models.DomainState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range states {
		existing, ok := s.states[key{st.UserID, st.Domain}]
		switch {
		case st.Version == 0 && ok:
			return sentinel.ErrConflict
		case st.Version != 0 && (!ok || existing.Version != st.Version):
			return sentinel.ErrConflict
		}
	}
	for _, st := range states {
		st.Version++
		s.states[key{st.UserID, st.Domain}] = st.Clone()
	}
	return nil
}

// ListDueResumptions returns users with at least one timed suspension due.
func (s *InMemory) ListDueResumptions(_ context.Context, now time.Time) ([]domain.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[domain.UserID]struct{})
	var out []domain.UserID
	for k, st := range s.states {
		if !st.ResumeDue(now) {
			continue
		}
		if _, dup := seen[k.user]; dup {
			continue
		}
		seen[k.user] = struct{}{}
		out = append(out, k.user)
	}
	return out, nil
}

// ListUsers returns every user with at least one stored state.
func (s *InMemory) ListUsers(_ context.Context) ([]domain.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[domain.UserID]struct{})
	var out []domain.UserID
	for k := range s.states {
		if _, dup := seen[k.user]; !dup {
			seen[k.user] = struct{}{}
			out = append(out, k.user)
		}
	}
	return out, nil
}
