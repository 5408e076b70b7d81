package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"ascent/internal/eventlog"
	"ascent/internal/progression/models"
	"ascent/pkg/domain"
	"ascent/pkg/platform/sentinel"
	txcontext "ascent/pkg/platform/tx"
)

// shardedTx serializes transactions per user with sharded mutexes and stages
// writes until fn succeeds, so a failure part way through leaves the base
// stores untouched.
type shardedTx struct {
	lock   txcontext.ShardedLock
	states StateStore
	events EventStore
}

// NewInMemoryTx returns the in-process StoreTx over base stores.
func NewInMemoryTx(states StateStore, events EventStore, timeout time.Duration) StoreTx {
	t := &shardedTx{states: states, events: events}
	t.lock.Timeout = timeout
	return t
}

func (t *shardedTx) RunInTx(ctx context.Context, userID domain.UserID, fn func(ctx context.Context, stores Stores) error) error {
	return t.lock.Run(ctx, userID.String(), func(ctx context.Context) error {
		staged := &stagedStates{base: t.states, writes: make(map[domain.DomainID]*models.DomainState)}
		events := eventlog.NewStaged(t.events)
		if err := fn(ctx, Stores{States: staged, Events: events}); err != nil {
			return err
		}
		if err := t.commitStates(ctx, staged); err != nil {
			return err
		}
		// events were validated when staged; the in-memory log only fails on
		// invalid events, so the flush does not fail once states are written.
		return events.Flush(ctx)
	})
}

// batchSaver is implemented by state stores that write a batch all or
// nothing.
type batchSaver interface {
	SaveAll(ctx context.Context, states []*models.DomainState) error
}

func (t *shardedTx) commitStates(ctx context.Context, staged *stagedStates) error {
	batch := make([]*models.DomainState, 0, len(staged.order))
	for _, id := range staged.order {
		batch = append(batch, staged.pending[id])
	}
	if b, ok := t.states.(batchSaver); ok {
		return b.SaveAll(ctx, batch)
	}
	// Without SaveAll a conflict on a later domain leaves earlier domains
	// written. The per-user lock keeps other transactions from causing one.
	for _, st := range batch {
		if err := t.states.Save(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// stagedStates reads through to base and buffers writes. pending keeps the
// state as it must be handed to base.Save (pre-increment version).
type stagedStates struct {
	base    StateStore
	writes  map[domain.DomainID]*models.DomainState
	pending map[domain.DomainID]*models.DomainState
	order   []domain.DomainID
}

func (s *stagedStates) Get(ctx context.Context, userID domain.UserID, domainID domain.DomainID) (*models.DomainState, error) {
	if st, ok := s.writes[domainID]; ok && st.UserID == userID {
		return st.Clone(), nil
	}
	return s.base.Get(ctx, userID, domainID)
}

func (s *stagedStates) ListByUser(ctx context.Context, userID domain.UserID) ([]*models.DomainState, error) {
	base, err := s.base.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.DomainID]bool, len(base))
	out := make([]*models.DomainState, 0, len(base))
	for _, st := range base {
		if w, ok := s.writes[st.Domain]; ok {
			st = w.Clone()
		}
		seen[st.Domain] = true
		out = append(out, st)
	}
	for id, w := range s.writes {
		if !seen[id] && w.UserID == userID {
			out = append(out, w.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.DomainState) int {
		return strings.Compare(string(a.Domain), string(b.Domain))
	})
	return out, nil
}

func (s *stagedStates) Save(ctx context.Context, st *models.DomainState) error {
	current, err := s.Get(ctx, st.UserID, st.Domain)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		if st.Version != 0 {
			return sentinel.ErrConflict
		}
	case err != nil:
		return err
	case current.Version != st.Version:
		return sentinel.ErrConflict
	}

	if s.pending == nil {
		s.pending = make(map[domain.DomainID]*models.DomainState)
	}
	if _, staged := s.pending[st.Domain]; !staged {
		s.pending[st.Domain] = st.Clone()
		s.order = append(s.order, st.Domain)
	} else {
		// keep the first version so base sees one write per domain
		v := s.pending[st.Domain].Version
		s.pending[st.Domain] = st.Clone()
		s.pending[st.Domain].Version = v
	}
	st.Version++
	s.writes[st.Domain] = st.Clone()
	return nil
}

func (s *stagedStates) ListDueResumptions(ctx context.Context, now time.Time) ([]domain.UserID, error) {
	return s.base.ListDueResumptions(ctx, now)
}

func (s *stagedStates) ListUsers(ctx context.Context) ([]domain.UserID, error) {
	return s.base.ListUsers(ctx)
}
