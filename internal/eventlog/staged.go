package eventlog

import (
	"context"

	"ascent/pkg/domain"
)

// Store is the append-only log surface shared by the memory and Postgres
// implementations.
type Store interface {
	Append(ctx context.Context, e *Event) (domain.EventID, error)
	ListByUser(ctx context.Context, userID domain.UserID, f Filter) ([]*Event, error)
}

// Staged buffers appends in front of a base store until Flush. Reads see the
// base log followed by the pending entries.
type Staged struct {
	base    Store
	pending []*Event
}

func NewStaged(base Store) *Staged {
	return &Staged{base: base}
}

// Append validates and buffers e, assigning an ID when it has none.
func (s *Staged) Append(_ context.Context, e *Event) (domain.EventID, error) {
	if err := e.Validate(); err != nil {
		return domain.EventID{}, err
	}
	if e.ID.IsNil() {
		e.ID = domain.NewEventID()
	}
	c := e.Clone()
	s.pending = append(s.pending, &c)
	return e.ID, nil
}

func (s *Staged) ListByUser(ctx context.Context, userID domain.UserID, f Filter) ([]*Event, error) {
	limit := f.Limit
	f.Limit = 0
	out, err := s.base.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	for _, e := range s.pending {
		if e.UserID == userID && f.Match(e) {
			c := e.Clone()
			out = append(out, &c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Pending returns the number of buffered entries.
func (s *Staged) Pending() int {
	return len(s.pending)
}

// Flush appends the buffered entries to the base store in order.
func (s *Staged) Flush(ctx context.Context) error {
	for i, e := range s.pending {
		if _, err := s.base.Append(ctx, e); err != nil {
			s.pending = s.pending[i:]
			return err
		}
	}
	s.pending = nil
	return nil
}
