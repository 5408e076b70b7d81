package service

import (
	"context"
	"slices"
	"time"

	"ascent/internal/compliance/models"
	"ascent/internal/eventlog"
	"ascent/pkg/domain"
	"ascent/pkg/platform/sentinel"
	txcontext "ascent/pkg/platform/tx"
)

type shardedTx struct {
	lock   txcontext.ShardedLock
	gates  GateStore
	events eventlog.Store
}

// NewInMemoryTx returns the in-process StoreTx. Writes are staged and only
// reach the base stores once fn succeeds.
func NewInMemoryTx(gates GateStore, events eventlog.Store, timeout time.Duration) StoreTx {
	t := &shardedTx{gates: gates, events: events}
	t.lock.Timeout = timeout
	return t
}

func (t *shardedTx) RunInTx(ctx context.Context, userID domain.UserID, fn func(ctx context.Context, stores Stores) error) error {
	// gate sets get their own key space so they never queue behind state commits
	return t.lock.Run(ctx, "gates:"+userID.String(), func(ctx context.Context) error {
		gates := &stagedGates{base: t.gates}
		events := eventlog.NewStaged(t.events)
		if err := fn(ctx, Stores{Gates: gates, Events: events}); err != nil {
			return err
		}
		// staged writes were checked against base under this lock, so these
		// only fail when a writer bypasses it
		for _, g := range gates.created {
			if err := t.gates.Create(ctx, g); err != nil {
				return err
			}
		}
		for _, g := range gates.fulfilled {
			if err := t.gates.Fulfill(ctx, g); err != nil {
				return err
			}
		}
		for _, ruleID := range gates.markOrder {
			var err error
			if w := gates.marks[ruleID]; w != nil {
				err = t.gates.SaveWatermark(ctx, w)
			} else {
				err = t.gates.ClearWatermark(ctx, userID, ruleID)
			}
			if err != nil {
				return err
			}
		}
		return events.Flush(ctx)
	})
}

type stagedGates struct {
	base      GateStore
	created   []*models.Gate
	fulfilled []*models.Gate
	// nil value marks a cleared watermark
	marks     map[string]*models.Watermark
	markOrder []string
}

func (s *stagedGates) ListByUser(ctx context.Context, userID domain.UserID, includeFulfilled bool) ([]*models.Gate, error) {
	base, err := s.base.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	all := base
	for _, g := range s.created {
		if g.UserID == userID {
			all = append(all, g.Clone())
		}
	}
	out := all[:0]
	for _, g := range all {
		if f := s.fulfilledCopy(g.ID); f != nil {
			g = f
		}
		if includeFulfilled || g.Open() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stagedGates) fulfilledCopy(id domain.GateID) *models.Gate {
	for _, g := range s.fulfilled {
		if g.ID == id {
			return g.Clone()
		}
	}
	return nil
}

func (s *stagedGates) Create(_ context.Context, g *models.Gate) error {
	if slices.ContainsFunc(s.created, func(c *models.Gate) bool { return c.ID == g.ID }) {
		return sentinel.ErrAlreadyUsed
	}
	s.created = append(s.created, g.Clone())
	return nil
}

func (s *stagedGates) Fulfill(_ context.Context, g *models.Gate) error {
	if g.FulfilledAt == nil || s.fulfilledCopy(g.ID) != nil {
		return sentinel.ErrInvalidState
	}
	s.fulfilled = append(s.fulfilled, g.Clone())
	return nil
}

func (s *stagedGates) Watermarks(ctx context.Context, userID domain.UserID) (map[string]*models.Watermark, error) {
	out, err := s.base.Watermarks(ctx, userID)
	if err != nil {
		return nil, err
	}
	for id, w := range s.marks {
		switch {
		case w == nil:
			delete(out, id)
		case w.UserID == userID:
			out[id] = w.Clone()
		}
	}
	return out, nil
}

func (s *stagedGates) SaveWatermark(_ context.Context, w *models.Watermark) error {
	s.stageMark(w.RuleID, w.Clone())
	return nil
}

func (s *stagedGates) ClearWatermark(_ context.Context, _ domain.UserID, ruleID string) error {
	s.stageMark(ruleID, nil)
	return nil
}

func (s *stagedGates) stageMark(ruleID string, w *models.Watermark) {
	if s.marks == nil {
		s.marks = make(map[string]*models.Watermark)
	}
	if _, ok := s.marks[ruleID]; !ok {
		s.markOrder = append(s.markOrder, ruleID)
	}
	s.marks[ruleID] = w
}
