package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ascent/internal/eventlog"
	"ascent/internal/progression/models"
	"ascent/internal/progression/store"
	"ascent/internal/registry"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
	"ascent/pkg/platform/sentinel"
	"ascent/pkg/requestcontext"
)

var day0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func at(days int) time.Time { return day0.Add(time.Duration(days) * 24 * time.Hour) }

func testCatalog(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.Catalog{
		Domains: []registry.Domain{
			{
				ID: "x", SchemaVersion: 1, Milestones: []string{"m1", "m2"},
				CascadeEligible: true, CascadesTo: []domain.DomainID{"y"},
				Levels: []registry.Level{
					{Name: "l0", MinDwellDays: 2, RequiredMilestones: []string{"m1", "m2"}},
					{Name: "l1", MinDwellDays: 2, RequiredMilestones: []string{"m1"}},
					{Name: "l2", MinDwellDays: 1},
					{Name: "l3"},
				},
			},
			{
				ID: "y", SchemaVersion: 1, Milestones: []string{"ready"},
				Levels: []registry.Level{
					{Name: "l0", MinDwellDays: 1, RequiredMilestones: []string{"ready"}},
					{Name: "l1"},
				},
			},
		},
	})
	require.NoError(t, err)
	return reg
}

type ServiceSuite struct {
	suite.Suite
	reg     *registry.Registry
	states  *store.InMemory
	events  *eventlog.InMemoryStore
	service *Service
	userID  domain.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.reg = testCatalog(s.T())
	s.states = store.NewInMemory()
	s.events = eventlog.NewInMemoryStore()
	svc, err := New(s.reg, s.states, s.events)
	s.Require().NoError(err)
	s.service = svc
	s.userID = domain.UserID(uuid.New())
}

func ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func xDone() registry.SnapshotSet {
	return registry.SnapshotSet{
		"x": {SchemaVersion: 1, Facts: map[string]bool{"m1": true, "m2": true}},
	}
}

func withY(set registry.SnapshotSet) registry.SnapshotSet {
	set["y"] = registry.MilestoneSnapshot{SchemaVersion: 1, Facts: map[string]bool{"ready": true}}
	return set
}

func (s *ServiceSuite) promotions() []*eventlog.Event {
	events, err := s.events.ListByUser(context.Background(), s.userID, eventlog.Filter{Kinds: []eventlog.Kind{eventlog.KindPromotion}})
	s.Require().NoError(err)
	return events
}

func (s *ServiceSuite) TestNewRequiresStores() {
	_, err := New(nil, s.states, s.events)
	s.Error(err)
	_, err = New(s.reg, nil, s.events)
	s.Error(err)
	_, err = New(s.reg, s.states, nil)
	s.Error(err)
}

func (s *ServiceSuite) TestDwellThenPromotionScenario() {
	res, err := s.service.Advance(ctxAt(day0), s.userID, "x", xDone())
	s.Require().NoError(err)
	s.False(res.Promoted())

	st, err := s.states.Get(context.Background(), s.userID, "x")
	s.Require().NoError(err, "first pass persists the level-0 state")
	s.Equal(day0, st.LevelEnteredAt)

	dec, err := s.service.Evaluate(ctxAt(at(1)), s.userID, "x", xDone()["x"])
	s.Require().NoError(err)
	s.Equal(models.OutcomeNotEligible, dec.Outcome)
	s.Require().Len(dec.Blockers, 1)
	s.Equal(models.BlockerDwell, dec.Blockers[0].Kind)

	dec, err = s.service.Evaluate(ctxAt(at(3)), s.userID, "x", xDone()["x"])
	s.Require().NoError(err)
	s.Equal(models.OutcomeEligible, dec.Outcome)

	res, err = s.service.Advance(ctxAt(at(3)), s.userID, "x", xDone())
	s.Require().NoError(err)
	s.Require().Len(res.Promotions, 1)

	st, err = s.service.GetState(context.Background(), s.userID, "x")
	s.Require().NoError(err)
	s.Equal(1, st.CurrentLevel)
	s.Equal(at(3), st.LevelEnteredAt)
	s.Zero(st.AdvancementScore)

	promos := s.promotions()
	s.Require().Len(promos, 1)
	s.Equal(0, promos[0].FromLevel)
	s.Equal(1, promos[0].ToLevel)
	s.False(promos[0].Cascade)
	s.True(promos[0].Milestones["m1"])
}

func (s *ServiceSuite) TestIdempotentAfterPromotion() {
	_, err := s.service.Advance(ctxAt(day0), s.userID, "x", xDone())
	s.Require().NoError(err)
	_, err = s.service.Advance(ctxAt(at(3)), s.userID, "x", xDone())
	s.Require().NoError(err)

	res, err := s.service.Advance(ctxAt(at(3)), s.userID, "x", xDone())
	s.Require().NoError(err)
	s.False(res.Promoted())
	s.Equal(models.OutcomeNotEligible, res.Decisions["x"].Outcome)
	s.Len(s.promotions(), 1)
}

func (s *ServiceSuite) TestCascade() {
	s.Run("target with evidence is promoted once", func() {
		_, err := s.service.AdvanceAll(ctxAt(day0), s.userID, withY(xDone()))
		s.Require().NoError(err)

		res, err := s.service.Advance(ctxAt(at(3)), s.userID, "x", withY(xDone()))
		s.Require().NoError(err)
		s.Require().Len(res.Promotions, 2)
		s.True(res.Promotions[1].Cascade)
		s.Equal(domain.DomainID("y"), res.Promotions[1].Domain)

		y, err := s.service.GetState(context.Background(), s.userID, "y")
		s.Require().NoError(err)
		s.Equal(1, y.CurrentLevel)
	})

	s.Run("disabled with zero depth", func() {
		user := domain.UserID(uuid.New())
		svc, err := New(s.reg, s.states, s.events, WithCascadeDepth(0))
		s.Require().NoError(err)
		_, err = svc.AdvanceAll(ctxAt(day0), user, withY(xDone()))
		s.Require().NoError(err)

		res, err := svc.Advance(ctxAt(at(3)), user, "x", withY(xDone()))
		s.Require().NoError(err)
		s.Len(res.Promotions, 1)
	})
}

func (s *ServiceSuite) TestReadsDoNotWrite() {
	st, err := s.service.GetState(ctxAt(day0), s.userID, "x")
	s.Require().NoError(err)
	s.Equal(0, st.CurrentLevel)
	s.True(st.IsNew())

	list, err := s.service.ListStates(ctxAt(day0), s.userID)
	s.Require().NoError(err)
	s.Len(list, 2)

	_, err = s.service.Evaluate(ctxAt(day0), s.userID, "x", xDone()["x"])
	s.Require().NoError(err)

	users, err := s.service.ListUsers(context.Background())
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *ServiceSuite) TestInputErrors() {
	ctx := ctxAt(day0)

	_, err := s.service.GetState(ctx, s.userID, "unknown")
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownDomain))

	_, err = s.service.Advance(ctx, domain.UserID{}, "x", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.service.Advance(ctx, s.userID, "x", registry.SnapshotSet{
		"x": {SchemaVersion: 1, Facts: map[string]bool{"m_typo": true}},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.service.Evaluate(ctx, s.userID, "x", registry.MilestoneSnapshot{SchemaVersion: 9})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestInvariantViolationIsReported() {
	bad := models.NewDomainState(s.userID, "x", day0)
	s.Require().NoError(s.states.Save(context.Background(), bad))
	bad.CurrentLevel = 7
	s.Require().NoError(s.states.Save(context.Background(), bad))

	_, err := s.service.GetState(context.Background(), s.userID, "x")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = s.service.AdvanceAll(ctxAt(at(3)), s.userID, xDone())
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestAddScore() {
	ctx := ctxAt(day0)

	st, err := s.service.AddScore(ctx, s.userID, "x", 15)
	s.Require().NoError(err)
	s.EqualValues(15, st.AdvancementScore)
	st, err = s.service.AddScore(ctx, s.userID, "x", 5)
	s.Require().NoError(err)
	s.EqualValues(20, st.AdvancementScore)

	_, err = s.service.AddScore(ctx, s.userID, "x", -1)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.service.Suspend(ctx, s.userID, models.Domains("x"), models.CauseManual, "break", nil)
	s.Require().NoError(err)
	_, err = s.service.AddScore(ctx, s.userID, "x", 1)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestCompositeScore() {
	ctx := ctxAt(day0)
	score, err := s.service.CompositeScore(ctx, s.userID)
	s.Require().NoError(err)
	s.Zero(score)

	_, err = s.service.AdvanceAll(ctx, s.userID, withY(xDone()))
	s.Require().NoError(err)
	_, err = s.service.AdvanceAll(ctxAt(at(3)), s.userID, withY(xDone()))
	s.Require().NoError(err)

	// x at 1/3, y at 1/1
	score, err = s.service.CompositeScore(ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(67, score)
}

func (s *ServiceSuite) TestSuspension() {
	s.Run("suspended domain never advances", func() {
		_, err := s.service.AdvanceAll(ctxAt(day0), s.userID, xDone())
		s.Require().NoError(err)
		_, err = s.service.Suspend(ctxAt(day0), s.userID, models.Domains("x"), models.CauseManual, "", nil)
		s.Require().NoError(err)

		res, err := s.service.Advance(ctxAt(at(10)), s.userID, "x", xDone())
		s.Require().NoError(err)
		s.False(res.Promoted())
		s.Equal("domain suspended", res.Decisions["x"].Reason)
	})

	s.Run("resume clears fields and keeps level", func() {
		resumed, err := s.service.Resume(ctxAt(at(10)), s.userID, models.AllDomains())
		s.Require().NoError(err)
		s.Require().Len(resumed, 1)
		s.Equal(models.CauseNone, resumed[0].SuspensionCause)
		s.Nil(resumed[0].ResumeAfter)
		s.Equal(0, resumed[0].CurrentLevel)

		again, err := s.service.Resume(ctxAt(at(10)), s.userID, models.AllDomains())
		s.Require().NoError(err)
		s.Empty(again)
	})

	s.Run("bad input", func() {
		_, err := s.service.Suspend(ctxAt(day0), s.userID, models.Target{}, models.CauseManual, "", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		_, err = s.service.Suspend(ctxAt(day0), s.userID, models.AllDomains(), models.CauseNone, "", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		past := day0.Add(-time.Hour)
		_, err = s.service.Suspend(ctxAt(day0), s.userID, models.AllDomains(), models.CauseManual, "", &past)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		_, err = s.service.Suspend(ctxAt(day0), s.userID, models.Domains("nope"), models.CauseManual, "", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownDomain))
	})
}

func (s *ServiceSuite) TestExternalSuspensionRollsBackOnEntryOnly() {
	_, err := s.service.AdvanceAll(ctxAt(day0), s.userID, xDone())
	s.Require().NoError(err)
	_, err = s.service.Advance(ctxAt(at(3)), s.userID, "x", xDone())
	s.Require().NoError(err)

	out, err := s.service.Suspend(ctxAt(at(4)), s.userID, models.Domains("x"), models.CauseExternal, "provider hold", nil)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(0, out[0].CurrentLevel)
	s.Equal(at(4), out[0].LevelEnteredAt)

	out, err = s.service.Suspend(ctxAt(at(5)), s.userID, models.Domains("x"), models.CauseExternal, "still held", nil)
	s.Require().NoError(err)
	s.Equal(0, out[0].CurrentLevel)
	s.Equal("still held", out[0].SuspensionReason)

	rollbacks, err := s.events.ListByUser(context.Background(), s.userID, eventlog.Filter{Kinds: []eventlog.Kind{eventlog.KindRollback}})
	s.Require().NoError(err)
	s.Require().Len(rollbacks, 1)
	s.Equal(1, rollbacks[0].FromLevel)
	s.Equal(0, rollbacks[0].ToLevel)

	resumed, err := s.service.Resume(ctxAt(at(6)), s.userID, models.Domains("x"))
	s.Require().NoError(err)
	s.Equal(0, resumed[0].CurrentLevel, "resume does not undo the rollback")
}

func (s *ServiceSuite) TestCheckTimedResumptions() {
	soon := at(2)
	later := at(5)
	_, err := s.service.Suspend(ctxAt(day0), s.userID, models.Domains("x"), models.CauseCrisis, "", &soon)
	s.Require().NoError(err)
	_, err = s.service.Suspend(ctxAt(day0), s.userID, models.Domains("y"), models.CauseManual, "", &later)
	s.Require().NoError(err)

	users, err := s.service.DueResumptionUsers(context.Background(), at(1))
	s.Require().NoError(err)
	s.Empty(users)

	ids, err := s.service.CheckTimedResumptions(ctxAt(at(1)), s.userID)
	s.Require().NoError(err)
	s.Empty(ids)

	users, err = s.service.DueResumptionUsers(context.Background(), at(2))
	s.Require().NoError(err)
	s.Equal([]domain.UserID{s.userID}, users)

	ids, err = s.service.CheckTimedResumptions(ctxAt(at(2)), s.userID)
	s.Require().NoError(err)
	s.Equal([]domain.DomainID{"x"}, ids)

	y, err := s.service.GetState(context.Background(), s.userID, "y")
	s.Require().NoError(err)
	s.True(y.Suspended)

	resumptions, err := s.service.History(context.Background(), s.userID, eventlog.Filter{Kinds: []eventlog.Kind{eventlog.KindResumption}})
	s.Require().NoError(err)
	s.Require().Len(resumptions, 1)
	s.Equal("timed", resumptions[0].Reason)
}

func (s *ServiceSuite) TestHistory() {
	_, err := s.service.History(context.Background(), s.userID, eventlog.Filter{Domain: "nope"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownDomain))

	_, err = s.service.AdvanceAll(ctxAt(day0), s.userID, withY(xDone()))
	s.Require().NoError(err)
	_, err = s.service.AdvanceAll(ctxAt(at(3)), s.userID, withY(xDone()))
	s.Require().NoError(err)

	events, err := s.service.History(context.Background(), s.userID, eventlog.Filter{Domain: "y"})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(domain.DomainID("y"), events[0].Domain)

	st, err := s.service.GetState(context.Background(), s.userID, "x")
	s.Require().NoError(err)
	all, err := s.service.History(context.Background(), s.userID, eventlog.Filter{})
	s.Require().NoError(err)
	entered, ok := eventlog.LevelEnteredAt(all, "x")
	s.Require().True(ok)
	s.Equal(st.LevelEnteredAt, entered)
}

func (s *ServiceSuite) TestConcurrentAdvancePromotesOnce() {
	_, err := s.service.AdvanceAll(ctxAt(day0), s.userID, xDone())
	s.Require().NoError(err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Advance(ctxAt(at(3)), s.userID, "x", xDone())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			s.True(dErrors.HasCode(err, dErrors.CodeConcurrentModification), err.Error())
			s.True(dErrors.IsRetryable(err))
		}
	}
	s.Len(s.promotions(), 1)

	st, err := s.service.GetState(context.Background(), s.userID, "x")
	s.Require().NoError(err)
	s.Equal(1, st.CurrentLevel)
}

func (s *ServiceSuite) TestTxDiscardsWritesOnFailure() {
	tx := NewInMemoryTx(s.states, s.events, 0)
	boom := errors.New("boom")

	err := tx.RunInTx(context.Background(), s.userID, func(ctx context.Context, stores Stores) error {
		st := models.NewDomainState(s.userID, "x", day0)
		if err := stores.States.Save(ctx, st); err != nil {
			return err
		}
		if _, err := stores.Events.Append(ctx, &eventlog.Event{UserID: s.userID, Kind: eventlog.KindPromotion, Domain: "x", At: day0}); err != nil {
			return err
		}
		got, err := stores.States.Get(ctx, s.userID, "x")
		s.Require().NoError(err, "staged writes are visible inside the tx")
		s.EqualValues(1, got.Version)
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.states.Get(context.Background(), s.userID, "x")
	s.ErrorIs(err, sentinel.ErrNotFound)
	events, err := s.events.ListByUser(context.Background(), s.userID, eventlog.Filter{})
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *ServiceSuite) TestTxCommitIsAllOrNothing() {
	ctx := context.Background()
	y := models.NewDomainState(s.userID, "y", day0)
	s.Require().NoError(s.states.Save(ctx, y))

	tx := NewInMemoryTx(s.states, s.events, 0)
	err := tx.RunInTx(ctx, s.userID, func(ctx context.Context, stores Stores) error {
		if err := stores.States.Save(ctx, models.NewDomainState(s.userID, "x", day0)); err != nil {
			return err
		}
		staged, err := stores.States.Get(ctx, s.userID, "y")
		s.Require().NoError(err)
		staged.Promote(at(1))
		if err := stores.States.Save(ctx, staged); err != nil {
			return err
		}
		// a writer outside the tx moves y on before commit
		outside := y.Clone()
		outside.Rollback(at(1))
		return s.states.Save(context.Background(), outside)
	})
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.states.Get(ctx, s.userID, "x")
	s.ErrorIs(err, sentinel.ErrNotFound, "the earlier domain is not written")
	events, err := s.events.ListByUser(ctx, s.userID, eventlog.Filter{})
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *ServiceSuite) TestTxRejectsStaleVersion() {
	st := models.NewDomainState(s.userID, "x", day0)
	s.Require().NoError(s.states.Save(context.Background(), st))
	stale := st.Clone()
	stale.Version = 0

	tx := NewInMemoryTx(s.states, s.events, 0)
	err := tx.RunInTx(context.Background(), s.userID, func(ctx context.Context, stores Stores) error {
		return stores.States.Save(ctx, stale)
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func TestTranslate(t *testing.T) {
	require.True(t, dErrors.HasCode(translate(sentinel.ErrConflict, "x"), dErrors.CodeConcurrentModification))
	require.True(t, dErrors.HasCode(translate(sentinel.ErrUnavailable, "x"), dErrors.CodeStorageUnavailable))
	require.True(t, dErrors.HasCode(translate(context.DeadlineExceeded, "x"), dErrors.CodeTimeout))
	require.True(t, dErrors.HasCode(translate(errors.New("x"), "x"), dErrors.CodeInternal))
	coded := dErrors.New(dErrors.CodeUnknownDomain, "nope")
	require.Equal(t, coded, translate(coded, "x"))
	require.NoError(t, translate(nil, "x"))
}
