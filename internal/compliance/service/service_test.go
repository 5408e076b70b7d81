package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ascent/internal/compliance/cache"
	"ascent/internal/compliance/models"
	"ascent/internal/compliance/store"
	"ascent/internal/eventlog"
	"ascent/internal/registry"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
	"ascent/pkg/requestcontext"
)

var t0 = time.Date(2026, 4, 2, 7, 30, 0, 0, time.UTC)

type EngineSuite struct {
	suite.Suite
	reg     *registry.Registry
	gates   *store.InMemory
	events  *eventlog.InMemoryStore
	service *Service
	userID  domain.UserID
	ctx     context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	reg, err := registry.Default()
	s.Require().NoError(err)
	s.reg = reg
	s.gates = store.NewInMemory()
	s.events = eventlog.NewInMemoryStore()
	svc, err := New(s.reg, s.gates, s.events)
	s.Require().NoError(err)
	s.service = svc
	s.userID = domain.UserID(uuid.New())
	s.ctx = requestcontext.WithTime(context.Background(), t0)
}

func signals(counters map[string]int) registry.SignalSnapshot {
	return registry.SignalSnapshot{SchemaVersion: 1, Counters: counters}
}

func (s *EngineSuite) eventsOf(kind eventlog.Kind) []*eventlog.Event {
	events, err := s.events.ListByUser(context.Background(), s.userID, eventlog.Filter{Kinds: []eventlog.Kind{kind}})
	s.Require().NoError(err)
	return events
}

func (s *EngineSuite) TestGateLifecycleScenario() {
	opened, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 2}))
	s.Require().NoError(err)
	s.Empty(opened)

	opened, err = s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
	s.Require().NoError(err)
	s.Require().Len(opened, 1)
	s.Equal(domain.Feature("community_posting"), opened[0].Feature)
	s.Equal(domain.Action("reflection_completed"), opened[0].FulfillingAction)
	s.Equal("reflection_overdue", opened[0].RuleID)
	s.Equal(t0, opened[0].CreatedAt)

	opened, err = s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 4}))
	s.Require().NoError(err)
	s.Empty(opened, "no duplicate gate on the same feature")

	access, err := s.service.CheckFeatureAccess(s.ctx, s.userID, "community_posting")
	s.Require().NoError(err)
	s.False(access.Allowed)
	s.Require().NotNil(access.Gate)

	cleared, err := s.service.FulfillByAction(s.ctx, s.userID, "reflection_completed")
	s.Require().NoError(err)
	s.True(cleared)

	access, err = s.service.CheckFeatureAccess(s.ctx, s.userID, "community_posting")
	s.Require().NoError(err)
	s.True(access.Allowed)
	s.Nil(access.Gate)

	s.Len(s.eventsOf(eventlog.KindGateOpened), 1)
	s.Len(s.eventsOf(eventlog.KindGateFulfilled), 1)
	evaluated := s.eventsOf(eventlog.KindGatesEvaluated)
	s.Require().Len(evaluated, 3)
	s.Equal([]int{0, 1, 0}, []int{evaluated[0].Count, evaluated[1].Count, evaluated[2].Count})
}

func (s *EngineSuite) TestRulesAreIndependent() {
	opened, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{
		"missed_reflections":  5,
		"skipped_checkins":    6,
		"completed_checkins":  0,
		"late_night_sessions": 4,
	}))
	s.Require().NoError(err)
	s.Require().Len(opened, 2)
	s.Equal(domain.Feature("community_posting"), opened[0].Feature)
	s.Equal(domain.Feature("movement_challenges"), opened[1].Feature)

	s.Run("all conditions must hold", func() {
		user := domain.UserID(uuid.New())
		opened, err := s.service.EvaluateSignals(s.ctx, user, signals(map[string]int{
			"skipped_checkins":   6,
			"completed_checkins": 1,
		}))
		s.Require().NoError(err)
		s.Empty(opened)
	})
}

func (s *EngineSuite) TestFulfilledGateDoesNotReopenSpontaneously() {
	_, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"late_night_sessions": 5}))
	s.Require().NoError(err)
	_, err = s.service.FulfillByAction(s.ctx, s.userID, "rest_plan_acknowledged")
	s.Require().NoError(err)

	for range 3 {
		access, err := s.service.CheckFeatureAccess(s.ctx, s.userID, "focus_rooms")
		s.Require().NoError(err)
		s.True(access.Allowed)
	}

	s.Run("the same snapshot again opens nothing", func() {
		for range 3 {
			opened, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"late_night_sessions": 5}))
			s.Require().NoError(err)
			s.Empty(opened)
		}
		access, err := s.service.CheckFeatureAccess(s.ctx, s.userID, "focus_rooms")
		s.Require().NoError(err)
		s.True(access.Allowed)
	})

	s.Run("going past the earlier peak opens a new gate", func() {
		opened, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"late_night_sessions": 6}))
		s.Require().NoError(err)
		s.Len(opened, 1)

		all, err := s.service.ListGates(s.ctx, s.userID, true)
		s.Require().NoError(err)
		s.Len(all, 2)
		open, err := s.service.ListGates(s.ctx, s.userID, false)
		s.Require().NoError(err)
		s.Len(open, 1)
	})
}

func (s *EngineSuite) TestRuleCrossesAfreshAfterDroppingBelow() {
	_, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 4}))
	s.Require().NoError(err)
	_, err = s.service.FulfillByAction(s.ctx, s.userID, "reflection_completed")
	s.Require().NoError(err)

	opened, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
	s.Require().NoError(err)
	s.Empty(opened)

	opened, err = s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 0}))
	s.Require().NoError(err)
	s.Empty(opened)
	marks, err := s.gates.Watermarks(context.Background(), s.userID)
	s.Require().NoError(err)
	s.NotContains(marks, "reflection_overdue")

	opened, err = s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
	s.Require().NoError(err)
	s.Len(opened, 1)
}

func (s *EngineSuite) TestOldestBlockingGateIsReported() {
	older := &models.Gate{ID: domain.NewGateID(), UserID: s.userID, RuleID: "manual", Feature: "focus_rooms", CreatedAt: t0.Add(-time.Hour), FulfillingAction: "coach_review"}
	s.Require().NoError(s.gates.Create(context.Background(), older))
	_, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"late_night_sessions": 9}))
	s.Require().NoError(err)

	access, err := s.service.CheckFeatureAccess(s.ctx, s.userID, "focus_rooms")
	s.Require().NoError(err)
	s.False(access.Allowed)
	s.Equal(older.ID, access.Gate.ID)
}

func (s *EngineSuite) TestFulfillByAction() {
	s.Run("nothing to clear", func() {
		cleared, err := s.service.FulfillByAction(s.ctx, s.userID, "reflection_completed")
		s.Require().NoError(err)
		s.False(cleared)
	})

	s.Run("action no rule names", func() {
		cleared, err := s.service.FulfillByAction(s.ctx, s.userID, "went_for_a_walk")
		s.Require().NoError(err)
		s.False(cleared)
	})

	s.Run("empty action", func() {
		_, err := s.service.FulfillByAction(s.ctx, s.userID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("clears only gates for the action", func() {
		_, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3, "late_night_sessions": 5}))
		s.Require().NoError(err)
		cleared, err := s.service.FulfillByAction(s.ctx, s.userID, "rest_plan_acknowledged")
		s.Require().NoError(err)
		s.True(cleared)

		open, err := s.service.ListGates(s.ctx, s.userID, false)
		s.Require().NoError(err)
		s.Require().Len(open, 1)
		s.Equal(domain.Feature("community_posting"), open[0].Feature)
	})
}

func (s *EngineSuite) TestInputErrors() {
	_, err := s.service.CheckFeatureAccess(s.ctx, s.userID, "teleportation")
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownFeature))

	_, err = s.service.EvaluateSignals(s.ctx, s.userID, registry.SignalSnapshot{SchemaVersion: 7})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflectoins": 3}))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.service.ListGates(s.ctx, domain.UserID{}, true)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *EngineSuite) TestConcurrentEvaluationOpensOneGate() {
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
			s.NoError(err)
		}()
	}
	wg.Wait()

	open, err := s.service.ListGates(s.ctx, s.userID, false)
	s.Require().NoError(err)
	s.Len(open, 1)
}

func (s *EngineSuite) redisCache() *cache.Redis {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })
	return cache.NewRedis(client)
}

func (s *EngineSuite) requireAccess(svc *Service, allowed bool) models.Access {
	access, err := svc.CheckFeatureAccess(s.ctx, s.userID, "community_posting")
	s.Require().NoError(err)
	s.Require().Equal(allowed, access.Allowed)
	return access
}

func (s *EngineSuite) TestCachedAnswersFollowGateChanges() {
	c := s.redisCache()
	svc, err := New(s.reg, s.gates, s.events, WithCache(c))
	s.Require().NoError(err)

	s.requireAccess(svc, true)
	_, _, cached, err := c.Get(s.ctx, s.userID, "community_posting")
	s.Require().NoError(err)
	s.True(cached)

	_, err = svc.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
	s.Require().NoError(err)
	denied := s.requireAccess(svc, false)
	again := s.requireAccess(svc, false)
	s.Equal(denied.Gate.ID, again.Gate.ID)

	_, err = svc.FulfillByAction(s.ctx, s.userID, "reflection_completed")
	s.Require().NoError(err)
	s.requireAccess(svc, true)
}

// interleavedStore runs interleave once, after a read has hit the store and
// before the read returns.
type interleavedStore struct {
	*store.InMemory
	interleave func()
}

func (i *interleavedStore) ListByUser(ctx context.Context, userID domain.UserID, includeFulfilled bool) ([]*models.Gate, error) {
	gates, err := i.InMemory.ListByUser(ctx, userID, includeFulfilled)
	if f := i.interleave; f != nil {
		i.interleave = nil
		f()
	}
	return gates, err
}

func (s *EngineSuite) TestCheckOverlappingAGateChangeIsNotCached() {
	gates := &interleavedStore{InMemory: s.gates}
	svc, err := New(s.reg, gates, s.events, WithCache(s.redisCache()))
	s.Require().NoError(err)

	gates.interleave = func() {
		opened, err := svc.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
		s.Require().NoError(err)
		s.Require().Len(opened, 1)
	}
	s.requireAccess(svc, true)

	access := s.requireAccess(svc, false)
	s.NotNil(access.Gate)
}

// faultyCache fails the chosen operations of a working cache.
type faultyCache struct {
	*cache.Redis
	failGet, failHold, failRelease bool
}

var errCacheDown = errors.New("cache down")

func (f *faultyCache) Get(ctx context.Context, userID domain.UserID, feature domain.Feature) (models.Access, int64, bool, error) {
	if f.failGet {
		return models.Access{}, 0, false, errCacheDown
	}
	return f.Redis.Get(ctx, userID, feature)
}

func (f *faultyCache) Hold(ctx context.Context, userID domain.UserID) error {
	if f.failHold {
		return errCacheDown
	}
	return f.Redis.Hold(ctx, userID)
}

func (f *faultyCache) Release(ctx context.Context, userID domain.UserID) error {
	if f.failRelease {
		return errCacheDown
	}
	return f.Redis.Release(ctx, userID)
}

func (s *EngineSuite) TestFailedCacheReleaseServesFreshAnswers() {
	svc, err := New(s.reg, s.gates, s.events, WithCache(&faultyCache{Redis: s.redisCache(), failRelease: true}))
	s.Require().NoError(err)

	s.requireAccess(svc, true)
	_, err = svc.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
	s.Require().NoError(err)
	s.requireAccess(svc, false)
	s.requireAccess(svc, false)

	cleared, err := svc.FulfillByAction(s.ctx, s.userID, "reflection_completed")
	s.Require().NoError(err)
	s.True(cleared)
	s.requireAccess(svc, true)
}

func (s *EngineSuite) TestGateChangesAreRefusedWhenTheCacheCannotBeHeld() {
	c := &faultyCache{Redis: s.redisCache(), failHold: true}
	svc, err := New(s.reg, s.gates, s.events, WithCache(c))
	s.Require().NoError(err)

	_, err = svc.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
	s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))
	open, err := svc.ListGates(s.ctx, s.userID, false)
	s.Require().NoError(err)
	s.Empty(open)
	s.Empty(s.eventsOf(eventlog.KindGateOpened))

	c.failHold = false
	_, err = svc.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
	s.Require().NoError(err)
	s.requireAccess(svc, false)

	c.failHold = true
	_, err = svc.FulfillByAction(s.ctx, s.userID, "reflection_completed")
	s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))
	s.requireAccess(svc, false)
}

func (s *EngineSuite) TestCacheReadFailureFallsBackToStore() {
	svc, err := New(s.reg, s.gates, s.events, WithCache(&faultyCache{Redis: s.redisCache(), failGet: true}))
	s.Require().NoError(err)

	_, err = svc.EvaluateSignals(s.ctx, s.userID, signals(map[string]int{"missed_reflections": 3}))
	s.Require().NoError(err)
	s.requireAccess(svc, false)
}

func (s *EngineSuite) TestTxDiscardsOnFailure() {
	tx := NewInMemoryTx(s.gates, s.events, 0)
	err := tx.RunInTx(context.Background(), s.userID, func(ctx context.Context, stores Stores) error {
		g := &models.Gate{ID: domain.NewGateID(), UserID: s.userID, RuleID: "r", Feature: "focus_rooms", CreatedAt: t0, FulfillingAction: "a"}
		if err := stores.Gates.Create(ctx, g); err != nil {
			return err
		}
		if err := stores.Gates.SaveWatermark(ctx, &models.Watermark{UserID: s.userID, RuleID: "r", Peak: map[string]int{"x": 1}, UpdatedAt: t0}); err != nil {
			return err
		}
		staged, err := stores.Gates.ListByUser(ctx, s.userID, false)
		s.Require().NoError(err)
		s.Len(staged, 1)
		marks, err := stores.Gates.Watermarks(ctx, s.userID)
		s.Require().NoError(err)
		s.Contains(marks, "r")
		return errors.New("abort")
	})
	s.Error(err)

	gates, err := s.gates.ListByUser(context.Background(), s.userID, true)
	s.Require().NoError(err)
	s.Empty(gates)
	marks, err := s.gates.Watermarks(context.Background(), s.userID)
	s.Require().NoError(err)
	s.Empty(marks)
}

func TestDescribe(t *testing.T) {
	rule := registry.Rule{When: []registry.Condition{
		{Signal: "skipped_checkins", Op: registry.OpGTE, Threshold: 5},
		{Signal: "completed_checkins", Op: registry.OpEQ, Threshold: 0},
	}}
	require.Equal(t, "skipped_checkins gte 5 and completed_checkins eq 0", Describe(rule))
	rule.Description = "lapsed"
	require.Equal(t, "lapsed", Describe(rule))
}
