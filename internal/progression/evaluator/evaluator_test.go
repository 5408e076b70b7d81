package evaluator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ascent/internal/progression/models"
	"ascent/internal/registry"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
)

var day0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func at(days int) time.Time { return day0.Add(time.Duration(days) * 24 * time.Hour) }

// testCatalog: x has four levels and level 2 has no dwell requirement; a cascades
// to b, b cascades to c, c cascades back to a.
func testCatalog(t *testing.T) *registry.Registry {
	t.Helper()
	level := func(name string, dwell int, ms ...string) registry.Level {
		return registry.Level{Name: name, MinDwellDays: dwell, RequiredMilestones: ms}
	}
	reg, err := registry.New(registry.Catalog{
		Domains: []registry.Domain{
			{
				ID: "x", SchemaVersion: 1, Milestones: []string{"m1", "m2"},
				Levels: []registry.Level{
					level("l0", 2, "m1", "m2"),
					{Name: "l1", MinDwellDays: 2, RequiredMilestones: []string{"m1"}, MinScore: 10},
					level("l2", 0),
					level("l3", 0),
				},
			},
			{
				ID: "a", SchemaVersion: 1, Milestones: []string{"ready"},
				CascadeEligible: true, CascadesTo: []domain.DomainID{"b"},
				Levels: []registry.Level{level("l0", 1, "ready"), level("l1", 0)},
			},
			{
				ID: "b", SchemaVersion: 1, Milestones: []string{"ready"},
				CascadeEligible: true, CascadesTo: []domain.DomainID{"c"},
				Levels: []registry.Level{level("l0", 1, "ready"), level("l1", 0)},
			},
			{
				ID: "c", SchemaVersion: 1, Milestones: []string{"ready"},
				CascadeEligible: true, CascadesTo: []domain.DomainID{"a"},
				Levels: []registry.Level{level("l0", 1, "ready"), level("l1", 0)},
			},
		},
	})
	require.NoError(t, err)
	return reg
}

type EvaluatorSuite struct {
	suite.Suite
	reg    *registry.Registry
	x      *registry.Domain
	userID domain.UserID
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.reg = testCatalog(s.T())
	x, err := s.reg.Domain("x")
	s.Require().NoError(err)
	s.x = x
	s.userID = domain.UserID(uuid.New())
}

func allTrue() registry.MilestoneSnapshot {
	return registry.MilestoneSnapshot{SchemaVersion: 1, Facts: map[string]bool{"m1": true, "m2": true, "ready": true}}
}

func (s *EvaluatorSuite) TestDwellThenPromotionScenario() {
	state := models.NewDomainState(s.userID, "x", day0)

	dec := Evaluate(s.x, state, allTrue(), at(1))
	s.Equal(models.OutcomeNotEligible, dec.Outcome)
	s.Require().Len(dec.Blockers, 1)
	s.Equal(models.BlockerDwell, dec.Blockers[0].Kind)
	s.Equal(1, dec.Blockers[0].RemainingDays)

	dec = Evaluate(s.x, state, allTrue(), at(3))
	s.Equal(models.OutcomeEligible, dec.Outcome)

	pass := NewPass(s.reg, s.userID, map[domain.DomainID]*models.DomainState{"x": state},
		registry.SnapshotSet{"x": allTrue()}, at(3), DefaultCascadeDepth)
	s.Require().NoError(pass.Advance("x"))

	res := pass.Result()
	s.Require().Len(res.Promotions, 1)
	s.Equal(0, res.Promotions[0].FromLevel)
	s.Equal(1, res.Promotions[0].ToLevel)
	s.False(res.Promotions[0].Cascade)
	s.Equal(1, state.CurrentLevel)
	s.Equal(at(3), state.LevelEnteredAt)
	s.Zero(state.AdvancementScore)
}

func (s *EvaluatorSuite) TestDecisionOrder() {
	s.Run("zero elapsed is never eligible even with no dwell requirement", func() {
		d, err := s.reg.Domain("x")
		s.Require().NoError(err)
		state := &models.DomainState{Domain: "x", CurrentLevel: 2, LevelEnteredAt: day0, SuspensionCause: models.CauseNone}
		dec := Evaluate(d, state, allTrue(), day0)
		s.Equal(models.OutcomeNotEligible, dec.Outcome)
		s.Equal(models.BlockerDwell, dec.Blockers[0].Kind)
	})

	s.Run("at maximum", func() {
		state := &models.DomainState{Domain: "x", CurrentLevel: 3, LevelEnteredAt: day0, SuspensionCause: models.CauseNone}
		dec := Evaluate(s.x, state, allTrue(), at(100))
		s.Equal(models.OutcomeAtMaximum, dec.Outcome)
	})

	s.Run("missing and false milestones are both blockers", func() {
		state := models.NewDomainState(s.userID, "x", day0)
		snap := registry.MilestoneSnapshot{SchemaVersion: 1, Facts: map[string]bool{"m1": false}}
		dec := Evaluate(s.x, state, snap, at(5))
		s.Equal(models.OutcomeNotEligible, dec.Outcome)
		s.Equal([]string{"m1", "m2"}, dec.UnmetMilestones())
	})

	s.Run("score below threshold blocks", func() {
		state := &models.DomainState{Domain: "x", CurrentLevel: 1, LevelEnteredAt: day0, AdvancementScore: 4, SuspensionCause: models.CauseNone}
		dec := Evaluate(s.x, state, allTrue(), at(5))
		s.Equal(models.OutcomeNotEligible, dec.Outcome)
		s.Require().Len(dec.Blockers, 1)
		s.Equal(models.BlockerScore, dec.Blockers[0].Kind)
		s.EqualValues(6, dec.Blockers[0].ScoreShortfall)
	})

	s.Run("remaining days round up", func() {
		state := models.NewDomainState(s.userID, "x", day0)
		dec := Evaluate(s.x, state, allTrue(), day0.Add(time.Hour))
		s.Equal(2, dec.Blockers[0].RemainingDays)
		s.Equal(47*time.Hour, dec.RemainingDwell)
	})
}

func (s *EvaluatorSuite) TestSuspendedIsNeverEligible() {
	state := &models.DomainState{Domain: "x", CurrentLevel: 1, LevelEnteredAt: day0, AdvancementScore: 1000}
	state.Suspend(models.CauseManual, "break", nil, day0)

	dec := Evaluate(s.x, state, allTrue(), at(1000))
	s.Equal(models.OutcomeNotEligible, dec.Outcome)
	s.Equal("domain suspended", dec.Reason)
}

func (s *EvaluatorSuite) TestIdempotence() {
	s.Run("same input yields the same decision", func() {
		state := models.NewDomainState(s.userID, "x", day0)
		first := Evaluate(s.x, state, allTrue(), at(3))
		second := Evaluate(s.x, state, allTrue(), at(3))
		s.Equal(first, second)
	})

	s.Run("advancing twice in one pass promotes once", func() {
		state := models.NewDomainState(s.userID, "x", day0)
		pass := NewPass(s.reg, s.userID, map[domain.DomainID]*models.DomainState{"x": state},
			registry.SnapshotSet{"x": allTrue()}, at(3), DefaultCascadeDepth)
		s.Require().NoError(pass.Advance("x"))
		s.Require().NoError(pass.Advance("x"))
		s.Len(pass.Result().Promotions, 1)
		s.Equal(1, state.CurrentLevel)
	})

	s.Run("re-evaluating after promotion restarts dwell", func() {
		state := models.NewDomainState(s.userID, "x", day0)
		state.Promote(at(3))
		dec := Evaluate(s.x, state, allTrue(), at(3))
		s.Equal(models.OutcomeNotEligible, dec.Outcome)
	})
}

func (s *EvaluatorSuite) TestCascade() {
	fresh := func() map[domain.DomainID]*models.DomainState {
		return map[domain.DomainID]*models.DomainState{
			"a": models.NewDomainState(s.userID, "a", day0),
			"b": models.NewDomainState(s.userID, "b", day0),
			"c": models.NewDomainState(s.userID, "c", day0),
		}
	}
	snaps := registry.SnapshotSet{"a": allTrue(), "b": allTrue(), "c": allTrue()}

	s.Run("one hop by default", func() {
		states := fresh()
		pass := NewPass(s.reg, s.userID, states, snaps, at(2), DefaultCascadeDepth)
		s.Require().NoError(pass.Advance("a"))

		res := pass.Result()
		s.Require().Len(res.Promotions, 2)
		s.Equal(domain.DomainID("a"), res.Promotions[0].Domain)
		s.False(res.Promotions[0].Cascade)
		s.Equal(domain.DomainID("b"), res.Promotions[1].Domain)
		s.True(res.Promotions[1].Cascade)
		s.Zero(states["c"].CurrentLevel)
	})

	s.Run("cycles terminate at deeper bounds", func() {
		states := fresh()
		pass := NewPass(s.reg, s.userID, states, snaps, at(2), 10)
		s.Require().NoError(pass.Advance("a"))
		s.Len(pass.Result().Promotions, 3)
		for _, st := range states {
			s.Equal(1, st.CurrentLevel)
		}
	})

	s.Run("target without a snapshot is skipped", func() {
		states := fresh()
		pass := NewPass(s.reg, s.userID, states, registry.SnapshotSet{"a": allTrue()}, at(2), DefaultCascadeDepth)
		s.Require().NoError(pass.Advance("a"))
		s.Len(pass.Result().Promotions, 1)
		s.Zero(states["b"].CurrentLevel)
	})

	s.Run("target that is not eligible is left alone", func() {
		states := fresh()
		states["b"].Suspend(models.CauseManual, "", nil, day0)
		pass := NewPass(s.reg, s.userID, states, snaps, at(2), DefaultCascadeDepth)
		s.Require().NoError(pass.Advance("a"))
		s.Len(pass.Result().Promotions, 1)
		s.Equal(models.OutcomeNotEligible, pass.Result().Decisions["b"].Outcome)
	})

	s.Run("depth zero disables cascades", func() {
		states := fresh()
		pass := NewPass(s.reg, s.userID, states, snaps, at(2), 0)
		s.Require().NoError(pass.Advance("a"))
		s.Len(pass.Result().Promotions, 1)
	})
}

func (s *EvaluatorSuite) TestPassErrors() {
	s.Run("unknown domain", func() {
		pass := NewPass(s.reg, s.userID, nil, nil, day0, 1)
		err := pass.Advance("nope")
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownDomain))
	})

	s.Run("corrupt state surfaces as invariant violation", func() {
		states := map[domain.DomainID]*models.DomainState{
			"x": {Domain: "x", CurrentLevel: 9, SuspensionCause: models.CauseNone},
		}
		pass := NewPass(s.reg, s.userID, states, nil, day0, 1)
		err := pass.Advance("x")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("missing state is created at level zero", func() {
		pass := NewPass(s.reg, s.userID, nil, nil, day0, 1)
		s.Require().NoError(pass.Advance("x"))
		st := pass.Result().States["x"]
		s.Require().NotNil(st)
		s.Zero(st.CurrentLevel)
		s.True(st.IsNew())
	})
}

// TestLevelStaysInRange drives a state to the top and checks the bound holds
// at every observed step.
func (s *EvaluatorSuite) TestLevelStaysInRange() {
	state := models.NewDomainState(s.userID, "x", day0)
	now := day0
	for i := 0; i < 20; i++ {
		now = now.Add(3 * 24 * time.Hour)
		state.AdvancementScore = 100
		pass := NewPass(s.reg, s.userID, map[domain.DomainID]*models.DomainState{"x": state},
			registry.SnapshotSet{"x": allTrue()}, now, DefaultCascadeDepth)
		s.Require().NoError(pass.Advance("x"))
		s.Require().NoError(state.Validate(s.x.MaxLevel()))
		for _, p := range pass.Result().Promotions {
			s.Equal(now, state.LevelEnteredAt)
			s.Zero(state.AdvancementScore)
			s.Equal(p.FromLevel+1, p.ToLevel)
		}
	}
	s.Equal(s.x.MaxLevel(), state.CurrentLevel)
}
