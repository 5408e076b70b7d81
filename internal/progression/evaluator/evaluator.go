// Package evaluator decides whether a domain state may advance. Everything in
// this package is pure: it reads states and snapshots and never touches a
// store, so the same inputs always produce the same decision.
package evaluator

import (
	"fmt"
	"time"

	"ascent/internal/progression/models"
	"ascent/internal/registry"
)

const day = 24 * time.Hour

// Evaluate applies the advancement checks in order: suspension, top level,
// dwell time, then milestones and score. Dwell is checked before milestones
// and both must hold, so a state with no elapsed time is never eligible.
func Evaluate(d *registry.Domain, state *models.DomainState, snapshot registry.MilestoneSnapshot, now time.Time) models.Decision {
	dec := models.Decision{
		Domain:    d.ID,
		FromLevel: state.CurrentLevel,
	}

	if state.Suspended {
		dec.Outcome = models.OutcomeNotEligible
		dec.Reason = "domain suspended"
		dec.Blockers = []models.Blocker{{Kind: models.BlockerSuspended}}
		return dec
	}

	if state.CurrentLevel >= d.MaxLevel() {
		dec.Outcome = models.OutcomeAtMaximum
		dec.Reason = "at maximum level"
		return dec
	}

	level, ok := d.Level(state.CurrentLevel)
	if !ok {
		// Validate runs before evaluation; this only guards misuse.
		dec.Outcome = models.OutcomeNotEligible
		dec.Reason = fmt.Sprintf("level %d out of range", state.CurrentLevel)
		return dec
	}

	elapsed := now.Sub(state.LevelEnteredAt)
	if elapsed <= 0 || elapsed < level.MinDwell() {
		remaining := level.MinDwell() - elapsed
		if remaining < 0 {
			remaining = 0
		}
		dec.Outcome = models.OutcomeNotEligible
		dec.RemainingDwell = remaining
		dec.Blockers = []models.Blocker{{Kind: models.BlockerDwell, RemainingDays: ceilDays(remaining)}}
		if remaining == 0 {
			dec.Reason = "no time spent at current level"
		} else {
			dec.Reason = fmt.Sprintf("dwell not met: %d day(s) remaining", ceilDays(remaining))
		}
		return dec
	}

	for _, m := range level.RequiredMilestones {
		if !snapshot.Holds(m) {
			dec.Blockers = append(dec.Blockers, models.Blocker{Kind: models.BlockerMilestone, Milestone: m})
		}
	}
	if state.AdvancementScore < level.MinScore {
		dec.Blockers = append(dec.Blockers, models.Blocker{
			Kind:           models.BlockerScore,
			ScoreShortfall: level.MinScore - state.AdvancementScore,
		})
	}

	if len(dec.Blockers) > 0 {
		dec.Outcome = models.OutcomeNotEligible
		dec.Reason = fmt.Sprintf("%d requirement(s) unmet", len(dec.Blockers))
		return dec
	}

	dec.Outcome = models.OutcomeEligible
	return dec
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + day - 1) / day)
}
