package models

import (
	"time"

	"ascent/pkg/domain"
)

// Outcome is the result class of one evaluation.
type Outcome string

const (
	OutcomeEligible    Outcome = "eligible"
	OutcomeNotEligible Outcome = "not_eligible"
	OutcomeAtMaximum   Outcome = "at_maximum"
)

// BlockerKind classifies why a domain cannot advance yet.
type BlockerKind string

const (
	BlockerSuspended BlockerKind = "suspended"
	BlockerDwell     BlockerKind = "dwell"
	BlockerMilestone BlockerKind = "milestone"
	BlockerScore     BlockerKind = "score"
)

// Blocker is one unmet requirement.
type Blocker struct {
	Kind BlockerKind `json:"kind"`
	// Milestone is set for milestone blockers.
	Milestone string `json:"milestone,omitempty"`
	// RemainingDays is set for dwell blockers, rounded up.
	RemainingDays int `json:"remaining_days,omitempty"`
	// ScoreShortfall is set for score blockers.
	ScoreShortfall int64 `json:"score_shortfall,omitempty"`
}

// Decision is the pure output of the evaluator for one (state, snapshot) pair.
type Decision struct {
	Domain         domain.DomainID `json:"domain"`
	FromLevel      int             `json:"from_level"`
	Outcome        Outcome         `json:"outcome"`
	Reason         string          `json:"reason,omitempty"`
	Blockers       []Blocker       `json:"blockers,omitempty"`
	RemainingDwell time.Duration   `json:"remaining_dwell,omitempty"`
}

// Eligible reports whether the caller may promote.
func (d Decision) Eligible() bool {
	return d.Outcome == OutcomeEligible
}

// UnmetMilestones lists milestone blockers in order.
func (d Decision) UnmetMilestones() []string {
	var out []string
	for _, b := range d.Blockers {
		if b.Kind == BlockerMilestone {
			out = append(out, b.Milestone)
		}
	}
	return out
}

// Promotion records one committed level change within a pass.
type Promotion struct {
	Domain    domain.DomainID `json:"domain"`
	FromLevel int             `json:"from_level"`
	ToLevel   int             `json:"to_level"`
	Cascade   bool            `json:"cascade"`
	At        time.Time       `json:"at"`
}

// PassResult summarizes an advancement pass for one user.
type PassResult struct {
	UserID     domain.UserID                    `json:"user_id"`
	Decisions  map[domain.DomainID]Decision     `json:"decisions"`
	Promotions []Promotion                      `json:"promotions"`
	States     map[domain.DomainID]*DomainState `json:"states"`
}

// Promoted reports whether any level changed during the pass.
func (r *PassResult) Promoted() bool {
	return len(r.Promotions) > 0
}
