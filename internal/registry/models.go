package registry

import (
	"slices"
	"time"

	"ascent/pkg/domain"
)

// Level is the typed descriptor for one rung of a domain. Requirements on a
// level are the conditions for leaving it; the top level has none.
type Level struct {
	Index              int              `yaml:"-" json:"index"`
	Name               string           `yaml:"name" json:"name"`
	MinDwellDays       int              `yaml:"min_dwell_days" json:"min_dwell_days"`
	RequiredMilestones []string         `yaml:"required_milestones" json:"required_milestones,omitempty"`
	MinScore           int64            `yaml:"min_score" json:"min_score,omitempty"`
	Unlocks            []domain.Feature `yaml:"unlocks" json:"unlocks,omitempty"`
}

// MinDwell converts the configured day count to a duration.
func (l Level) MinDwell() time.Duration {
	return time.Duration(l.MinDwellDays) * 24 * time.Hour
}

// Domain is the static definition of one progression axis.
//
// Invariants (checked at load):
//   - at least two levels, so MaxLevel >= 1
//   - every required milestone is declared in Milestones
//   - CascadeEligible implies a non-empty CascadesTo, none pointing at itself
type Domain struct {
	ID              domain.DomainID   `yaml:"id" json:"id"`
	Name            string            `yaml:"name" json:"name"`
	SchemaVersion   int               `yaml:"milestone_schema_version" json:"milestone_schema_version"`
	Milestones      []string          `yaml:"milestones" json:"milestones"`
	CascadeEligible bool              `yaml:"cascade_eligible" json:"cascade_eligible"`
	CascadesTo      []domain.DomainID `yaml:"cascades_to" json:"cascades_to,omitempty"`
	Levels          []Level           `yaml:"levels" json:"levels"`
}

// MaxLevel is the index of the top level.
func (d *Domain) MaxLevel() int {
	return len(d.Levels) - 1
}

// Level returns the descriptor at index, if in range.
func (d *Domain) Level(index int) (Level, bool) {
	if index < 0 || index >= len(d.Levels) {
		return Level{}, false
	}
	return d.Levels[index], true
}

// InRange reports whether level is a valid index for this domain.
func (d *Domain) InRange(level int) bool {
	return level >= 0 && level <= d.MaxLevel()
}

// Declares reports whether the milestone name is part of the domain schema.
func (d *Domain) Declares(milestone string) bool {
	return slices.Contains(d.Milestones, milestone)
}

// UnlockLevel returns the lowest level index that unlocks feature, or -1.
func (d *Domain) UnlockLevel(feature domain.Feature) int {
	for _, lvl := range d.Levels {
		if slices.Contains(lvl.Unlocks, feature) {
			return lvl.Index
		}
	}
	return -1
}

// Op compares a signal counter against a threshold.
type Op string

const (
	OpGTE Op = "gte"
	OpGT  Op = "gt"
	OpLTE Op = "lte"
	OpLT  Op = "lt"
	OpEQ  Op = "eq"
)

// IsValid reports whether the operator is supported.
func (o Op) IsValid() bool {
	switch o {
	case OpGTE, OpGT, OpLTE, OpLT, OpEQ:
		return true
	}
	return false
}

// Compare applies the operator as value <op> threshold.
func (o Op) Compare(value, threshold int) bool {
	switch o {
	case OpGTE:
		return value >= threshold
	case OpGT:
		return value > threshold
	case OpLTE:
		return value <= threshold
	case OpLT:
		return value < threshold
	case OpEQ:
		return value == threshold
	}
	return false
}

// Condition is one signal-threshold comparison within a rule.
type Condition struct {
	Signal    string `yaml:"signal" json:"signal"`
	Op        Op     `yaml:"op" json:"op"`
	Threshold int    `yaml:"threshold" json:"threshold"`
}

// Rule maps a combination of signal thresholds to a feature block.
// All conditions must hold for the rule to fire.
type Rule struct {
	ID               string         `yaml:"id" json:"id"`
	Description      string         `yaml:"description" json:"description"`
	When             []Condition    `yaml:"when" json:"when"`
	Blocks           domain.Feature `yaml:"blocks" json:"blocks"`
	FulfillingAction domain.Action  `yaml:"fulfilled_by" json:"fulfilled_by"`
}

// Matches evaluates every condition against the snapshot. A signal absent from
// the snapshot reads as zero.
func (r Rule) Matches(s SignalSnapshot) bool {
	for _, c := range r.When {
		if !c.Op.Compare(s.Counters[c.Signal], c.Threshold) {
			return false
		}
	}
	return len(r.When) > 0
}

// worse reports whether value lies further past the threshold than ref in the
// operator's direction. Equality has no direction.
func (o Op) worse(value, ref int) bool {
	switch o {
	case OpGTE, OpGT:
		return value > ref
	case OpLTE, OpLT:
		return value < ref
	}
	return false
}

// Peak returns, for each signal the rule reads, the further of ref and the
// snapshot's value in the condition's direction. A nil ref yields the
// snapshot's values.
func (r Rule) Peak(ref map[string]int, s SignalSnapshot) map[string]int {
	out := make(map[string]int, len(r.When))
	for _, c := range r.When {
		v := s.Counters[c.Signal]
		if prev, ok := ref[c.Signal]; ok && !c.Op.worse(v, prev) {
			v = prev
		}
		out[c.Signal] = v
	}
	return out
}

// Exceeds reports whether the snapshot pushes any of the rule's signals past
// peak.
func (r Rule) Exceeds(peak map[string]int, s SignalSnapshot) bool {
	for _, c := range r.When {
		prev, ok := peak[c.Signal]
		if !ok || c.Op.worse(s.Counters[c.Signal], prev) {
			return true
		}
	}
	return false
}
