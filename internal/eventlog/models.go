// Package eventlog is the append-only history of everything the engine did
// to a user's progression: level changes, suspensions, resumptions and gate
// activity. Entries are never updated or deleted.
package eventlog

import (
	"maps"
	"slices"
	"time"

	"ascent/pkg/domain"
)

// Kind classifies an event log entry.
type Kind string

const (
	KindPromotion      Kind = "promotion"
	KindRollback       Kind = "rollback"
	KindSuspension     Kind = "suspension"
	KindResumption     Kind = "resumption"
	KindGateOpened     Kind = "gate_opened"
	KindGateFulfilled  Kind = "gate_fulfilled"
	KindGatesEvaluated Kind = "gates_evaluated"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindPromotion, KindRollback, KindSuspension, KindResumption,
		KindGateOpened, KindGateFulfilled, KindGatesEvaluated:
		return true
	}
	return false
}

// ChangesLevel reports whether events of this kind move CurrentLevel.
func (k Kind) ChangesLevel() bool {
	return k == KindPromotion || k == KindRollback
}

// Event is one immutable log entry. Fields that do not apply to a kind are
// left at their zero value.
type Event struct {
	ID         domain.EventID  `json:"id"`
	UserID     domain.UserID   `json:"user_id"`
	Kind       Kind            `json:"kind"`
	Domain     domain.DomainID `json:"domain,omitempty"`
	FromLevel  int             `json:"from_level"`
	ToLevel    int             `json:"to_level"`
	At         time.Time       `json:"at"`
	Milestones map[string]bool `json:"milestones,omitempty"`
	Cascade    bool            `json:"cascade,omitempty"`
	Cause      string          `json:"cause,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Feature    domain.Feature  `json:"feature,omitempty"`
	Action     domain.Action   `json:"action,omitempty"`
	GateID     domain.GateID   `json:"gate_id,omitzero"`
	// Count is the number of gates opened, for gates_evaluated entries.
	Count int `json:"count,omitempty"`
}

// Clone returns a copy that does not share the milestone map.
func (e Event) Clone() Event {
	e.Milestones = maps.Clone(e.Milestones)
	return e
}

// Filter narrows ListByUser. Zero values mean "no restriction".
type Filter struct {
	Domain domain.DomainID
	Kinds  []Kind
	Since  time.Time
	Limit  int
}

// Match reports whether e passes the filter, ignoring Limit.
func (f Filter) Match(e *Event) bool {
	if f.Domain != "" && e.Domain != f.Domain {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, e.Kind) {
		return false
	}
	if !f.Since.IsZero() && e.At.Before(f.Since) {
		return false
	}
	return true
}
