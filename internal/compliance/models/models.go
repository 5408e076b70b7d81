// Package models holds the compliance gate records.
package models

import (
	"maps"
	"time"

	"ascent/pkg/domain"
)

// Gate blocks one feature for one user until FulfillingAction is performed.
// Gates are never deleted; fulfilling one sets FulfilledAt.
type Gate struct {
	ID               domain.GateID  `json:"id"`
	UserID           domain.UserID  `json:"user_id"`
	RuleID           string         `json:"rule_id"`
	Feature          domain.Feature `json:"feature"`
	Condition        string         `json:"condition"`
	CreatedAt        time.Time      `json:"created_at"`
	FulfillingAction domain.Action  `json:"fulfilling_action"`
	FulfilledAt      *time.Time     `json:"fulfilled_at,omitempty"`
	FulfilledBy      domain.Action  `json:"fulfilled_by,omitempty"`
}

// Open reports whether the gate still blocks its feature.
func (g *Gate) Open() bool {
	return g.FulfilledAt == nil
}

// Fulfill closes the gate. It reports false if the gate was already closed.
func (g *Gate) Fulfill(action domain.Action, at time.Time) bool {
	if !g.Open() {
		return false
	}
	t := at
	g.FulfilledAt = &t
	g.FulfilledBy = action
	return true
}

func (g *Gate) Clone() *Gate {
	out := *g
	if g.FulfilledAt != nil {
		t := *g.FulfilledAt
		out.FulfilledAt = &t
	}
	return &out
}

// Access is the answer to a feature access check. Gate is the oldest open
// gate on the feature when access is denied.
type Access struct {
	Feature domain.Feature `json:"feature"`
	Allowed bool           `json:"allowed"`
	Gate    *Gate          `json:"gate,omitempty"`
}

// Blocking returns the oldest open gate on feature, or nil. gates must be
// ordered oldest first.
func Blocking(gates []*Gate, feature domain.Feature) *Gate {
	for _, g := range gates {
		if g.Open() && g.Feature == feature {
			return g
		}
	}
	return nil
}

// Watermark records, per user and rule, the furthest signal values seen while
// the rule has matched without a break. A rule whose gate was fulfilled opens
// again only once a snapshot goes past the watermark or the rule stops
// matching and crosses afresh.
type Watermark struct {
	UserID    domain.UserID  `json:"user_id"`
	RuleID    string         `json:"rule_id"`
	Peak      map[string]int `json:"peak"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (w *Watermark) Clone() *Watermark {
	out := *w
	out.Peak = maps.Clone(w.Peak)
	return &out
}
