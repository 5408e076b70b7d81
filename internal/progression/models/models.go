package models

import (
	"fmt"
	"time"

	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
)

// SuspensionCause records why a domain was frozen.
type SuspensionCause string

const (
	CauseNone     SuspensionCause = "none"
	CauseManual   SuspensionCause = "manual"
	CauseExternal SuspensionCause = "external"
	CauseCrisis   SuspensionCause = "crisis"
)

// IsValid reports whether the cause is one of the known values.
func (c SuspensionCause) IsValid() bool {
	switch c {
	case CauseNone, CauseManual, CauseExternal, CauseCrisis:
		return true
	}
	return false
}

// ParseSuspensionCause validates a cause supplied by a caller. CauseNone is
// not a valid reason to suspend.
func ParseSuspensionCause(s string) (SuspensionCause, error) {
	c := SuspensionCause(s)
	if !c.IsValid() || c == CauseNone {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid suspension cause: "+s)
	}
	return c, nil
}

// DomainState is one user's progress within one domain. There is exactly one
// per (UserID, Domain); it is created at level 0 on first evaluation and never
// deleted.
type DomainState struct {
	UserID           domain.UserID   `json:"user_id"`
	Domain           domain.DomainID `json:"domain"`
	CurrentLevel     int             `json:"current_level"`
	LevelEnteredAt   time.Time       `json:"level_entered_at"`
	AdvancementScore int64           `json:"advancement_score"`
	Suspended        bool            `json:"suspended"`
	SuspensionCause  SuspensionCause `json:"suspension_cause"`
	SuspensionReason string          `json:"suspension_reason,omitempty"`
	ResumeAfter      *time.Time      `json:"resume_after,omitempty"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewDomainState returns the initial level-0 state entered at now.
func NewDomainState(userID domain.UserID, domainID domain.DomainID, now time.Time) *DomainState {
	return &DomainState{
		UserID:          userID,
		Domain:          domainID,
		LevelEnteredAt:  now,
		SuspensionCause: CauseNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsNew reports whether the state has never been persisted.
func (s *DomainState) IsNew() bool {
	return s.Version == 0
}

// Clone returns a copy that shares no pointers with s.
func (s *DomainState) Clone() *DomainState {
	out := *s
	if s.ResumeAfter != nil {
		t := *s.ResumeAfter
		out.ResumeAfter = &t
	}
	return &out
}

// EffectiveLevel is the level used for feature unlocks. A suspended domain
// falls back to level 0.
func (s *DomainState) EffectiveLevel() int {
	if s.Suspended {
		return 0
	}
	return s.CurrentLevel
}

// Validate checks the record invariants against the domain's max level.
// A failure means stored data is inconsistent and is never coerced.
func (s *DomainState) Validate(maxLevel int) error {
	switch {
	case s.CurrentLevel < 0 || s.CurrentLevel > maxLevel:
		return invariant(s, fmt.Sprintf("level %d outside [0, %d]", s.CurrentLevel, maxLevel))
	case s.AdvancementScore < 0:
		return invariant(s, "negative advancement score")
	case !s.Suspended && (s.SuspensionCause != CauseNone || s.ResumeAfter != nil):
		return invariant(s, "active domain carries suspension fields")
	case s.Suspended && (s.SuspensionCause == CauseNone || !s.SuspensionCause.IsValid()):
		return invariant(s, "suspended domain without a cause")
	}
	return nil
}

func invariant(s *DomainState, msg string) error {
	return dErrors.New(dErrors.CodeInvariantViolation,
		fmt.Sprintf("state %s/%s: %s", s.UserID, s.Domain, msg))
}

// Promote moves the state up one level. Callers must have an eligible decision.
func (s *DomainState) Promote(now time.Time) {
	s.CurrentLevel++
	s.LevelEnteredAt = now
	s.AdvancementScore = 0
	s.UpdatedAt = now
}

// Rollback moves the state down one level, never below 0. It reports whether
// the level changed.
func (s *DomainState) Rollback(now time.Time) bool {
	if s.CurrentLevel == 0 {
		return false
	}
	s.CurrentLevel--
	s.LevelEnteredAt = now
	s.AdvancementScore = 0
	s.UpdatedAt = now
	return true
}

// Suspend freezes the domain. Re-suspending overwrites the previous fields.
func (s *DomainState) Suspend(cause SuspensionCause, reason string, resumeAfter *time.Time, now time.Time) {
	s.Suspended = true
	s.SuspensionCause = cause
	s.SuspensionReason = reason
	s.ResumeAfter = nil
	if resumeAfter != nil {
		t := *resumeAfter
		s.ResumeAfter = &t
	}
	s.UpdatedAt = now
}

// Resume clears every suspension field. The level is left as it is.
func (s *DomainState) Resume(now time.Time) {
	s.Suspended = false
	s.SuspensionCause = CauseNone
	s.SuspensionReason = ""
	s.ResumeAfter = nil
	s.UpdatedAt = now
}

// ResumeDue reports whether a timed suspension has elapsed.
func (s *DomainState) ResumeDue(now time.Time) bool {
	return s.Suspended && s.ResumeAfter != nil && !s.ResumeAfter.After(now)
}

// Target selects the domains a suspension or resumption applies to.
type Target struct {
	All     bool
	Domains []domain.DomainID
}

// AllDomains targets every registered domain.
func AllDomains() Target { return Target{All: true} }

// Domains targets an explicit set.
func Domains(ids ...domain.DomainID) Target { return Target{Domains: ids} }
