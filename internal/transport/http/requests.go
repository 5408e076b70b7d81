package httptransport

import (
	"strings"
	"time"

	"ascent/internal/progression/models"
	"ascent/internal/registry"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
)

// maxReasonLength bounds free-text suspension reasons.
const maxReasonLength = 500

// EvaluateRequest is the body of POST /users/{userID}/states/{domain}/evaluate.
type EvaluateRequest struct {
	Snapshot registry.MilestoneSnapshot `json:"snapshot"`
}

func (r *EvaluateRequest) Validate() error {
	if r.Snapshot.Facts == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "snapshot.facts is required")
	}
	return nil
}

// AdvanceRequest is the body of the advance endpoints. Snapshots is keyed by
// domain and may carry entries for cascade targets.
type AdvanceRequest struct {
	Snapshots registry.SnapshotSet `json:"snapshots"`
}

func (r *AdvanceRequest) Validate() error {
	if r.Snapshots == nil {
		r.Snapshots = registry.SnapshotSet{}
	}
	return nil
}

// ScoreRequest is the body of POST /users/{userID}/states/{domain}/score.
type ScoreRequest struct {
	Points int64 `json:"points"`
}

func (r *ScoreRequest) Validate() error {
	if r.Points < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "points must be non-negative")
	}
	return nil
}

// TargetRequest names the domains a suspend or resume applies to. All wins
// over Domains.
type TargetRequest struct {
	All     bool     `json:"all"`
	Domains []string `json:"domains"`

	target models.Target
}

func (r *TargetRequest) parseTarget() error {
	if r.All {
		r.target = models.AllDomains()
		return nil
	}
	if len(r.Domains) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "domains or all is required")
	}
	ids := make([]domain.DomainID, 0, len(r.Domains))
	for _, raw := range r.Domains {
		id, err := domain.ParseDomainID(raw)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	r.target = models.Domains(ids...)
	return nil
}

// Target returns the parsed target.
func (r *TargetRequest) Target() models.Target {
	return r.target
}

// SuspendRequest is the body of POST /users/{userID}/suspend.
type SuspendRequest struct {
	TargetRequest
	Cause       string     `json:"cause"`
	Reason      string     `json:"reason"`
	ResumeAfter *time.Time `json:"resume_after,omitempty"`

	cause models.SuspensionCause
}

func (r *SuspendRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is too long")
	}
	cause, err := models.ParseSuspensionCause(strings.TrimSpace(r.Cause))
	if err != nil {
		return err
	}
	r.cause = cause
	return r.parseTarget()
}

// ParsedCause returns the validated cause.
func (r *SuspendRequest) ParsedCause() models.SuspensionCause {
	return r.cause
}

// ResumeRequest is the body of POST /users/{userID}/resume.
type ResumeRequest struct {
	TargetRequest
}

func (r *ResumeRequest) Validate() error {
	return r.parseTarget()
}

// MilestonesRequest is the body of PUT /users/{userID}/snapshots/milestones.
type MilestonesRequest struct {
	Snapshots registry.SnapshotSet `json:"snapshots"`
}

func (r *MilestonesRequest) Validate() error {
	if len(r.Snapshots) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "snapshots is required")
	}
	return nil
}

// SignalsRequest is the body of the signal endpoints.
type SignalsRequest struct {
	Signals registry.SignalSnapshot `json:"signals"`
}

func (r *SignalsRequest) Validate() error {
	if r.Signals.Counters == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "signals.counters is required")
	}
	return nil
}

// ActionRequest is the body of POST /users/{userID}/actions.
type ActionRequest struct {
	Action string `json:"action"`

	action domain.Action
}

func (r *ActionRequest) Validate() error {
	a, err := domain.ParseAction(r.Action)
	if err != nil {
		return err
	}
	r.action = a
	return nil
}

// ParsedAction returns the validated action.
func (r *ActionRequest) ParsedAction() domain.Action {
	return r.action
}
