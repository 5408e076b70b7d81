// Package access combines level unlocks and compliance gates into one
// feature access answer.
package access

import (
	"context"
	"fmt"
	"log/slog"

	compliance "ascent/internal/compliance/models"
	"ascent/pkg/domain"
	"ascent/pkg/platform/audit"
)

// Reason classifies an access answer.
type Reason string

const (
	ReasonAllowed Reason = "allowed"
	ReasonLocked  Reason = "level_locked"
	ReasonGated   Reason = "gated"
)

// Requirement is one domain level that unlocks the feature.
type Requirement struct {
	Domain         domain.DomainID `json:"domain"`
	RequiredLevel  int             `json:"required_level"`
	EffectiveLevel int             `json:"effective_level"`
	Suspended      bool            `json:"suspended"`
}

// Decision is the combined answer. A feature unlocked by no level is only
// subject to gates.
type Decision struct {
	Feature      domain.Feature   `json:"feature"`
	Allowed      bool             `json:"allowed"`
	Reason       Reason           `json:"reason"`
	Requirements []Requirement    `json:"requirements,omitempty"`
	Gate         *compliance.Gate `json:"gate,omitempty"`
}

// Service combines progression levels and open gates into one feature
// access answer.
type Service struct {
	catalog     Catalog
	progression ProgressionPort
	gates       GatePort
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(catalog Catalog, progression ProgressionPort, gates GatePort, opts ...Option) (*Service, error) {
	if catalog == nil || progression == nil || gates == nil {
		return nil, fmt.Errorf("catalog, progression and gates are required")
	}
	s := &Service{catalog: catalog, progression: progression, gates: gates}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check allows feature iff every domain level that unlocks it has been reached
// (a suspended domain counts as level 0) and no open gate blocks it.
func (s *Service) Check(ctx context.Context, userID domain.UserID, feature domain.Feature) (Decision, error) {
	if err := s.catalog.RequireFeature(feature); err != nil {
		return Decision{}, err
	}
	dec := Decision{Feature: feature}

	unlocked := true
	for _, d := range s.catalog.Domains() {
		required := d.UnlockLevel(feature)
		if required < 0 {
			continue
		}
		st, err := s.progression.GetState(ctx, userID, d.ID)
		if err != nil {
			return Decision{}, err
		}
		req := Requirement{
			Domain:         d.ID,
			RequiredLevel:  required,
			EffectiveLevel: st.EffectiveLevel(),
			Suspended:      st.Suspended,
		}
		dec.Requirements = append(dec.Requirements, req)
		unlocked = unlocked && req.EffectiveLevel >= req.RequiredLevel
	}

	gate, err := s.gates.CheckFeatureAccess(ctx, userID, feature)
	if err != nil {
		return Decision{}, err
	}

	switch {
	case !unlocked:
		dec.Reason = ReasonLocked
	case !gate.Allowed:
		dec.Reason = ReasonGated
		dec.Gate = gate.Gate
	default:
		dec.Allowed = true
		dec.Reason = ReasonAllowed
	}
	if !dec.Allowed {
		audit.Log(ctx, s.logger, audit.EventFeatureDenied,
			"user_id", userID,
			"feature", feature,
			"reason", dec.Reason,
		)
	}
	return dec, nil
}
