package access

import (
	"context"

	compliance "ascent/internal/compliance/models"
	progression "ascent/internal/progression/models"
	"ascent/internal/registry"
	"ascent/pkg/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks ascent/internal/access ProgressionPort,GatePort

// ProgressionPort reads a user's level in one domain. Each module gets its
// own port so access does not depend on the service packages.
type ProgressionPort interface {
	GetState(ctx context.Context, userID domain.UserID, domainID domain.DomainID) (*progression.DomainState, error)
}

// GatePort answers whether a compliance gate blocks a feature.
type GatePort interface {
	CheckFeatureAccess(ctx context.Context, userID domain.UserID, feature domain.Feature) (compliance.Access, error)
}

// Catalog locates the levels that unlock a feature.
type Catalog interface {
	RequireFeature(f domain.Feature) error
	Domains() []*registry.Domain
}
