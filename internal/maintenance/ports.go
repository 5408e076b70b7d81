package maintenance

import (
	"context"
	"time"

	compliance "ascent/internal/compliance/models"
	progression "ascent/internal/progression/models"
	"ascent/internal/registry"
	"ascent/internal/snapshot"
	"ascent/pkg/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks ascent/internal/maintenance Progression,Gates,SnapshotSource

// Progression is the part of the progression service the pass drives.
type Progression interface {
	CheckTimedResumptions(ctx context.Context, userID domain.UserID) ([]domain.DomainID, error)
	AdvanceAll(ctx context.Context, userID domain.UserID, snapshots registry.SnapshotSet) (*progression.PassResult, error)
	ListUsers(ctx context.Context) ([]domain.UserID, error)
	DueResumptionUsers(ctx context.Context, now time.Time) ([]domain.UserID, error)
}

// Gates is the compliance engine entry point the pass drives.
type Gates interface {
	EvaluateSignals(ctx context.Context, userID domain.UserID, signals registry.SignalSnapshot) ([]*compliance.Gate, error)
}

// SnapshotSource supplies the latest reported snapshots.
type SnapshotSource interface {
	Latest(ctx context.Context, userID domain.UserID) (snapshot.Latest, error)
	Users(ctx context.Context) ([]domain.UserID, error)
}
