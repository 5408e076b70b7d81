package httptransport

import (
	"context"
	"time"

	"ascent/internal/access"
	compliance "ascent/internal/compliance/models"
	"ascent/internal/eventlog"
	"ascent/internal/maintenance"
	"ascent/internal/progression/models"
	"ascent/internal/registry"
	"ascent/internal/snapshot"
	"ascent/pkg/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks ascent/internal/transport/http Progression,Gates,Access,Snapshots,Catalog,Maintenance

// Progression is the slice of the progression service the API exposes.
type Progression interface {
	GetState(ctx context.Context, userID domain.UserID, domainID domain.DomainID) (*models.DomainState, error)
	ListStates(ctx context.Context, userID domain.UserID) ([]*models.DomainState, error)
	Evaluate(ctx context.Context, userID domain.UserID, domainID domain.DomainID, snapshot registry.MilestoneSnapshot) (models.Decision, error)
	Advance(ctx context.Context, userID domain.UserID, domainID domain.DomainID, snapshots registry.SnapshotSet) (*models.PassResult, error)
	AdvanceAll(ctx context.Context, userID domain.UserID, snapshots registry.SnapshotSet) (*models.PassResult, error)
	AddScore(ctx context.Context, userID domain.UserID, domainID domain.DomainID, points int64) (*models.DomainState, error)
	CompositeScore(ctx context.Context, userID domain.UserID) (int, error)
	History(ctx context.Context, userID domain.UserID, filter eventlog.Filter) ([]*eventlog.Event, error)
	Suspend(ctx context.Context, userID domain.UserID, target models.Target, cause models.SuspensionCause, reason string, resumeAfter *time.Time) ([]*models.DomainState, error)
	Resume(ctx context.Context, userID domain.UserID, target models.Target) ([]*models.DomainState, error)
	CheckTimedResumptions(ctx context.Context, userID domain.UserID) ([]domain.DomainID, error)
}

// Gates is the compliance gate engine.
type Gates interface {
	EvaluateSignals(ctx context.Context, userID domain.UserID, signals registry.SignalSnapshot) ([]*compliance.Gate, error)
	ListGates(ctx context.Context, userID domain.UserID, includeFulfilled bool) ([]*compliance.Gate, error)
	FulfillByAction(ctx context.Context, userID domain.UserID, action domain.Action) (bool, error)
}

// Access answers combined unlock and gate checks.
type Access interface {
	Check(ctx context.Context, userID domain.UserID, feature domain.Feature) (access.Decision, error)
}

// Snapshots stores the latest inbound snapshots for the maintenance job.
type Snapshots interface {
	PutMilestones(ctx context.Context, userID domain.UserID, set registry.SnapshotSet) error
	PutSignals(ctx context.Context, userID domain.UserID, signals registry.SignalSnapshot) error
	Latest(ctx context.Context, userID domain.UserID) (snapshot.Latest, error)
}

// Catalog validates inbound snapshots before they are stored.
type Catalog interface {
	ValidateSnapshotSet(set registry.SnapshotSet) error
	ValidateSignals(s registry.SignalSnapshot) error
}

// Maintenance triggers an out-of-schedule maintenance pass.
type Maintenance interface {
	RunOnce(ctx context.Context) (maintenance.Report, error)
}
