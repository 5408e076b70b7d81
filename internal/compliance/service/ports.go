package service

import (
	"context"

	"ascent/internal/compliance/models"
	"ascent/internal/eventlog"
	"ascent/internal/registry"
	"ascent/pkg/domain"
)

// GateStore persists gates and rule watermarks. Create and Fulfill report
// store facts through pkg/platform/sentinel errors.
type GateStore interface {
	ListByUser(ctx context.Context, userID domain.UserID, includeFulfilled bool) ([]*models.Gate, error)
	Create(ctx context.Context, gate *models.Gate) error
	Fulfill(ctx context.Context, gate *models.Gate) error
	Watermarks(ctx context.Context, userID domain.UserID) (map[string]*models.Watermark, error)
	SaveWatermark(ctx context.Context, w *models.Watermark) error
	ClearWatermark(ctx context.Context, userID domain.UserID, ruleID string) error
}

// Stores are the stores visible inside a transaction.
type Stores struct {
	Gates  GateStore
	Events eventlog.Store
}

// StoreTx serializes one user's gate set. Gate writes and event appends made
// through the given stores commit together or not at all.
type StoreTx interface {
	RunInTx(ctx context.Context, userID domain.UserID, fn func(ctx context.Context, stores Stores) error) error
}

// Catalog is the registry surface the engine reads.
type Catalog interface {
	Rules() []registry.Rule
	ValidateSignals(s registry.SignalSnapshot) error
	RequireFeature(f domain.Feature) error
	KnownAction(a domain.Action) bool
}

// AccessCache memoizes feature access answers per user.
//
// Get reports the generation it looked up under, hit or miss. Set must store
// nothing unless that generation is still current and no change is held.
// Hold runs before a gate change commits: it retires every cached answer and
// blocks writes. Release runs after the commit and retires answers again.
type AccessCache interface {
	Get(ctx context.Context, userID domain.UserID, feature domain.Feature) (access models.Access, generation int64, found bool, err error)
	Set(ctx context.Context, userID domain.UserID, generation int64, access models.Access) error
	Hold(ctx context.Context, userID domain.UserID) error
	Release(ctx context.Context, userID domain.UserID) error
}
