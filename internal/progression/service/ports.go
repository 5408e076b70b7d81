package service

import (
	"context"
	"time"

	"ascent/internal/eventlog"
	"ascent/internal/progression/models"
	"ascent/internal/registry"
	"ascent/pkg/domain"
)

// StateStore persists DomainStates. Save applies an optimistic version check
// and returns sentinel.ErrConflict on a stale write.
type StateStore interface {
	Get(ctx context.Context, userID domain.UserID, domainID domain.DomainID) (*models.DomainState, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]*models.DomainState, error)
	Save(ctx context.Context, state *models.DomainState) error
	ListDueResumptions(ctx context.Context, now time.Time) ([]domain.UserID, error)
	ListUsers(ctx context.Context) ([]domain.UserID, error)
}

// EventStore is the append-only event log.
type EventStore interface {
	Append(ctx context.Context, event *eventlog.Event) (domain.EventID, error)
	ListByUser(ctx context.Context, userID domain.UserID, filter eventlog.Filter) ([]*eventlog.Event, error)
}

// Stores are the stores visible inside a transaction.
type Stores struct {
	States StateStore
	Events EventStore
}

// StoreTx runs fn as one atomic, per-user serialized unit. State writes and
// event appends made through the given stores commit together or not at all.
type StoreTx interface {
	RunInTx(ctx context.Context, userID domain.UserID, fn func(ctx context.Context, stores Stores) error) error
}

// Catalog is the registry surface the service reads.
type Catalog interface {
	Domain(id domain.DomainID) (*registry.Domain, error)
	Domains() []*registry.Domain
	DomainIDs() []domain.DomainID
	ValidateMilestones(id domain.DomainID, s registry.MilestoneSnapshot) error
	ValidateSnapshotSet(set registry.SnapshotSet) error
}
