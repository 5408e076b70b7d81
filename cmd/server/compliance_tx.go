package main

import (
	"context"
	"database/sql"
	"time"

	complianceservice "ascent/internal/compliance/service"
	compliancestore "ascent/internal/compliance/store"
	"ascent/internal/eventlog"
	"ascent/pkg/domain"
	txcontext "ascent/pkg/platform/tx"
)

// compliancePostgresTx serializes a user's gate set with an advisory lock
// taken at the start of the transaction.
type compliancePostgresTx struct {
	db      *sql.DB
	gates   *compliancestore.PostgresStore
	events  *eventlog.PostgresStore
	timeout time.Duration
}

func newCompliancePostgresTx(db *sql.DB, gates *compliancestore.PostgresStore, events *eventlog.PostgresStore, timeout time.Duration) *compliancePostgresTx {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &compliancePostgresTx{db: db, gates: gates, events: events, timeout: timeout}
}

func (t *compliancePostgresTx) RunInTx(ctx context.Context, userID domain.UserID, fn func(ctx context.Context, stores complianceservice.Stores) error) error {
	return txcontext.RunPostgres(ctx, t.db, t.timeout, func(ctx context.Context) error {
		if err := t.gates.LockUser(ctx, userID); err != nil {
			return err
		}
		return fn(ctx, complianceservice.Stores{Gates: t.gates, Events: t.events})
	})
}
