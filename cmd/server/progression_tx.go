package main

import (
	"context"
	"database/sql"
	"time"

	"ascent/internal/eventlog"
	progressionservice "ascent/internal/progression/service"
	progressionstore "ascent/internal/progression/store"
	"ascent/pkg/domain"
	txcontext "ascent/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// progressionPostgresTx runs a progression commit in one database
// transaction. The stores pick the transaction up from ctx.
type progressionPostgresTx struct {
	db      *sql.DB
	states  *progressionstore.PostgresStore
	events  *eventlog.PostgresStore
	timeout time.Duration
}

func newProgressionPostgresTx(db *sql.DB, states *progressionstore.PostgresStore, events *eventlog.PostgresStore, timeout time.Duration) *progressionPostgresTx {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &progressionPostgresTx{db: db, states: states, events: events, timeout: timeout}
}

func (t *progressionPostgresTx) RunInTx(ctx context.Context, _ domain.UserID, fn func(ctx context.Context, stores progressionservice.Stores) error) error {
	return txcontext.RunPostgres(ctx, t.db, t.timeout, func(ctx context.Context) error {
		return fn(ctx, progressionservice.Stores{States: t.states, Events: t.events})
	})
}
