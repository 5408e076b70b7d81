package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ascent/internal/platform/postgres"
)

// PostgresSource claims rows with FOR UPDATE SKIP LOCKED, so several relay
// instances can share one outbox without publishing an entry twice.
type PostgresSource struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db, now: time.Now}
}

func (s *PostgresSource) Claim(ctx context.Context, limit int, fn func(ctx context.Context, entries []Entry) error) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox claim: %w", postgres.Classify(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return 0, fmt.Errorf("select outbox: %w", postgres.Classify(err))
	}
	var (
		entries []Entry
		ids     []string
	)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan outbox: %w", err)
		}
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("iterate outbox: %w", postgres.Classify(err))
	}
	_ = rows.Close()
	if len(entries) == 0 {
		return 0, nil
	}

	if err := fn(ctx, entries); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE outbox SET processed_at = $1 WHERE id = ANY($2::uuid[])`,
		s.now(), pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("mark outbox processed: %w", postgres.Classify(err))
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox claim: %w", postgres.Classify(err))
	}
	return len(entries), nil
}
