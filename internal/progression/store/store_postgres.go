package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ascent/internal/platform/postgres"
	"ascent/internal/progression/models"
	"ascent/pkg/domain"
	"ascent/pkg/platform/sentinel"
	txcontext "ascent/pkg/platform/tx"
)

// PostgresStore persists states in domain_states. Inside a transaction Get
// takes a row lock so the commit path serializes per (user, domain).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const stateColumns = `user_id, domain, current_level, level_entered_at, advancement_score,
	suspended, suspension_cause, suspension_reason, resume_after, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*models.DomainState, error) {
	var (
		st          models.DomainState
		userID      uuid.UUID
		domainID    string
		cause       string
		resumeAfter sql.NullTime
	)
	if err := row.Scan(&userID, &domainID, &st.CurrentLevel, &st.LevelEnteredAt, &st.AdvancementScore,
		&st.Suspended, &cause, &st.SuspensionReason, &resumeAfter, &st.Version, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.UserID = domain.UserID(userID)
	st.Domain = domain.DomainID(domainID)
	st.SuspensionCause = models.SuspensionCause(cause)
	if resumeAfter.Valid {
		t := resumeAfter.Time
		st.ResumeAfter = &t
	}
	return &st, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID domain.UserID, domainID domain.DomainID) (*models.DomainState, error) {
	query := `SELECT ` + stateColumns + ` FROM domain_states WHERE user_id = $1 AND domain = $2`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	st, err := scanState(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID), string(domainID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get domain state: %w", postgres.Classify(err))
	}
	return st, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*models.DomainState, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+stateColumns+` FROM domain_states WHERE user_id = $1 ORDER BY domain`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list domain states: %w", postgres.Classify(err))
	}
	defer rows.Close()

	var out []*models.DomainState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain state: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domain states: %w", postgres.Classify(err))
	}
	return out, nil
}

// Save inserts when st.Version is 0 and otherwise updates guarded by the
// version column. Zero affected rows means another writer got there first.
func (s *PostgresStore) Save(ctx context.Context, st *models.DomainState) error {
	exec := txcontext.Executor(ctx, s.db)
	var resumeAfter sql.NullTime
	if st.ResumeAfter != nil {
		resumeAfter = sql.NullTime{Time: *st.ResumeAfter, Valid: true}
	}

	var (
		res sql.Result
		err error
	)
	if st.Version == 0 {
		res, err = exec.ExecContext(ctx, `
			INSERT INTO domain_states (`+stateColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)
			ON CONFLICT (user_id, domain) DO NOTHING`,
			uuid.UUID(st.UserID), string(st.Domain), st.CurrentLevel, st.LevelEnteredAt, st.AdvancementScore,
			st.Suspended, string(st.SuspensionCause), st.SuspensionReason, resumeAfter, st.CreatedAt, st.UpdatedAt,
		)
	} else {
		res, err = exec.ExecContext(ctx, `
			UPDATE domain_states SET
				current_level = $3, level_entered_at = $4, advancement_score = $5,
				suspended = $6, suspension_cause = $7, suspension_reason = $8, resume_after = $9,
				updated_at = $10, version = version + 1
			WHERE user_id = $1 AND domain = $2 AND version = $11`,
			uuid.UUID(st.UserID), string(st.Domain), st.CurrentLevel, st.LevelEnteredAt, st.AdvancementScore,
			st.Suspended, string(st.SuspensionCause), st.SuspensionReason, resumeAfter, st.UpdatedAt, st.Version,
		)
	}
	if err != nil {
		return fmt.Errorf("save domain state: %w", postgres.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save domain state: %w", postgres.Classify(err))
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	st.Version++
	return nil
}

func (s *PostgresStore) ListDueResumptions(ctx context.Context, now time.Time) ([]domain.UserID, error) {
	return s.listUsers(ctx, `
		SELECT DISTINCT user_id FROM domain_states
		WHERE suspended AND resume_after IS NOT NULL AND resume_after <= $1`, now)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]domain.UserID, error) {
	return s.listUsers(ctx, `SELECT DISTINCT user_id FROM domain_states`)
}

func (s *PostgresStore) listUsers(ctx context.Context, query string, args ...any) ([]domain.UserID, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", postgres.Classify(err))
	}
	defer rows.Close()
	var out []domain.UserID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, domain.UserID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", postgres.Classify(err))
	}
	return out, nil
}
