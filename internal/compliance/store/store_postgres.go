package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"ascent/internal/compliance/models"
	"ascent/internal/platform/postgres"
	"ascent/pkg/domain"
	"ascent/pkg/platform/sentinel"
	txcontext "ascent/pkg/platform/tx"
)

// PostgresStore persists gates in compliance_gates. Callers serialize a
// user's gate set with LockUser inside their transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const gateColumns = `id, user_id, rule_id, feature, condition, fulfilling_action,
	created_at, fulfilled_at, fulfilled_by`

// LockUser takes a transaction-scoped advisory lock on the user's gate set.
// It must run inside a transaction.
func (s *PostgresStore) LockUser(ctx context.Context, userID domain.UserID) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return fmt.Errorf("lock gate set: %w", sentinel.ErrInvalidState)
	}
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "gates:"+userID.String())
	if err != nil {
		return fmt.Errorf("lock gate set: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID, includeFulfilled bool) ([]*models.Gate, error) {
	query := `SELECT ` + gateColumns + ` FROM compliance_gates WHERE user_id = $1`
	if !includeFulfilled {
		query += ` AND fulfilled_at IS NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list gates: %w", postgres.Classify(err))
	}
	defer rows.Close()

	var out []*models.Gate
	for rows.Next() {
		g, err := scanGate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gate: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list gates: %w", postgres.Classify(err))
	}
	return out, nil
}

func (s *PostgresStore) Create(ctx context.Context, g *models.Gate) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO compliance_gates (`+gateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, '')`,
		uuid.UUID(g.ID), uuid.UUID(g.UserID), g.RuleID, string(g.Feature), g.Condition,
		string(g.FulfillingAction), g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert gate: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) Fulfill(ctx context.Context, g *models.Gate) error {
	if g.FulfilledAt == nil {
		return sentinel.ErrInvalidState
	}
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE compliance_gates SET fulfilled_at = $3, fulfilled_by = $4
		WHERE id = $1 AND user_id = $2 AND fulfilled_at IS NULL`,
		uuid.UUID(g.ID), uuid.UUID(g.UserID), *g.FulfilledAt, string(g.FulfilledBy),
	)
	if err != nil {
		return fmt.Errorf("fulfill gate: %w", postgres.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fulfill gate: %w", postgres.Classify(err))
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) Watermarks(ctx context.Context, userID domain.UserID) (map[string]*models.Watermark, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT rule_id, peak, updated_at FROM compliance_watermarks WHERE user_id = $1`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list watermarks: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := make(map[string]*models.Watermark)
	for rows.Next() {
		var (
			w    = models.Watermark{UserID: userID}
			peak []byte
		)
		if err := rows.Scan(&w.RuleID, &peak, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan watermark: %w", err)
		}
		if err := json.Unmarshal(peak, &w.Peak); err != nil {
			return nil, fmt.Errorf("decode watermark %s: %w", w.RuleID, err)
		}
		out[w.RuleID] = &w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list watermarks: %w", postgres.Classify(err))
	}
	return out, nil
}

func (s *PostgresStore) SaveWatermark(ctx context.Context, w *models.Watermark) error {
	peak, err := json.Marshal(w.Peak)
	if err != nil {
		return fmt.Errorf("encode watermark: %w", err)
	}
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO compliance_watermarks (user_id, rule_id, peak, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, rule_id) DO UPDATE SET peak = EXCLUDED.peak, updated_at = EXCLUDED.updated_at`,
		uuid.UUID(w.UserID), w.RuleID, peak, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save watermark: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) ClearWatermark(ctx context.Context, userID domain.UserID, ruleID string) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		DELETE FROM compliance_watermarks WHERE user_id = $1 AND rule_id = $2`,
		uuid.UUID(userID), ruleID,
	)
	if err != nil {
		return fmt.Errorf("clear watermark: %w", postgres.Classify(err))
	}
	return nil
}

func scanGate(rows *sql.Rows) (*models.Gate, error) {
	var (
		g                      models.Gate
		id, userID             uuid.UUID
		feature, action, fulBy string
		fulfilledAt            sql.NullTime
	)
	if err := rows.Scan(&id, &userID, &g.RuleID, &feature, &g.Condition, &action,
		&g.CreatedAt, &fulfilledAt, &fulBy); err != nil {
		return nil, err
	}
	g.ID = domain.GateID(id)
	g.UserID = domain.UserID(userID)
	g.Feature = domain.Feature(feature)
	g.FulfillingAction = domain.Action(action)
	g.FulfilledBy = domain.Action(fulBy)
	if fulfilledAt.Valid {
		t := fulfilledAt.Time
		g.FulfilledAt = &t
	}
	return &g, nil
}
