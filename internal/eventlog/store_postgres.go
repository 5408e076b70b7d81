package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ascent/internal/platform/postgres"
	"ascent/pkg/domain"
	txcontext "ascent/pkg/platform/tx"
)

// PostgresStore appends events to progression_events and, in the same
// statement batch, to the outbox the relay publishes from. Run it inside a
// transaction (see pkg/platform/tx) so both rows commit with the state change.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const outboxAggregate = "user"

// Append writes the event row and its outbox copy.
func (s *PostgresStore) Append(ctx context.Context, e *Event) (domain.EventID, error) {
	if err := e.Validate(); err != nil {
		return domain.EventID{}, err
	}
	if e.ID.IsNil() {
		e.ID = domain.NewEventID()
	}

	var milestones []byte
	if e.Milestones != nil {
		b, err := json.Marshal(e.Milestones)
		if err != nil {
			return domain.EventID{}, fmt.Errorf("marshal milestones: %w", err)
		}
		milestones = b
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return domain.EventID{}, fmt.Errorf("marshal outbox payload: %w", err)
	}
	var gateID *uuid.UUID
	if !e.GateID.IsNil() {
		g := uuid.UUID(e.GateID)
		gateID = &g
	}

	exec := txcontext.Executor(ctx, s.db)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO progression_events (
			id, user_id, kind, domain, from_level, to_level, at, milestones,
			is_cascade, cause, reason, feature, action, gate_id, gate_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), string(e.Kind), string(e.Domain),
		e.FromLevel, e.ToLevel, e.At, milestones,
		e.Cascade, e.Cause, e.Reason, string(e.Feature), string(e.Action), gateID, e.Count,
	)
	if err != nil {
		return domain.EventID{}, fmt.Errorf("insert event: %w", postgres.Classify(err))
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(e.ID), outboxAggregate, e.UserID.String(), string(e.Kind), payload, e.At,
	)
	if err != nil {
		return domain.EventID{}, fmt.Errorf("insert outbox entry: %w", postgres.Classify(err))
	}
	return e.ID, nil
}

// ListByUser returns matching events oldest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID, f Filter) ([]*Event, error) {
	var (
		where = []string{"user_id = $1"}
		args  = []any{uuid.UUID(userID)}
	)
	if f.Domain != "" {
		args = append(args, string(f.Domain))
		where = append(where, fmt.Sprintf("domain = $%d", len(args)))
	}
	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		args = append(args, pq.Array(kinds))
		where = append(where, fmt.Sprintf("kind = ANY($%d)", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("at >= $%d", len(args)))
	}

	query := `
		SELECT id, user_id, kind, domain, from_level, to_level, at, milestones,
		       is_cascade, cause, reason, feature, action, gate_id, gate_count, seq
		FROM progression_events
		WHERE ` + strings.Join(where, " AND ")
	if f.Limit > 0 {
		// newest N, flipped back to append order below
		args = append(args, f.Limit)
		query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d", len(args))
	} else {
		query += " ORDER BY seq ASC"
	}

	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", postgres.Classify(err))
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", postgres.Classify(err))
	}
	if f.Limit > 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var (
		e          Event
		id, userID uuid.UUID
		kind       string
		domainID   string
		at         time.Time
		milestones []byte
		feature    string
		action     string
		gateID     uuid.NullUUID
		seq        int64
	)
	if err := rows.Scan(&id, &userID, &kind, &domainID, &e.FromLevel, &e.ToLevel, &at, &milestones,
		&e.Cascade, &e.Cause, &e.Reason, &feature, &action, &gateID, &e.Count, &seq); err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if len(milestones) > 0 {
		if err := json.Unmarshal(milestones, &e.Milestones); err != nil {
			return nil, fmt.Errorf("decode milestones: %w", err)
		}
	}
	e.ID = domain.EventID(id)
	e.UserID = domain.UserID(userID)
	e.Kind = Kind(kind)
	e.Domain = domain.DomainID(domainID)
	e.At = at
	e.Feature = domain.Feature(feature)
	e.Action = domain.Action(action)
	if gateID.Valid {
		e.GateID = domain.GateID(gateID.UUID)
	}
	return &e, nil
}
