package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ascent/internal/registry"
	"ascent/pkg/domain"
	"ascent/pkg/platform/sentinel"
)

const (
	userKeyPrefix   = "ascent:snapshots:"
	usersKey        = "ascent:snapshot_users"
	signalsField    = "signals"
	milestonePrefix = "milestones:"
)

// Redis keeps one hash per user: a field per domain's milestone snapshot and
// one for the signal snapshot. A set indexes the users.
//
// Transport failures wrap sentinel.ErrUnavailable; a stored snapshot that
// does not decode wraps sentinel.ErrInvalidState.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func userKey(userID domain.UserID) string {
	return userKeyPrefix + userID.String()
}

func (r *Redis) PutMilestones(ctx context.Context, userID domain.UserID, set registry.SnapshotSet) error {
	if len(set) == 0 {
		return nil
	}
	values := make([]any, 0, 2*len(set))
	for id, snap := range set {
		raw, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode milestone snapshot: %w", err)
		}
		values = append(values, milestonePrefix+string(id), raw)
	}
	return r.write(ctx, userID, values)
}

func (r *Redis) PutSignals(ctx context.Context, userID domain.UserID, signals registry.SignalSnapshot) error {
	raw, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("encode signal snapshot: %w", err)
	}
	return r.write(ctx, userID, []any{signalsField, raw})
}

func (r *Redis) write(ctx context.Context, userID domain.UserID, values []any) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, userKey(userID), values...)
	pipe.SAdd(ctx, usersKey, userID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store snapshot: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Latest(ctx context.Context, userID domain.UserID) (Latest, error) {
	fields, err := r.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return Latest{}, fmt.Errorf("read snapshots: %w: %w", sentinel.ErrUnavailable, err)
	}
	out := Latest{Milestones: registry.SnapshotSet{}}
	for field, raw := range fields {
		switch {
		case field == signalsField:
			var s registry.SignalSnapshot
			if err := json.Unmarshal([]byte(raw), &s); err != nil {
				return Latest{}, fmt.Errorf("decode signal snapshot: %w: %w", sentinel.ErrInvalidState, err)
			}
			out.Signals = &s
		case strings.HasPrefix(field, milestonePrefix):
			var m registry.MilestoneSnapshot
			if err := json.Unmarshal([]byte(raw), &m); err != nil {
				return Latest{}, fmt.Errorf("decode milestone snapshot %s: %w: %w", field, sentinel.ErrInvalidState, err)
			}
			out.Milestones[domain.DomainID(strings.TrimPrefix(field, milestonePrefix))] = m
		}
	}
	return out, nil
}

func (r *Redis) Users(ctx context.Context) ([]domain.UserID, error) {
	members, err := r.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshot users: %w: %w", sentinel.ErrUnavailable, err)
	}
	out := make([]domain.UserID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		out = append(out, domain.UserID(id))
	}
	return out, nil
}
