// Package cache keeps feature access answers in Redis so access checks on
// hot paths skip the gate store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ascent/internal/compliance/models"
	"ascent/pkg/domain"
)

const (
	keyPrefix  = "ascent:gates:"
	defaultTTL = 5 * time.Minute
)

// Redis stores one key per (user, feature), each stamped with the user's
// cache generation. Every gate change bumps the generation twice: once when
// the change is held before commit and once when it is released after, so an
// answer computed from a read that raced the change is never served.
//
// Keys for one user share a hash tag and live on one cluster slot.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*Redis)

// WithTTL bounds how long an answer may be served without a store read. It
// also bounds how long a hold survives a failed release.
func WithTTL(ttl time.Duration) Option {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis returns a cache over client.
func NewRedis(client *redis.Client, opts ...Option) *Redis {
	r := &Redis{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func userTag(userID domain.UserID) string {
	return keyPrefix + "{" + userID.String() + "}"
}

func genKey(userID domain.UserID) string  { return userTag(userID) + ":gen" }
func holdKey(userID domain.UserID) string { return userTag(userID) + ":hold" }

func entryKey(userID domain.UserID, feature domain.Feature) string {
	return userTag(userID) + ":f:" + string(feature)
}

type entry struct {
	Generation int64         `json:"gen"`
	Access     models.Access `json:"access"`
}

// Get returns the cached answer for feature and the generation it was looked
// up under. A miss still reports the generation so the caller can Set the
// answer it computes.
func (r *Redis) Get(ctx context.Context, userID domain.UserID, feature domain.Feature) (models.Access, int64, bool, error) {
	vals, err := r.client.MGet(ctx, genKey(userID), entryKey(userID, feature)).Result()
	if err != nil {
		return models.Access{}, 0, false, fmt.Errorf("read gate cache: %w", err)
	}
	gen, err := parseGeneration(vals[0])
	if err != nil {
		return models.Access{}, 0, false, err
	}
	raw, ok := vals[1].(string)
	if !ok {
		return models.Access{}, gen, false, nil
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return models.Access{}, 0, false, fmt.Errorf("decode gate cache entry: %w", err)
	}
	if e.Generation != gen {
		return models.Access{}, gen, false, nil
	}
	return e.Access, gen, true, nil
}

func parseGeneration(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode gate cache generation: %w", err)
	}
	return gen, nil
}

// KEYS: gen, hold, entry. ARGV: expected generation, payload, ttl ms.
var setScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[3], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Set stores access if the user's generation is still gen and no gate change
// is held. A refused write is not an error.
func (r *Redis) Set(ctx context.Context, userID domain.UserID, gen int64, access models.Access) error {
	raw, err := json.Marshal(entry{Generation: gen, Access: access})
	if err != nil {
		return fmt.Errorf("encode gate cache entry: %w", err)
	}
	keys := []string{genKey(userID), holdKey(userID), entryKey(userID, access.Feature)}
	err = setScript.Run(ctx, r.client, keys, strconv.FormatInt(gen, 10), raw, r.ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("write gate cache: %w", err)
	}
	return nil
}

// Hold retires every cached answer for the user and blocks new writes until
// Release or until the TTL runs out.
func (r *Redis) Hold(ctx context.Context, userID domain.UserID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Set(ctx, holdKey(userID), 1, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("hold gate cache: %w", err)
	}
	return nil
}

// Release retires answers written under the held generation and lifts the
// hold.
func (r *Redis) Release(ctx context.Context, userID domain.UserID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Del(ctx, holdKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("release gate cache: %w", err)
	}
	return nil
}
