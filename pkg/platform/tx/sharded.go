package tx

import (
	"context"
	"sync"
	"time"

	dErrors "ascent/pkg/domain-errors"
)

// numShards spreads keys across independent mutexes so unrelated users do
// not contend on one lock.
const numShards = 128

// DefaultTimeout bounds a transaction when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

// ShardedLock serializes work per key in process. It is the in-memory
// counterpart of a row-locking database transaction.
type ShardedLock struct {
	shards  [numShards]sync.Mutex
	Timeout time.Duration
}

// Run executes fn while holding the shard for key.
func (l *ShardedLock) Run(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ctx, cancel := withTimeout(ctx, l.Timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	shard := &l.shards[hashKey(key)%numShards]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
