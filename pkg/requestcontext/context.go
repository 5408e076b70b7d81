// Package requestcontext provides transport-independent accessors for values
// scoped to one operation: the evaluation clock and a correlation id.
//
// Usage in services (read values):
//
//	now := requestcontext.Now(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in middleware and workers (set values):
//
//	ctx = requestcontext.WithTime(ctx, time.Now())
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (pin the clock):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// RequestID retrieves the correlation id from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the operation-scoped time, falling back to the wall clock.
// Every timestamp written during one engine call reads from here, so a
// promotion, its event and any cascade share one instant.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that need to move the clock across dwell windows
//   - Maintenance passes that need one "now" for a whole batch
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// EnsureTime pins the clock if the context does not carry one yet.
func EnsureTime(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return ctx
	}
	return WithTime(ctx, time.Now())
}
