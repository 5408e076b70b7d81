// Package outbox relays committed event log entries to the message broker.
// Entries are written to the outbox table in the same transaction as the
// event itself, so a crash between commit and publish only delays delivery.
package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks ascent/internal/eventlog/outbox Publisher,Source

// Entry is one pending outbox row.
type Entry struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Publisher delivers a batch in order. A nil error means every entry was
// acknowledged by the broker.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) error
}

// Source hands out pending entries. Claim runs fn with up to limit entries
// and marks them processed only when fn returns nil.
type Source interface {
	Claim(ctx context.Context, limit int, fn func(ctx context.Context, entries []Entry) error) (int, error)
}

// RelayMetrics is the metrics surface the relay reports to.
type RelayMetrics interface {
	ObserveRelayBatch(published int, err error)
}

// Relay polls the source and publishes batches until its context ends.
type Relay struct {
	source    Source
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   RelayMetrics
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m RelayMetrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func New(source Source, publisher Publisher, opts ...Option) (*Relay, error) {
	if source == nil {
		return nil, errors.New("outbox source is required")
	}
	if publisher == nil {
		return nil, errors.New("outbox publisher is required")
	}
	r := &Relay{
		source:    source,
		publisher: publisher,
		interval:  2 * time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run drains the outbox every interval. Batch failures are logged and retried
// on the next tick; Run only returns when ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "outbox relay batch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain publishes batches until the outbox is empty or a batch fails.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := r.source.Claim(ctx, r.batchSize, r.publisher.Publish)
		if r.metrics != nil {
			r.metrics.ObserveRelayBatch(n, err)
		}
		if err != nil {
			return total, err
		}
		total += n
		if n < r.batchSize {
			return total, nil
		}
	}
}
