// Package maintenance runs the periodic per-user pass: timed resumptions,
// advancement over every domain and gate evaluation, fed from the latest
// stored snapshots.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ascent/internal/platform/metrics"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
	"ascent/pkg/platform/audit"
	"ascent/pkg/platform/sentinel"
	"ascent/pkg/requestcontext"
)

// Report summarizes one pass.
type Report struct {
	Users     int `json:"users"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Promoted  int `json:"promoted"`
	Resumed   int `json:"resumed"`
	Gated     int `json:"gated"`
}

// Job runs maintenance passes over every known user.
type Job struct {
	progression Progression
	gates       Gates
	source      SnapshotSource
	interval    time.Duration
	concurrency int
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

type Option func(*Job)

func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) { j.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

func WithInterval(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.interval = d
		}
	}
}

// WithClock overrides the pass time.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

// WithConcurrency bounds how many users are processed at once.
func WithConcurrency(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.concurrency = n
		}
	}
}

// WithRetry sets the attempts per user and the first backoff, which doubles
// after each retryable failure.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(j *Job) {
		if maxAttempts > 0 {
			j.maxAttempts = maxAttempts
		}
		if backoff >= 0 {
			j.backoff = backoff
		}
	}
}

// New constructs a Job. Progression, gates and source are required.
func New(progression Progression, gates Gates, source SnapshotSource, opts ...Option) (*Job, error) {
	if progression == nil || gates == nil || source == nil {
		return nil, errors.New("progression, gates and snapshot source are required")
	}
	j := &Job{
		progression: progression,
		gates:       gates,
		source:      source,
		interval:    time.Hour,
		concurrency: 8,
		maxAttempts: 3,
		backoff:     100 * time.Millisecond,
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Run executes a pass every interval until ctx is done.
func (j *Job) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
			j.logger.ErrorContext(ctx, "maintenance pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce processes every known user once. Per-user failures are logged and
// counted, not returned; the error is reserved for failing to enumerate
// users or a cancelled context.
func (j *Job) RunOnce(ctx context.Context) (Report, error) {
	ctx = requestcontext.WithRequestID(ctx, "maintenance-"+uuid.NewString())
	ctx = requestcontext.WithTime(ctx, j.now())
	started := time.Now()

	users, err := j.users(ctx)
	if err != nil {
		return Report{}, err
	}

	var succeeded, failed, promoted, resumed, gated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, userID := range users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res, err := j.processWithRetry(gctx, userID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				j.metrics.IncMaintenanceUser("failed")
				j.logger.WarnContext(gctx, "maintenance skipped user",
					"user_id", userID,
					"code", dErrors.CodeOf(err),
					"error", err,
				)
				audit.Log(gctx, j.logger, audit.EventMaintenanceFailed, "user_id", userID, "code", dErrors.CodeOf(err))
				return nil
			}
			succeeded.Add(1)
			promoted.Add(int64(res.promoted))
			resumed.Add(int64(res.resumed))
			gated.Add(int64(res.gated))
			j.metrics.IncMaintenanceUser("ok")
			return nil
		})
	}
	err = g.Wait()

	report := Report{
		Users:     len(users),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Promoted:  int(promoted.Load()),
		Resumed:   int(resumed.Load()),
		Gated:     int(gated.Load()),
	}
	j.metrics.ObserveOperation("maintenance_pass", started)
	j.logger.InfoContext(ctx, "maintenance pass finished",
		"users", report.Users,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"promoted", report.Promoted,
		"resumed", report.Resumed,
		"gates_opened", report.Gated,
		"duration", time.Since(started),
	)
	return report, err
}

// users is the union of stored users, users with snapshots and users with a
// due resumption, in a stable order.
func (j *Job) users(ctx context.Context) ([]domain.UserID, error) {
	stored, err := j.progression.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	reported, err := j.source.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshot users: %w", err)
	}
	due, err := j.progression.DueResumptionUsers(ctx, requestcontext.Now(ctx))
	if err != nil {
		return nil, fmt.Errorf("list due resumptions: %w", err)
	}

	seen := make(map[domain.UserID]bool)
	var out []domain.UserID
	for _, list := range [][]domain.UserID{stored, reported, due} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	slices.SortFunc(out, func(a, b domain.UserID) int {
		return strings.Compare(a.String(), b.String())
	})
	return out, nil
}

type userResult struct {
	promoted, resumed, gated int
}

func (j *Job) processWithRetry(ctx context.Context, userID domain.UserID) (userResult, error) {
	wait := j.backoff
	var err error
	for attempt := 1; ; attempt++ {
		var res userResult
		res, err = j.processUser(ctx, userID)
		if err == nil || !dErrors.IsRetryable(err) || attempt >= j.maxAttempts {
			return res, err
		}
		j.metrics.IncMaintenanceUser("retried")
		j.logger.DebugContext(ctx, "retrying maintenance for user", "user_id", userID, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return userResult{}, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// processUser runs the steps serially; they share the user's data.
func (j *Job) processUser(ctx context.Context, userID domain.UserID) (userResult, error) {
	var res userResult

	resumed, err := j.progression.CheckTimedResumptions(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("timed resumptions: %w", err)
	}
	res.resumed = len(resumed)

	latest, err := j.source.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return res, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "load snapshots")
		}
		return res, dErrors.Wrap(err, dErrors.CodeInternal, "load snapshots")
	}

	pass, err := j.progression.AdvanceAll(ctx, userID, latest.Milestones)
	if err != nil {
		return res, fmt.Errorf("advance: %w", err)
	}
	res.promoted = len(pass.Promotions)

	if latest.Signals != nil {
		opened, err := j.gates.EvaluateSignals(ctx, userID, *latest.Signals)
		if err != nil {
			return res, fmt.Errorf("evaluate signals: %w", err)
		}
		res.gated = len(opened)
	}
	return res, nil
}
