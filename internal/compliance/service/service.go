// Package service is the compliance gate engine. It opens gates from signal
// snapshots against the rule table, answers feature access checks and closes
// gates when their remedial action is reported.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ascent/internal/compliance/models"
	"ascent/internal/eventlog"
	"ascent/internal/platform/metrics"
	"ascent/internal/registry"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
	"ascent/pkg/platform/audit"
	"ascent/pkg/platform/sentinel"
	"ascent/pkg/requestcontext"
)

// Service orchestrates gate evaluation, fulfilment and feature access checks.
type Service struct {
	catalog Catalog
	gates   GateStore
	events  eventlog.Store
	tx      StoreTx
	cache   AccessCache
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithCache puts an access cache in front of the gate store.
func WithCache(c AccessCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New constructs a Service.
func New(catalog Catalog, gates GateStore, events eventlog.Store, opts ...Option) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if gates == nil {
		return nil, fmt.Errorf("gate store is required")
	}
	if events == nil {
		return nil, fmt.Errorf("event store is required")
	}
	svc := &Service{
		catalog: catalog,
		gates:   gates,
		events:  events,
		tracer:  otel.Tracer("ascent/compliance"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tx == nil {
		svc.tx = NewInMemoryTx(gates, events, 0)
	}
	return svc, nil
}

// EvaluateSignals opens a gate for every rule the snapshot newly crosses
// whose feature is not already blocked by an open gate, and returns the gates
// it opened. A rule is newly crossed when it starts matching, or when a signal
// goes past the furthest value seen since it last started matching; a
// snapshot that merely repeats what was already seen opens nothing, even
// after the earlier gate was fulfilled. Every call logs one gates_evaluated
// entry.
func (s *Service) EvaluateSignals(ctx context.Context, userID domain.UserID, signals registry.SignalSnapshot) (_ []*models.Gate, err error) {
	ctx, span := s.startSpan(ctx, "evaluate_signals", userID)
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveOperation("evaluate_signals", time.Now())

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.catalog.ValidateSignals(signals); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var (
		opened []*models.Gate
		held   bool
	)
	err = s.tx.RunInTx(ctx, userID, func(ctx context.Context, stores Stores) error {
		opened = opened[:0]
		open, err := stores.Gates.ListByUser(ctx, userID, false)
		if err != nil {
			return err
		}
		blocked := make(map[domain.Feature]bool, len(open))
		for _, g := range open {
			blocked[g.Feature] = true
		}
		marks, err := stores.Gates.Watermarks(ctx, userID)
		if err != nil {
			return err
		}

		for _, rule := range s.catalog.Rules() {
			mark := marks[rule.ID]
			if !rule.Matches(signals) {
				if mark != nil {
					if err := stores.Gates.ClearWatermark(ctx, userID, rule.ID); err != nil {
						return err
					}
				}
				continue
			}
			var peak map[string]int
			if mark != nil {
				peak = mark.Peak
			}
			crossed := mark == nil || rule.Exceeds(peak, signals)
			if crossed {
				if err := stores.Gates.SaveWatermark(ctx, &models.Watermark{
					UserID:    userID,
					RuleID:    rule.ID,
					Peak:      rule.Peak(peak, signals),
					UpdatedAt: now,
				}); err != nil {
					return err
				}
			}
			if !crossed || blocked[rule.Blocks] {
				continue
			}

			g := &models.Gate{
				ID:               domain.NewGateID(),
				UserID:           userID,
				RuleID:           rule.ID,
				Feature:          rule.Blocks,
				Condition:        Describe(rule),
				CreatedAt:        now,
				FulfillingAction: rule.FulfillingAction,
			}
			if err := stores.Gates.Create(ctx, g); err != nil {
				return err
			}
			if _, err := stores.Events.Append(ctx, &eventlog.Event{
				UserID:  userID,
				Kind:    eventlog.KindGateOpened,
				At:      now,
				Feature: g.Feature,
				Action:  g.FulfillingAction,
				GateID:  g.ID,
				Reason:  rule.ID,
			}); err != nil {
				return err
			}
			blocked[rule.Blocks] = true
			opened = append(opened, g)
		}

		if _, err := stores.Events.Append(ctx, &eventlog.Event{
			UserID: userID,
			Kind:   eventlog.KindGatesEvaluated,
			At:     now,
			Count:  len(opened),
		}); err != nil {
			return err
		}
		if len(opened) > 0 && !held {
			if err := s.hold(ctx, userID); err != nil {
				return err
			}
			held = true
		}
		return nil
	})
	if held {
		s.release(ctx, userID)
	}
	if err != nil {
		return nil, translate(err, "evaluate signals")
	}

	for _, g := range opened {
		s.metrics.IncGateOpened(string(g.Feature))
		audit.Log(ctx, s.logger, audit.EventGateOpened,
			"user_id", userID,
			"gate_id", g.ID,
			"rule_id", g.RuleID,
			"feature", g.Feature,
		)
	}
	return opened, nil
}

// CheckFeatureAccess allows feature iff no open gate references it. A denied
// answer carries the oldest blocking gate.
func (s *Service) CheckFeatureAccess(ctx context.Context, userID domain.UserID, feature domain.Feature) (_ models.Access, err error) {
	ctx, span := s.startSpan(ctx, "check_feature_access", userID)
	span.SetAttributes(attribute.String("feature", string(feature)))
	defer func() { endSpan(span, err) }()

	if err := requireUser(userID); err != nil {
		return models.Access{}, err
	}
	if err := s.catalog.RequireFeature(feature); err != nil {
		return models.Access{}, err
	}

	var (
		generation int64
		cacheable  bool
	)
	if s.cache != nil {
		cached, gen, ok, err := s.cache.Get(ctx, userID, feature)
		switch {
		case err != nil:
			s.warn(ctx, "gate cache read failed", err)
		case ok:
			s.recordCheck(ctx, userID, cached)
			return cached, nil
		default:
			generation, cacheable = gen, true
		}
	}

	open, err := s.gates.ListByUser(ctx, userID, false)
	if err != nil {
		return models.Access{}, translate(err, "list gates")
	}
	access := models.Access{Feature: feature, Allowed: true}
	if g := models.Blocking(open, feature); g != nil {
		access.Allowed = false
		access.Gate = g
	}

	if cacheable {
		if err := s.cache.Set(ctx, userID, generation, access); err != nil {
			s.warn(ctx, "gate cache write failed", err)
		}
	}
	s.recordCheck(ctx, userID, access)
	return access, nil
}

// FulfillByAction closes every open gate whose fulfilling action is action and
// reports whether any gate was closed. Actions no rule names close nothing.
func (s *Service) FulfillByAction(ctx context.Context, userID domain.UserID, action domain.Action) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "fulfill_by_action", userID)
	span.SetAttributes(attribute.String("action", string(action)))
	defer func() { endSpan(span, err) }()

	if err := requireUser(userID); err != nil {
		return false, err
	}
	if action == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "action is required")
	}
	if !s.catalog.KnownAction(action) {
		return false, nil
	}

	now := requestcontext.Now(ctx)
	var (
		closed []*models.Gate
		held   bool
	)
	err = s.tx.RunInTx(ctx, userID, func(ctx context.Context, stores Stores) error {
		closed = closed[:0]
		open, err := stores.Gates.ListByUser(ctx, userID, false)
		if err != nil {
			return err
		}
		for _, g := range open {
			if g.FulfillingAction != action {
				continue
			}
			g.Fulfill(action, now)
			if err := stores.Gates.Fulfill(ctx, g); err != nil {
				return err
			}
			if _, err := stores.Events.Append(ctx, &eventlog.Event{
				UserID:  userID,
				Kind:    eventlog.KindGateFulfilled,
				At:      now,
				Feature: g.Feature,
				Action:  action,
				GateID:  g.ID,
			}); err != nil {
				return err
			}
			closed = append(closed, g)
		}
		if len(closed) > 0 && !held {
			if err := s.hold(ctx, userID); err != nil {
				return err
			}
			held = true
		}
		return nil
	})
	if held {
		s.release(ctx, userID)
	}
	if err != nil {
		return false, translate(err, "fulfill gates")
	}

	if len(closed) == 0 {
		return false, nil
	}
	for _, g := range closed {
		s.metrics.IncGateFulfilled(string(action))
		audit.Log(ctx, s.logger, audit.EventGateFulfilled,
			"user_id", userID,
			"gate_id", g.ID,
			"feature", g.Feature,
			"action", action,
		)
	}
	return true, nil
}

// ListGates returns the user's gates oldest first.
func (s *Service) ListGates(ctx context.Context, userID domain.UserID, includeFulfilled bool) ([]*models.Gate, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	gates, err := s.gates.ListByUser(ctx, userID, includeFulfilled)
	if err != nil {
		return nil, translate(err, "list gates")
	}
	return gates, nil
}

// Describe renders a rule's conditions for the gate record, preferring the
// rule's own description.
func Describe(rule registry.Rule) string {
	if rule.Description != "" {
		return rule.Description
	}
	parts := make([]string, 0, len(rule.When))
	for _, c := range rule.When {
		parts = append(parts, c.Signal+" "+string(c.Op)+" "+strconv.Itoa(c.Threshold))
	}
	return strings.Join(parts, " and ")
}

func (s *Service) recordCheck(ctx context.Context, userID domain.UserID, access models.Access) {
	s.metrics.IncFeatureCheck(access.Allowed)
	if !access.Allowed {
		audit.Log(ctx, s.logger, audit.EventFeatureDenied,
			"user_id", userID,
			"feature", access.Feature,
			"gate_id", access.Gate.ID,
		)
	}
}

// hold runs inside the transaction, before the commit. If the cache cannot
// be held the change is refused, since a cached answer could outlive it.
func (s *Service) hold(ctx context.Context, userID domain.UserID) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Hold(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "hold gate cache")
	}
	return nil
}

// release follows every successful hold, committed or not. A failed release
// only delays caching until the hold expires.
func (s *Service) release(ctx context.Context, userID domain.UserID) {
	if err := s.cache.Release(ctx, userID); err != nil {
		s.warn(ctx, "gate cache release failed", err)
	}
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "error", err)
	}
}

func (s *Service) startSpan(ctx context.Context, op string, userID domain.UserID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "compliance."+op, trace.WithAttributes(
		attribute.String("user_id", userID.String()),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func requireUser(userID domain.UserID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	return nil
}

func translate(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConcurrentModification, msg+": gate set changed concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
