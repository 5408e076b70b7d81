// Package service applies advancement decisions and suspensions to stored
// progression state. Evaluation runs on an unlocked, speculative read; every
// mutation commits through StoreTx so the state change and its event log
// entries land together.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ascent/internal/eventlog"
	"ascent/internal/platform/metrics"
	"ascent/internal/progression/evaluator"
	"ascent/internal/progression/models"
	"ascent/internal/progression/score"
	"ascent/internal/registry"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
	"ascent/pkg/platform/audit"
	"ascent/pkg/platform/sentinel"
	"ascent/pkg/requestcontext"
)

// Service orchestrates level advancement, rollback and suspension over the
// state store, recording every transition in the event log.
type Service struct {
	catalog      Catalog
	states       StateStore
	events       EventStore
	tx           StoreTx
	cascadeDepth int
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
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

// WithTx replaces the default in-memory transaction, e.g. with a Postgres one.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithCascadeDepth bounds cascade hops per pass. Zero disables cascades.
func WithCascadeDepth(depth int) Option {
	return func(s *Service) {
		if depth >= 0 {
			s.cascadeDepth = depth
		}
	}
}

// New constructs a Service. Without WithTx writes run in an in-process
// transaction over states and events.
func New(catalog Catalog, states StateStore, events EventStore, opts ...Option) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if states == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if events == nil {
		return nil, fmt.Errorf("event store is required")
	}
	svc := &Service{
		catalog:      catalog,
		states:       states,
		events:       events,
		cascadeDepth: evaluator.DefaultCascadeDepth,
		tracer:       otel.Tracer("ascent/progression"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tx == nil {
		svc.tx = NewInMemoryTx(states, events, 0)
	}
	return svc, nil
}

// GetState returns the stored state, or a level-0 state entered now when the
// user has never been evaluated in the domain. The synthesized state is not
// written.
func (s *Service) GetState(ctx context.Context, userID domain.UserID, domainID domain.DomainID) (*models.DomainState, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	d, err := s.catalog.Domain(domainID)
	if err != nil {
		return nil, err
	}
	st, err := s.states.Get(ctx, userID, domainID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.NewDomainState(userID, domainID, requestcontext.Now(ctx)), nil
	}
	if err != nil {
		return nil, translate(err, "load domain state")
	}
	if err := st.Validate(d.MaxLevel()); err != nil {
		return nil, err
	}
	return st, nil
}

// ListStates returns one state per registered domain in catalog order.
func (s *Service) ListStates(ctx context.Context, userID domain.UserID) ([]*models.DomainState, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	byDomain, err := s.loadStates(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	out := make([]*models.DomainState, 0, len(byDomain))
	for _, id := range s.catalog.DomainIDs() {
		st, ok := byDomain[id]
		if !ok {
			st = models.NewDomainState(userID, id, now)
		}
		out = append(out, st)
	}
	return out, nil
}

// Evaluate is a read-only dry run of the advancement decision.
func (s *Service) Evaluate(ctx context.Context, userID domain.UserID, domainID domain.DomainID, snapshot registry.MilestoneSnapshot) (models.Decision, error) {
	if err := s.catalog.ValidateMilestones(domainID, snapshot); err != nil {
		return models.Decision{}, err
	}
	st, err := s.GetState(ctx, userID, domainID)
	if err != nil {
		return models.Decision{}, err
	}
	d, err := s.catalog.Domain(domainID)
	if err != nil {
		return models.Decision{}, err
	}
	return evaluator.Evaluate(d, st, snapshot, requestcontext.Now(ctx)), nil
}

// Advance runs an on-demand pass for one domain, committing any promotion
// and the cascades it triggers.
func (s *Service) Advance(ctx context.Context, userID domain.UserID, domainID domain.DomainID, snapshots registry.SnapshotSet) (*models.PassResult, error) {
	if _, err := s.catalog.Domain(domainID); err != nil {
		return nil, err
	}
	return s.runPass(ctx, "advance", userID, []domain.DomainID{domainID}, snapshots)
}

// AdvanceAll runs the periodic pass over every registered domain.
func (s *Service) AdvanceAll(ctx context.Context, userID domain.UserID, snapshots registry.SnapshotSet) (*models.PassResult, error) {
	return s.runPass(ctx, "advance_all", userID, s.catalog.DomainIDs(), snapshots)
}

func (s *Service) runPass(ctx context.Context, op string, userID domain.UserID, targets []domain.DomainID, snapshots registry.SnapshotSet) (_ *models.PassResult, err error) {
	ctx, span := s.startSpan(ctx, op, userID)
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveOperation(op, time.Now())

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.catalog.ValidateSnapshotSet(snapshots); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	read, err := s.loadStates(ctx, userID)
	if err != nil {
		return nil, err
	}
	working := make(map[domain.DomainID]*models.DomainState, len(read))
	for id, st := range read {
		working[id] = st.Clone()
	}

	pass := evaluator.NewPass(s.catalog, userID, working, snapshots, now, s.cascadeDepth)
	for _, id := range targets {
		if err := pass.Advance(id); err != nil {
			return nil, err
		}
	}
	res := pass.Result()

	var created []domain.DomainID
	for _, id := range targets {
		if st, ok := res.States[id]; ok && st.IsNew() {
			created = append(created, id)
		}
	}
	for _, p := range res.Promotions {
		if _, ok := read[p.Domain]; !ok && !contains(created, p.Domain) {
			created = append(created, p.Domain)
		}
	}
	if len(created) == 0 && !res.Promoted() {
		return res, nil
	}

	err = s.tx.RunInTx(ctx, userID, func(ctx context.Context, stores Stores) error {
		written := make(map[domain.DomainID]bool)
		for _, id := range created {
			if err := stores.States.Save(ctx, res.States[id]); err != nil {
				return err
			}
			written[id] = true
		}
		for _, p := range res.Promotions {
			st := res.States[p.Domain]
			if !written[p.Domain] {
				if err := stores.States.Save(ctx, st); err != nil {
					return err
				}
				written[p.Domain] = true
			}
			if _, err := stores.Events.Append(ctx, &eventlog.Event{
				UserID:     userID,
				Kind:       eventlog.KindPromotion,
				Domain:     p.Domain,
				FromLevel:  p.FromLevel,
				ToLevel:    p.ToLevel,
				At:         p.At,
				Milestones: snapshots[p.Domain].Clone().Facts,
				Cascade:    p.Cascade,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncCommitConflict(op)
		}
		return nil, translate(err, "commit advancement")
	}

	for _, id := range created {
		audit.Log(ctx, s.logger, audit.EventStateCreated, "user_id", userID, "domain", id)
	}
	for _, p := range res.Promotions {
		s.metrics.IncPromotion(string(p.Domain), p.Cascade)
		audit.Log(ctx, s.logger, audit.EventPromoted,
			"user_id", userID,
			"domain", p.Domain,
			"from_level", p.FromLevel,
			"to_level", p.ToLevel,
			"cascade", p.Cascade,
		)
	}
	return res, nil
}

// AddScore accumulates advancement score on an active domain.
func (s *Service) AddScore(ctx context.Context, userID domain.UserID, domainID domain.DomainID, points int64) (_ *models.DomainState, err error) {
	ctx, span := s.startSpan(ctx, "add_score", userID)
	defer func() { endSpan(span, err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if points < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "points must not be negative")
	}
	d, err := s.catalog.Domain(domainID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var out *models.DomainState
	err = s.tx.RunInTx(ctx, userID, func(ctx context.Context, stores Stores) error {
		st, err := getOrNew(ctx, stores.States, userID, domainID, now)
		if err != nil {
			return err
		}
		if err := st.Validate(d.MaxLevel()); err != nil {
			return err
		}
		if st.Suspended {
			return dErrors.New(dErrors.CodeConflict, "domain is suspended")
		}
		st.AdvancementScore += points
		st.UpdatedAt = now
		if err := stores.States.Save(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, translate(err, "add score")
	}
	audit.Log(ctx, s.logger, audit.EventScoreAdded, "user_id", userID, "domain", domainID, "points", points)
	return out, nil
}

// CompositeScore is the user's overall progress in [0, 100].
func (s *Service) CompositeScore(ctx context.Context, userID domain.UserID) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	states, err := s.states.ListByUser(ctx, userID)
	if err != nil {
		return 0, translate(err, "list domain states")
	}
	return score.Composite(s.catalog, states), nil
}

// History reads the user's event log.
func (s *Service) History(ctx context.Context, userID domain.UserID, filter eventlog.Filter) ([]*eventlog.Event, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if filter.Domain != "" {
		if _, err := s.catalog.Domain(filter.Domain); err != nil {
			return nil, err
		}
	}
	events, err := s.events.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, translate(err, "list events")
	}
	return events, nil
}

// ListUsers returns every user with stored progression.
func (s *Service) ListUsers(ctx context.Context) ([]domain.UserID, error) {
	users, err := s.states.ListUsers(ctx)
	if err != nil {
		return nil, translate(err, "list users")
	}
	return users, nil
}

func (s *Service) loadStates(ctx context.Context, userID domain.UserID) (map[domain.DomainID]*models.DomainState, error) {
	list, err := s.states.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "list domain states")
	}
	out := make(map[domain.DomainID]*models.DomainState, len(list))
	for _, st := range list {
		d, err := s.catalog.Domain(st.Domain)
		if err != nil {
			// rows for domains dropped from the catalog are ignored
			continue
		}
		if err := st.Validate(d.MaxLevel()); err != nil {
			return nil, err
		}
		out[st.Domain] = st
	}
	return out, nil
}

func (s *Service) startSpan(ctx context.Context, op string, userID domain.UserID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "progression."+op, trace.WithAttributes(
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

func getOrNew(ctx context.Context, states StateStore, userID domain.UserID, domainID domain.DomainID, now time.Time) (*models.DomainState, error) {
	st, err := states.Get(ctx, userID, domainID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.NewDomainState(userID, domainID, now), nil
	}
	return st, err
}

func requireUser(userID domain.UserID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	return nil
}

// translate maps store facts onto domain error codes. Coded errors pass
// through unchanged.
func translate(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConcurrentModification, msg+": state changed since it was read")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func contains(ids []domain.DomainID, id domain.DomainID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
