// Package httptransport exposes the engine over a JSON API.
package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ascent/internal/eventlog"
	"ascent/internal/platform/middleware"
	"ascent/internal/registry"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
	"ascent/pkg/platform/httputil"
	"ascent/pkg/requestcontext"
)

const maxHistoryLimit = 1000

// Services bundles the collaborators a Handler serves. Maintenance may be nil,
// in which case the operator route is not registered.
type Services struct {
	Progression Progression
	Gates       Gates
	Access      Access
	Snapshots   Snapshots
	Catalog     Catalog
	Maintenance Maintenance
}

// Handler wires the engine endpoints to the services.
type Handler struct {
	svc           Services
	logger        *slog.Logger
	operatorToken string
}

type Option func(*Handler)

// WithOperatorToken guards operator routes with a shared token.
func WithOperatorToken(token string) Option {
	return func(h *Handler) { h.operatorToken = token }
}

// New constructs a handler. Every service except Maintenance is required.
func New(svc Services, logger *slog.Logger, opts ...Option) (*Handler, error) {
	if svc.Progression == nil || svc.Gates == nil || svc.Access == nil || svc.Snapshots == nil || svc.Catalog == nil {
		return nil, errors.New("progression, gates, access, snapshots and catalog are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{svc: svc, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the engine endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/states", h.HandleListStates)
		r.Get("/states/{domain}", h.HandleGetState)
		r.Post("/states/{domain}/evaluate", h.HandleEvaluate)
		r.Post("/states/{domain}/advance", h.HandleAdvance)
		r.Post("/states/{domain}/score", h.HandleAddScore)
		r.Post("/advance", h.HandleAdvanceAll)
		r.Get("/score", h.HandleCompositeScore)
		r.Get("/history", h.HandleHistory)

		r.Post("/suspend", h.HandleSuspend)
		r.Post("/resume", h.HandleResume)
		r.Post("/resumptions", h.HandleTimedResumptions)

		r.Get("/snapshots", h.HandleGetSnapshots)
		r.Put("/snapshots/milestones", h.HandlePutMilestones)
		r.Put("/snapshots/signals", h.HandlePutSignals)

		r.Post("/signals/evaluate", h.HandleEvaluateSignals)
		r.Get("/gates", h.HandleListGates)
		r.Get("/features/{feature}", h.HandleFeatureAccess)
		r.Post("/actions", h.HandleFulfillAction)
	})

	if h.svc.Maintenance != nil {
		r.With(middleware.RequireOperatorToken(h.operatorToken, h.logger)).
			Post("/operator/maintenance", h.HandleRunMaintenance)
	}
}

// HandleListStates handles GET /users/{userID}/states.
func (h *Handler) HandleListStates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	states, err := h.svc.Progression.ListStates(ctx, userID)
	if err != nil {
		h.fail(ctx, w, "list states failed", err, "user_id", userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"states": states})
}

// HandleGetState handles GET /users/{userID}/states/{domain}.
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, domainID, ok := h.userAndDomain(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Progression.GetState(ctx, userID, domainID)
	if err != nil {
		h.fail(ctx, w, "get state failed", err, "user_id", userID, "domain", domainID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// HandleEvaluate handles POST /users/{userID}/states/{domain}/evaluate. It
// never writes.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, domainID, ok := h.userAndDomain(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	dec, err := h.svc.Progression.Evaluate(ctx, userID, domainID, req.Snapshot)
	if err != nil {
		h.fail(ctx, w, "evaluate failed", err, "user_id", userID, "domain", domainID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dec)
}

// HandleAdvance handles POST /users/{userID}/states/{domain}/advance.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, domainID, ok := h.userAndDomain(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AdvanceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.svc.Progression.Advance(ctx, userID, domainID, req.Snapshots)
	if err != nil {
		h.fail(ctx, w, "advance failed", err, "user_id", userID, "domain", domainID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleAdvanceAll handles POST /users/{userID}/advance.
func (h *Handler) HandleAdvanceAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AdvanceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.svc.Progression.AdvanceAll(ctx, userID, req.Snapshots)
	if err != nil {
		h.fail(ctx, w, "advance all failed", err, "user_id", userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleAddScore handles POST /users/{userID}/states/{domain}/score.
func (h *Handler) HandleAddScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, domainID, ok := h.userAndDomain(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScoreRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	st, err := h.svc.Progression.AddScore(ctx, userID, domainID, req.Points)
	if err != nil {
		h.fail(ctx, w, "add score failed", err, "user_id", userID, "domain", domainID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// HandleCompositeScore handles GET /users/{userID}/score.
func (h *Handler) HandleCompositeScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	score, err := h.svc.Progression.CompositeScore(ctx, userID)
	if err != nil {
		h.fail(ctx, w, "composite score failed", err, "user_id", userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"score": score})
}

// HandleHistory handles GET /users/{userID}/history. Supported query
// parameters: domain, kind (repeatable), since (RFC 3339) and limit.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.svc.Progression.History(ctx, userID, filter)
	if err != nil {
		h.fail(ctx, w, "history failed", err, "user_id", userID)
		return
	}
	if events == nil {
		events = []*eventlog.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// HandleSuspend handles POST /users/{userID}/suspend.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SuspendRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	states, err := h.svc.Progression.Suspend(ctx, userID, req.Target(), req.ParsedCause(), req.Reason, req.ResumeAfter)
	if err != nil {
		h.fail(ctx, w, "suspend failed", err, "user_id", userID, "cause", req.ParsedCause())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"states": states})
}

// HandleResume handles POST /users/{userID}/resume.
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResumeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	states, err := h.svc.Progression.Resume(ctx, userID, req.Target())
	if err != nil {
		h.fail(ctx, w, "resume failed", err, "user_id", userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"states": states})
}

// HandleTimedResumptions handles POST /users/{userID}/resumptions.
func (h *Handler) HandleTimedResumptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	resumed, err := h.svc.Progression.CheckTimedResumptions(ctx, userID)
	if err != nil {
		h.fail(ctx, w, "timed resumptions failed", err, "user_id", userID)
		return
	}
	if resumed == nil {
		resumed = []domain.DomainID{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"resumed": resumed})
}

// HandleGetSnapshots handles GET /users/{userID}/snapshots.
func (h *Handler) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	latest, err := h.svc.Snapshots.Latest(ctx, userID)
	if err != nil {
		h.fail(ctx, w, "load snapshots failed", dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "load snapshots"), "user_id", userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, latest)
}

// HandlePutMilestones handles PUT /users/{userID}/snapshots/milestones.
// Snapshots are validated against the catalog before they are stored.
func (h *Handler) HandlePutMilestones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[MilestonesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.svc.Catalog.ValidateSnapshotSet(req.Snapshots); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Snapshots.PutMilestones(ctx, userID, req.Snapshots); err != nil {
		h.fail(ctx, w, "store milestones failed", dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "store milestones"), "user_id", userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePutSignals handles PUT /users/{userID}/snapshots/signals.
func (h *Handler) HandlePutSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SignalsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.svc.Catalog.ValidateSignals(req.Signals); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Snapshots.PutSignals(ctx, userID, req.Signals); err != nil {
		h.fail(ctx, w, "store signals failed", dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "store signals"), "user_id", userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvaluateSignals handles POST /users/{userID}/signals/evaluate and
// returns the gates opened by this evaluation.
func (h *Handler) HandleEvaluateSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SignalsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	opened, err := h.svc.Gates.EvaluateSignals(ctx, userID, req.Signals)
	if err != nil {
		h.fail(ctx, w, "evaluate signals failed", err, "user_id", userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"opened": nonNil(opened)})
}

// HandleListGates handles GET /users/{userID}/gates. Fulfilled gates are
// included when include_fulfilled=true.
func (h *Handler) HandleListGates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	all := false
	if v := r.URL.Query().Get("include_fulfilled"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "include_fulfilled must be a boolean"))
			return
		}
		all = parsed
	}
	gates, err := h.svc.Gates.ListGates(ctx, userID, all)
	if err != nil {
		h.fail(ctx, w, "list gates failed", err, "user_id", userID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"gates": nonNil(gates)})
}

// HandleFeatureAccess handles GET /users/{userID}/features/{feature}.
func (h *Handler) HandleFeatureAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	feature, err := domain.ParseFeature(chi.URLParam(r, "feature"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dec, err := h.svc.Access.Check(ctx, userID, feature)
	if err != nil {
		h.fail(ctx, w, "feature access check failed", err, "user_id", userID, "feature", feature)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dec)
}

// HandleFulfillAction handles POST /users/{userID}/actions.
func (h *Handler) HandleFulfillAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ActionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	fulfilled, err := h.svc.Gates.FulfillByAction(ctx, userID, req.ParsedAction())
	if err != nil {
		h.fail(ctx, w, "fulfill action failed", err, "user_id", userID, "action", req.ParsedAction())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"fulfilled": fulfilled})
}

// HandleRunMaintenance handles POST /operator/maintenance.
func (h *Handler) HandleRunMaintenance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	report, err := h.svc.Maintenance.RunOnce(ctx)
	if err != nil {
		h.fail(ctx, w, "maintenance pass failed", err)
		return
	}
	h.logger.InfoContext(ctx, "maintenance pass triggered",
		"request_id", requestcontext.RequestID(ctx),
		"users", report.Users,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	id, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.UserID{}, false
	}
	return id, true
}

func (h *Handler) userAndDomain(w http.ResponseWriter, r *http.Request) (domain.UserID, domain.DomainID, bool) {
	userID, ok := h.userID(w, r)
	if !ok {
		return domain.UserID{}, "", false
	}
	domainID, err := domain.ParseDomainID(chi.URLParam(r, "domain"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.UserID{}, "", false
	}
	return userID, domainID, true
}

// fail logs server-side failures at error level and client mistakes at
// debug, then writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.DebugContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func parseFilter(r *http.Request) (eventlog.Filter, error) {
	q := r.URL.Query()
	var f eventlog.Filter
	if v := q.Get("domain"); v != "" {
		id, err := domain.ParseDomainID(v)
		if err != nil {
			return f, err
		}
		f.Domain = id
	}
	for _, v := range q["kind"] {
		k := eventlog.Kind(v)
		if !k.IsValid() {
			return f, dErrors.New(dErrors.CodeInvalidInput, "unknown event kind: "+v)
		}
		f.Kinds = append(f.Kinds, k)
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, dErrors.New(dErrors.CodeInvalidInput, "since must be an RFC 3339 timestamp")
		}
		f.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			return f, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 1000")
		}
		f.Limit = n
	}
	return f, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var _ Catalog = (*registry.Registry)(nil)
