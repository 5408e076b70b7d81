package service

import (
	"context"
	"time"

	"ascent/internal/eventlog"
	"ascent/internal/progression/models"
	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
	"ascent/pkg/platform/audit"
	"ascent/pkg/requestcontext"
)

// Suspend freezes the targeted domains. Entering an external suspension also
// rolls the level back one step; re-suspending an already externally
// suspended domain overwrites the fields without a second rollback.
func (s *Service) Suspend(ctx context.Context, userID domain.UserID, target models.Target, cause models.SuspensionCause, reason string, resumeAfter *time.Time) (_ []*models.DomainState, err error) {
	ctx, span := s.startSpan(ctx, "suspend", userID)
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveOperation("suspend", time.Now())

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !cause.IsValid() || cause == models.CauseNone {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid suspension cause: "+string(cause))
	}
	now := requestcontext.Now(ctx)
	if resumeAfter != nil && !resumeAfter.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "resume_after must be in the future")
	}
	ids, err := s.resolveTarget(target)
	if err != nil {
		return nil, err
	}

	var (
		out        []*models.DomainState
		rolledBack []rollback
	)
	err = s.tx.RunInTx(ctx, userID, func(ctx context.Context, stores Stores) error {
		out = out[:0]
		rolledBack = rolledBack[:0]
		for _, id := range ids {
			d, err := s.catalog.Domain(id)
			if err != nil {
				return err
			}
			st, err := getOrNew(ctx, stores.States, userID, id, now)
			if err != nil {
				return err
			}
			if err := st.Validate(d.MaxLevel()); err != nil {
				return err
			}

			entering := !(st.Suspended && st.SuspensionCause == models.CauseExternal)
			if cause == models.CauseExternal && entering {
				from := st.CurrentLevel
				if st.Rollback(now) {
					if _, err := stores.Events.Append(ctx, &eventlog.Event{
						UserID:    userID,
						Kind:      eventlog.KindRollback,
						Domain:    id,
						FromLevel: from,
						ToLevel:   st.CurrentLevel,
						At:        now,
						Cause:     string(cause),
						Reason:    reason,
					}); err != nil {
						return err
					}
					rolledBack = append(rolledBack, rollback{domain: id, from: from, to: st.CurrentLevel})
				}
			}

			st.Suspend(cause, reason, resumeAfter, now)
			if err := stores.States.Save(ctx, st); err != nil {
				return err
			}
			if _, err := stores.Events.Append(ctx, &eventlog.Event{
				UserID:    userID,
				Kind:      eventlog.KindSuspension,
				Domain:    id,
				FromLevel: st.CurrentLevel,
				ToLevel:   st.CurrentLevel,
				At:        now,
				Cause:     string(cause),
				Reason:    reason,
			}); err != nil {
				return err
			}
			out = append(out, st)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "suspend")
	}

	for _, rb := range rolledBack {
		s.metrics.IncRollback(string(rb.domain))
		audit.Log(ctx, s.logger, audit.EventRolledBack,
			"user_id", userID,
			"domain", rb.domain,
			"from_level", rb.from,
			"to_level", rb.to,
		)
	}
	for _, st := range out {
		s.metrics.IncSuspension(string(st.Domain), string(cause))
		audit.Log(ctx, s.logger, audit.EventSuspended,
			"user_id", userID,
			"domain", st.Domain,
			"cause", cause,
			"timed", resumeAfter != nil,
		)
	}
	return out, nil
}

// Resume lifts the suspension on the targeted domains regardless of cause.
// Domains that are not suspended are left untouched. The returned states are
// the ones that actually resumed.
func (s *Service) Resume(ctx context.Context, userID domain.UserID, target models.Target) (_ []*models.DomainState, err error) {
	ctx, span := s.startSpan(ctx, "resume", userID)
	defer func() { endSpan(span, err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ids, err := s.resolveTarget(target)
	if err != nil {
		return nil, err
	}
	return s.resume(ctx, userID, ids, false)
}

// CheckTimedResumptions resumes exactly the domains whose ResumeAfter has
// passed and returns their ids.
func (s *Service) CheckTimedResumptions(ctx context.Context, userID domain.UserID) (_ []domain.DomainID, err error) {
	ctx, span := s.startSpan(ctx, "check_timed_resumptions", userID)
	defer func() { endSpan(span, err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	resumed, err := s.resume(ctx, userID, s.catalog.DomainIDs(), true)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.DomainID, 0, len(resumed))
	for _, st := range resumed {
		ids = append(ids, st.Domain)
	}
	return ids, nil
}

// DueResumptionUsers lists users holding at least one elapsed timed
// suspension.
func (s *Service) DueResumptionUsers(ctx context.Context, now time.Time) ([]domain.UserID, error) {
	users, err := s.states.ListDueResumptions(ctx, now)
	if err != nil {
		return nil, translate(err, "list due resumptions")
	}
	return users, nil
}

func (s *Service) resume(ctx context.Context, userID domain.UserID, ids []domain.DomainID, timed bool) ([]*models.DomainState, error) {
	now := requestcontext.Now(ctx)
	reason := "manual"
	if timed {
		reason = "timed"
	}

	var out []*models.DomainState
	err := s.tx.RunInTx(ctx, userID, func(ctx context.Context, stores Stores) error {
		out = out[:0]
		for _, id := range ids {
			d, err := s.catalog.Domain(id)
			if err != nil {
				return err
			}
			st, err := stores.States.Get(ctx, userID, id)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return err
			}
			if err := st.Validate(d.MaxLevel()); err != nil {
				return err
			}
			if !st.Suspended || (timed && !st.ResumeDue(now)) {
				continue
			}
			cause := st.SuspensionCause
			st.Resume(now)
			if err := stores.States.Save(ctx, st); err != nil {
				return err
			}
			if _, err := stores.Events.Append(ctx, &eventlog.Event{
				UserID:    userID,
				Kind:      eventlog.KindResumption,
				Domain:    id,
				FromLevel: st.CurrentLevel,
				ToLevel:   st.CurrentLevel,
				At:        now,
				Cause:     string(cause),
				Reason:    reason,
			}); err != nil {
				return err
			}
			out = append(out, st)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "resume")
	}

	for _, st := range out {
		s.metrics.IncResumption(string(st.Domain), timed)
		audit.Log(ctx, s.logger, audit.EventResumed,
			"user_id", userID,
			"domain", st.Domain,
			"timed", timed,
		)
	}
	return out, nil
}

// resolveTarget expands All to every registered domain, otherwise validates
// and dedupes the explicit list.
func (s *Service) resolveTarget(t models.Target) ([]domain.DomainID, error) {
	if t.All {
		return s.catalog.DomainIDs(), nil
	}
	if len(t.Domains) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "target names no domains")
	}
	seen := make(map[domain.DomainID]bool, len(t.Domains))
	out := make([]domain.DomainID, 0, len(t.Domains))
	for _, id := range t.Domains {
		if _, err := s.catalog.Domain(id); err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

type rollback struct {
	domain   domain.DomainID
	from, to int
}
