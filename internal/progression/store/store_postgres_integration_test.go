//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ascent/internal/progression/models"
	"ascent/internal/progression/store"
	"ascent/pkg/domain"
	"ascent/pkg/platform/sentinel"
	txcontext "ascent/pkg/platform/tx"
	"ascent/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "domain_states"))
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	userID := domain.UserID(uuid.New())
	resume := s.now.Add(48 * time.Hour)

	st := models.NewDomainState(userID, "sleep", s.now)
	st.Suspend(models.CauseCrisis, "rest", &resume, s.now)
	s.Require().NoError(s.store.Save(ctx, st))
	s.EqualValues(1, st.Version)

	got, err := s.store.Get(ctx, userID, "sleep")
	s.Require().NoError(err)
	s.Equal(models.CauseCrisis, got.SuspensionCause)
	s.Require().NotNil(got.ResumeAfter)
	s.True(resume.Equal(*got.ResumeAfter))
	s.EqualValues(1, got.Version)

	got.Resume(s.now)
	s.Require().NoError(s.store.Save(ctx, got))
	s.EqualValues(2, got.Version)

	_, err = s.store.Get(ctx, userID, "focus")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestVersionConflict() {
	ctx := context.Background()
	userID := domain.UserID(uuid.New())
	s.Require().NoError(s.store.Save(ctx, models.NewDomainState(userID, "focus", s.now)))

	s.Run("duplicate insert", func() {
		s.ErrorIs(s.store.Save(ctx, models.NewDomainState(userID, "focus", s.now)), sentinel.ErrConflict)
	})

	s.Run("concurrent updates from the same read promote once", func() {
		base, err := s.store.Get(ctx, userID, "focus")
		s.Require().NoError(err)

		const writers = 20
		var (
			wg      sync.WaitGroup
			wins    atomic.Int32
			clashes atomic.Int32
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				st := base.Clone()
				st.Promote(s.now.Add(time.Hour))
				switch err := s.store.Save(ctx, st); err {
				case nil:
					wins.Add(1)
				case sentinel.ErrConflict:
					clashes.Add(1)
				}
			}()
		}
		wg.Wait()
		s.EqualValues(1, wins.Load())
		s.EqualValues(writers-1, clashes.Load())

		got, err := s.store.Get(ctx, userID, "focus")
		s.Require().NoError(err)
		s.Equal(1, got.CurrentLevel)
	})
}

func (s *PostgresStoreSuite) TestGetLocksInsideTransaction() {
	ctx := context.Background()
	userID := domain.UserID(uuid.New())
	s.Require().NoError(s.store.Save(ctx, models.NewDomainState(userID, "movement", s.now)))

	err := txcontext.RunPostgres(ctx, s.postgres.DB, time.Second, func(ctx context.Context) error {
		st, err := s.store.Get(ctx, userID, "movement")
		if err != nil {
			return err
		}
		st.AdvancementScore = 10
		st.UpdatedAt = s.now
		return s.store.Save(ctx, st)
	})
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, userID, "movement")
	s.Require().NoError(err)
	s.EqualValues(10, got.AdvancementScore)
	s.EqualValues(2, got.Version)
}

func (s *PostgresStoreSuite) TestDueResumptions() {
	ctx := context.Background()
	due, notDue := domain.UserID(uuid.New()), domain.UserID(uuid.New())
	past, future := s.now.Add(-time.Hour), s.now.Add(time.Hour)

	st := models.NewDomainState(due, "sleep", s.now)
	st.Suspend(models.CauseManual, "", &past, s.now)
	s.Require().NoError(s.store.Save(ctx, st))

	st = models.NewDomainState(notDue, "sleep", s.now)
	st.Suspend(models.CauseManual, "", &future, s.now)
	s.Require().NoError(s.store.Save(ctx, st))

	got, err := s.store.ListDueResumptions(ctx, s.now)
	s.Require().NoError(err)
	s.Equal([]domain.UserID{due}, got)

	users, err := s.store.ListUsers(ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.UserID{due, notDue}, users)
}
