package outbox_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ascent/internal/eventlog/outbox"
	"ascent/internal/eventlog/outbox/mocks"
)

type RelaySuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	publisher *mocks.MockPublisher
	source    *outbox.InMemorySource
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.source = outbox.NewInMemorySource()
}

func entries(n int) []outbox.Entry {
	out := make([]outbox.Entry, n)
	for i := range out {
		out[i] = outbox.Entry{ID: string(rune('a' + i)), AggregateID: "user", EventType: "promotion"}
	}
	return out
}

type batchRecorder struct{ sizes []int }

func (b *batchRecorder) ObserveRelayBatch(n int, _ error) { b.sizes = append(b.sizes, n) }

func (s *RelaySuite) TestNew() {
	_, err := outbox.New(nil, s.publisher)
	s.Error(err)
	_, err = outbox.New(s.source, nil)
	s.Error(err)
}

func (s *RelaySuite) TestDrain() {
	ctx := context.Background()

	s.Run("publishes in batches until empty", func() {
		s.source.Enqueue(entries(5)...)
		rec := &batchRecorder{}
		relay, err := outbox.New(s.source, s.publisher, outbox.WithBatchSize(2), outbox.WithMetrics(rec))
		s.Require().NoError(err)

		var published []string
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, batch []outbox.Entry) error {
				for _, e := range batch {
					published = append(published, e.ID)
				}
				return nil
			}).Times(3)

		n, err := relay.Drain(ctx)
		s.Require().NoError(err)
		s.Equal(5, n)
		s.Equal([]string{"a", "b", "c", "d", "e"}, published)
		s.Equal([]int{2, 2, 1}, rec.sizes)
		s.Zero(s.source.Pending())
	})

	s.Run("failed publish keeps entries pending", func() {
		s.source.Enqueue(entries(3)...)
		relay, err := outbox.New(s.source, s.publisher, outbox.WithBatchSize(10))
		s.Require().NoError(err)

		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Len(3)).Return(errors.New("broker down"))

		n, err := relay.Drain(ctx)
		s.Error(err)
		s.Zero(n)
		s.Equal(3, s.source.Pending())

		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Len(3)).Return(nil)
		n, err = relay.Drain(ctx)
		s.Require().NoError(err)
		s.Equal(3, n)
	})

	s.Run("empty outbox publishes nothing", func() {
		relay, err := outbox.New(s.source, s.publisher)
		s.Require().NoError(err)
		n, err := relay.Drain(ctx)
		s.NoError(err)
		s.Zero(n)
	})
}

func (s *RelaySuite) TestRunStopsWithContext() {
	relay, err := outbox.New(s.source, s.publisher)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ErrorIs(relay.Run(ctx), context.Canceled)
}
