//go:build integration

package outbox_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"ascent/internal/eventlog"
	"ascent/internal/eventlog/outbox"
	"ascent/internal/platform/config"
	"ascent/internal/platform/kafka"
	"ascent/pkg/domain"
	"ascent/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	broker   *containers.RedpandaContainer
	cfg      config.KafkaConfig
	producer *kgo.Client
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	m := containers.GetManager()
	s.postgres = m.GetPostgres(s.T())
	s.broker = m.GetRedpanda(s.T())
	s.cfg = config.KafkaConfig{
		Brokers:           []string{s.broker.Broker},
		Topic:             "ascent.events.test",
		Partitions:        1,
		ReplicationFactor: 1,
	}

	client, err := kafka.NewClient(s.cfg)
	s.Require().NoError(err)
	s.producer = client

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(kafka.EnsureTopic(ctx, client, s.cfg))
	// a second call must tolerate the existing topic
	s.Require().NoError(kafka.EnsureTopic(ctx, client, s.cfg))
}

func (s *RelaySuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "progression_events", "outbox"))
}

func (s *RelaySuite) TestDrainPublishesKeyedByUser() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store := eventlog.NewPostgresStore(s.postgres.DB)
	userID := domain.UserID(uuid.New())
	at := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)
	for level := range 3 {
		_, err := store.Append(ctx, &eventlog.Event{
			UserID: userID, Kind: eventlog.KindPromotion, Domain: "movement",
			FromLevel: level, ToLevel: level + 1, At: at.Add(time.Duration(level) * time.Hour),
		})
		s.Require().NoError(err)
	}

	relay, err := outbox.New(outbox.NewPostgresSource(s.postgres.DB), outbox.NewKafkaPublisher(s.producer, s.cfg.Topic),
		outbox.WithBatchSize(2))
	s.Require().NoError(err)

	published, err := relay.Drain(ctx)
	s.Require().NoError(err)
	s.Equal(3, published)

	again, err := relay.Drain(ctx)
	s.Require().NoError(err)
	s.Zero(again, "processed entries are not claimed twice")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.cfg.Brokers...),
		kgo.ConsumeTopics(s.cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) < 3 {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) == userID.String() {
				records = append(records, r)
			}
		})
	}

	for i, r := range records {
		var e eventlog.Event
		s.Require().NoError(json.Unmarshal(r.Value, &e))
		s.Equal(i+1, e.ToLevel, "records arrive in commit order")
		s.Equal(map[string]string{
			"event_id":   e.ID.String(),
			"event_type": string(eventlog.KindPromotion),
		}, headers(r))
	}

	var unprocessed int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM outbox WHERE processed_at IS NULL`).Scan(&unprocessed))
	s.Zero(unprocessed)
}

func headers(r *kgo.Record) map[string]string {
	out := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
