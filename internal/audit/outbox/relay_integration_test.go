//go:build integration

package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"freightdesk/internal/audit/models"
	"freightdesk/internal/audit/store"
	"freightdesk/internal/platform/config"
	"freightdesk/internal/platform/kafka"
	"freightdesk/pkg/domain"
	"freightdesk/pkg/testutil"
	"freightdesk/pkg/testutil/containers"
)

type RedpandaRelaySuite struct {
	suite.Suite
	cfg      config.KafkaConfig
	producer *kafka.Producer
}

func TestRedpandaRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedpandaRelaySuite))
}

func (s *RedpandaRelaySuite) SetupSuite() {
	rp := containers.GetManager().GetRedpanda(s.T())
	s.cfg = config.KafkaConfig{Brokers: []string{rp.Broker}, Topic: "freightdesk.audit.it", Partitions: 1, ReplicationFactor: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(kafka.EnsureTopic(ctx, s.cfg))
	s.Require().NoError(kafka.EnsureTopic(ctx, s.cfg), "topic creation is idempotent")

	p, err := kafka.NewProducer(s.cfg)
	s.Require().NoError(err)
	s.producer = p
}

func (s *RedpandaRelaySuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RedpandaRelaySuite) TestPublishesPendingRowsInOrder() {
	ctx := context.Background()
	queue := store.NewOutbox(testutil.NewSQLiteDB(s.T()))
	for i, key := range []string{"BK-1", "BK-2", "BK-1"} {
		s.Require().NoError(queue.Enqueue(ctx, models.OutboxMessage{
			EntryID:   domain.NewEntryID(time.UnixMilli(int64(1_000 + i))),
			Key:       key,
			Payload:   []byte(`{"entity_id":"` + key + `"}`),
			CreatedAt: int64(1_000 + i),
		}))
	}

	relay := NewRelay(queue, s.producer, WithBatchSize(10))
	n, err := relay.Tick(ctx)
	s.Require().NoError(err)
	s.Equal(3, n)

	pending, err := queue.Pending(ctx)
	s.Require().NoError(err)
	s.Zero(pending)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.cfg.Brokers...),
		kgo.ConsumeTopics(s.cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	var keys []string
	for len(keys) < 3 && pollCtx.Err() == nil {
		fetches := consumer.PollFetches(pollCtx)
		fetches.EachRecord(func(r *kgo.Record) {
			keys = append(keys, string(r.Key))
			s.Equal("application/json", header(r, "content-type"))
			s.NotEmpty(header(r, "entry_id"))
		})
	}
	s.Equal([]string{"BK-1", "BK-2", "BK-1"}, keys)
}

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
