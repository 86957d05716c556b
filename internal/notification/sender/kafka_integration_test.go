//go:build integration

package sender

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"misiones/pkg/testutil/containers"
)

type KafkaIntegrationSuite struct {
	suite.Suite
	broker string
	client *kgo.Client
}

func TestKafkaIntegrationSuite(t *testing.T) {
	suite.Run(t, new(KafkaIntegrationSuite))
}

func (s *KafkaIntegrationSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
	client, err := NewKafkaClient([]string{s.broker}, "misiones-test")
	s.Require().NoError(err)
	s.client = client
}

func (s *KafkaIntegrationSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *KafkaIntegrationSuite) TestEnsureTopicIsIdempotent() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.Require().NoError(EnsureTopic(ctx, s.client, "misiones.ensure", 3, 1))
	s.Require().NoError(EnsureTopic(ctx, s.client, "misiones.ensure", 3, 1))
}

func (s *KafkaIntegrationSuite) TestPublishedNoticeIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	const topic = "misiones.notices.it"
	s.Require().NoError(EnsureTopic(ctx, s.client, topic, 1, 1))

	notice := promotedNotice()
	s.Require().NoError(NewKafka(s.client, topic).Send(ctx, notice))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got *kgo.Record
	for got == nil {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "no record before deadline")
		fetches.EachRecord(func(r *kgo.Record) {
			if got == nil {
				got = r
			}
		})
	}

	s.Equal(notice.RegistrationID.String(), string(got.Key))
	var msg noticeMessage
	s.Require().NoError(json.Unmarshal(got.Value, &msg))
	s.Equal(notice.ID.String(), msg.NoticeID)
	s.Equal("carla@example.com", msg.RecipientEmail)

	headers := map[string]string{}
	for _, h := range got.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(notice.Kind), headers["kind"])
	s.Equal(notice.DedupeKey, headers["dedupe_key"])
}
