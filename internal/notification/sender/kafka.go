package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"misiones/internal/notification/models"
)

// Producer is the subset of *kgo.Client used to publish notices.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka publishes notices to a topic keyed by registration so consumers see
// a registration's notices in order.
type Kafka struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

// NewKafkaClient dials the brokers for NewKafka.
func NewKafkaClient(brokers []string, clientID string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic when it does not exist. Negative partitions or
// replication use the broker defaults.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	resp, err := kadm.NewClient(client).CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

type noticeMessage struct {
	NoticeID       string            `json:"notice_id"`
	Kind           models.Kind       `json:"kind"`
	RegistrationID string            `json:"registration_id"`
	SiteID         string            `json:"site_id"`
	SiteName       string            `json:"site_name"`
	RecipientName  string            `json:"recipient_name"`
	RecipientEmail string            `json:"recipient_email"`
	Details        map[string]string `json:"details,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (k *Kafka) Send(ctx context.Context, n *models.Notice) error {
	payload, err := json.Marshal(noticeMessage{
		NoticeID:       n.ID.String(),
		Kind:           n.Kind,
		RegistrationID: n.RegistrationID.String(),
		SiteID:         n.SiteID.String(),
		SiteName:       n.SiteName,
		RecipientName:  n.RecipientName,
		RecipientEmail: n.RecipientEmail,
		Details:        n.Details,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(n.RegistrationID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(n.Kind)},
			{Key: "dedupe_key", Value: []byte(n.DedupeKey)},
		},
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}
