package sender

//go:generate mockgen -source=sender.go -destination=mocks/mocks.go -package=mocks Sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"misiones/internal/notification/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/circuit"
)

func promotedNotice() *models.Notice {
	regID := id.NewRegistrationID()
	return models.NewNotice(models.KindPromoted, models.PromotedDedupeKey(regID), regID, id.NewSiteID(),
		"San Javier", "Carla", "carla@example.com", nil, time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
}

type fakeMailClient struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeMailClient) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "{}"}, nil
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var results kgo.ProduceResults
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

type failingSender struct{ err error }

func (f failingSender) Send(context.Context, *models.Notice) error { return f.err }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRender(t *testing.T) {
	n := promotedNotice()
	subject, body := Render(n)
	assert.Contains(t, subject, "San Javier")
	assert.Contains(t, body, "Carla")

	n.Kind = models.KindDocumentsMissing
	n.Details = map[string]string{"missing": "medical, signature"}
	_, body = Render(n)
	assert.Contains(t, body, "medical, signature")
}

func TestSendGrid(t *testing.T) {
	t.Run("sends a single email", func(t *testing.T) {
		client := &fakeMailClient{status: 202}
		s := NewSendGrid("key", "inscripciones@misiones.example", "Misiones", discard(), WithMailClient(client))

		require.NoError(t, s.Send(context.Background(), promotedNotice()))
		require.Len(t, client.sent, 1)
		msg := client.sent[0]
		assert.Equal(t, "inscripciones@misiones.example", msg.From.Address)
		require.Len(t, msg.Personalizations, 1)
		assert.Equal(t, "carla@example.com", msg.Personalizations[0].To[0].Address)
	})

	t.Run("error status is a failure", func(t *testing.T) {
		client := &fakeMailClient{status: 500}
		s := NewSendGrid("key", "from@example.com", "Misiones", discard(), WithMailClient(client))
		require.Error(t, s.Send(context.Background(), promotedNotice()))
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
		client := &fakeMailClient{err: errors.New("connection reset")}
		breaker := circuit.New("sendgrid",
			circuit.WithFailureThreshold(2),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return now }),
		)
		s := NewSendGrid("key", "from@example.com", "Misiones", discard(), WithMailClient(client), WithBreaker(breaker))

		require.Error(t, s.Send(context.Background(), promotedNotice()))
		require.Error(t, s.Send(context.Background(), promotedNotice()))
		assert.True(t, breaker.IsOpen())

		err := s.Send(context.Background(), promotedNotice())
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Len(t, client.sent, 2)

		now = now.Add(2 * time.Minute)
		client.err = nil
		client.status = 202
		require.NoError(t, s.Send(context.Background(), promotedNotice()))
		assert.False(t, breaker.IsOpen())
	})
}

func TestKafka(t *testing.T) {
	producer := &fakeProducer{}
	k := NewKafka(producer, "misiones.notices")
	n := promotedNotice()

	require.NoError(t, k.Send(context.Background(), n))
	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "misiones.notices", rec.Topic)
	assert.Equal(t, []byte(n.RegistrationID.String()), rec.Key)

	var msg noticeMessage
	require.NoError(t, json.Unmarshal(rec.Value, &msg))
	assert.Equal(t, models.KindPromoted, msg.Kind)
	assert.Equal(t, "carla@example.com", msg.RecipientEmail)

	producer.err = errors.New("not leader for partition")
	require.Error(t, k.Send(context.Background(), n))
}

func TestFanoutAndLog(t *testing.T) {
	var buf bytes.Buffer
	logSender := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))
	producer := &fakeProducer{}

	f := Fanout{logSender, NewKafka(producer, "t")}
	require.NoError(t, f.Send(context.Background(), promotedNotice()))
	assert.Contains(t, buf.String(), "notice delivered to log")
	assert.Len(t, producer.records, 1)
	assert.Equal(t, "log+kafka", Describe(f))

	boom := errors.New("boom")
	f = Fanout{logSender, failingSender{err: boom}}
	require.ErrorIs(t, f.Send(context.Background(), promotedNotice()), boom)
}
