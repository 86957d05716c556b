package app

import (
	"context"
	"log/slog"
	"time"

	"misiones/internal/notification/metrics"
	"misiones/internal/notification/reminder"
	"misiones/internal/notification/sender"
	"misiones/internal/platform/config"
)

const topicSetupTimeout = 10 * time.Second

// NewSender picks the configured transports. With none configured notices
// go to the log. The returned close func releases transport clients.
func NewSender(ctx context.Context, cfg config.NotificationConfig, logger *slog.Logger, m *metrics.Metrics) (sender.Sender, func(), error) {
	var senders sender.Fanout
	closers := []func(){}
	if cfg.SendGridAPIKey != "" {
		senders = append(senders, sender.NewSendGrid(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName, logger,
			sender.WithSendGridMetrics(m)))
	}
	if len(cfg.KafkaBrokers) > 0 {
		client, err := sender.NewKafkaClient(cfg.KafkaBrokers, "misiones")
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, client.Close)
		if cfg.KafkaCreateTopic {
			setupCtx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
			err := sender.EnsureTopic(setupCtx, client, cfg.KafkaTopic, -1, -1)
			cancel()
			if err != nil {
				logger.WarnContext(ctx, "notices topic not verified", "topic", cfg.KafkaTopic, "error", err)
			}
		}
		senders = append(senders, sender.NewKafka(client, cfg.KafkaTopic))
	}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	switch len(senders) {
	case 0:
		return sender.NewLogSender(logger), closeAll, nil
	case 1:
		return senders[0], closeAll, nil
	default:
		return senders, closeAll, nil
	}
}

// NewSweeper builds the document reminder sweep over stores.
func NewSweeper(cfg config.ReminderConfig, stores *Stores, logger *slog.Logger) (*reminder.Sweeper, error) {
	return reminder.NewSweeper(stores.Registrations, stores.Sites, stores.Outbox, cfg.RequiredDocumentKinds(), logger)
}
