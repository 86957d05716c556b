package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := FromMap(map[string]string{})
	s.Require().NoError(err)

	s.Equal(":8080", cfg.Server.Addr)
	s.Equal("reject", cfg.Registration.DuplicatePolicy)
	s.Equal(3, cfg.Registration.RetryAttempts)
	s.Equal(5*time.Second, cfg.Database.TxTimeout)
	s.Equal("0 0 9 * * *", cfg.Reminders.Schedule)
	s.Equal([]string{"consent", "medical", "signature"}, cfg.Reminders.RequiredDocumentKinds())
	s.False(cfg.UsesPostgres())
	s.Empty(cfg.Notifications.KafkaBrokers)
	s.Zero(cfg.Registration.AuditAsyncBuffer)
}

func (s *ConfigSuite) TestOverrides() {
	cfg, err := FromMap(map[string]string{
		"DATABASE_URL":        "postgres://misiones@localhost/misiones?sslmode=disable",
		"DUPLICATE_POLICY":    "allow",
		"KAFKA_BROKERS":       " broker-1:9092,broker-2:9092,broker-1:9092",
		"OCCUPANCY_CACHE_TTL": "0s",
		"LOG_FORMAT":          "text",
	})
	s.Require().NoError(err)

	s.True(cfg.UsesPostgres())
	s.Equal("allow", cfg.Registration.DuplicatePolicy)
	s.Equal([]string{"broker-1:9092", "broker-2:9092"}, cfg.Notifications.KafkaBrokers)
	s.Zero(cfg.Server.OccupancyCacheTTL)
	s.Equal("text", cfg.Log.Format)
}

func (s *ConfigSuite) TestValidation() {
	s.Run("unknown duplicate policy", func() {
		_, err := FromMap(map[string]string{"DUPLICATE_POLICY": "waitlist"})
		s.Require().Error(err)
		s.Contains(err.Error(), "DUPLICATE_POLICY")
	})

	s.Run("retry attempts out of range", func() {
		_, err := FromMap(map[string]string{"TX_RETRY_ATTEMPTS": "0"})
		s.Require().Error(err)
		s.Contains(err.Error(), "TX_RETRY_ATTEMPTS")
	})

	s.Run("production requires a real signing key", func() {
		_, err := FromMap(map[string]string{"APP_ENV": "production"})
		s.Require().Error(err)
		s.Contains(err.Error(), "JWT_SIGNING_KEY")
	})

	s.Run("negative audit buffer", func() {
		_, err := FromMap(map[string]string{"AUDIT_ASYNC_BUFFER": "-1"})
		s.Require().Error(err)
		s.Contains(err.Error(), "AUDIT_ASYNC_BUFFER")
	})

	s.Run("malformed duration", func() {
		_, err := FromMap(map[string]string{"DB_TX_TIMEOUT": "soon"})
		s.Require().Error(err)
	})
}
