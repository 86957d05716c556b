// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	pkgstrings "misiones/pkg/platform/strings"
)

// Config is the full process configuration.
type Config struct {
	Environment   string `env:"APP_ENV" envDefault:"development"`
	Server        Server
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Registration  RegistrationConfig
	Notifications NotificationConfig
	Reminders     ReminderConfig
	Tracing       TracingConfig
	Log           LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `env:"MISIONES_ADDR" envDefault:":8080"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	OccupancyCacheTTL time.Duration `env:"OCCUPANCY_CACHE_TTL" envDefault:"2s"`
	IdempotencyTTL    time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	SitesSeedFile     string        `env:"SITES_SEED_FILE"`
}

// DatabaseConfig selects Postgres. An empty URL runs on in-memory stores.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout       time.Duration `env:"DB_TX_TIMEOUT" envDefault:"5s"`
	LockTimeout     time.Duration `env:"DB_LOCK_TIMEOUT" envDefault:"2s"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// RedisConfig enables the shared idempotency-key store when URL is set.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type AuthConfig struct {
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"misiones"`
	TokenTTL      time.Duration `env:"JWT_TOKEN_TTL" envDefault:"12h"`
}

type RegistrationConfig struct {
	// DuplicatePolicy is "reject" or "allow".
	DuplicatePolicy      string        `env:"DUPLICATE_POLICY" envDefault:"reject"`
	RetryAttempts        int           `env:"TX_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInitialInterval time.Duration `env:"TX_RETRY_INITIAL_INTERVAL" envDefault:"25ms"`

	// AuditAsyncBuffer queues audit events for a background writer. Only the
	// in-memory backend honours it; Postgres appends join the site transaction.
	AuditAsyncBuffer int `env:"AUDIT_ASYNC_BUFFER" envDefault:"0"`
}

type NotificationConfig struct {
	PollInterval   time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"5s"`
	BatchSize      int           `env:"NOTIFY_BATCH_SIZE" envDefault:"20"`
	MaxAttempts    int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"8"`
	SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
	FromEmail      string        `env:"NOTIFY_FROM_EMAIL" envDefault:"inscripciones@misiones.example"`
	FromName       string        `env:"NOTIFY_FROM_NAME" envDefault:"Misiones"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic     string        `env:"KAFKA_NOTICES_TOPIC" envDefault:"misiones.notices"`

	// KafkaCreateTopic creates the notices topic with broker defaults at startup.
	KafkaCreateTopic bool `env:"KAFKA_CREATE_TOPIC" envDefault:"true"`
}

type ReminderConfig struct {
	Enabled           bool   `env:"REMINDERS_ENABLED" envDefault:"true"`
	Schedule          string `env:"REMINDER_SCHEDULE" envDefault:"0 0 9 * * *"`
	RequiredDocuments string `env:"REMINDER_REQUIRED_DOCUMENTS" envDefault:"consent,medical,signature"`
}

// RequiredDocumentKinds returns the configured kinds, lower-cased and deduped.
func (r ReminderConfig) RequiredDocumentKinds() []string {
	return pkgstrings.SplitList(r.RequiredDocuments, true)
}

type TracingConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"misiones"`
	Insecure    bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// FromMap builds a Config from an explicit variable set, ignoring the process
// environment.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Notifications.KafkaBrokers = pkgstrings.DedupeAndTrim(cfg.Notifications.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Registration.DuplicatePolicy {
	case "reject", "allow":
	default:
		errs = append(errs, fmt.Errorf("DUPLICATE_POLICY must be reject or allow, got %q", c.Registration.DuplicatePolicy))
	}
	if c.Registration.RetryAttempts < 1 || c.Registration.RetryAttempts > 10 {
		errs = append(errs, fmt.Errorf("TX_RETRY_ATTEMPTS must be between 1 and 10, got %d", c.Registration.RetryAttempts))
	}
	if c.Registration.AuditAsyncBuffer < 0 {
		errs = append(errs, errors.New("AUDIT_ASYNC_BUFFER must not be negative"))
	}
	if c.Database.TxTimeout <= 0 {
		errs = append(errs, errors.New("DB_TX_TIMEOUT must be positive"))
	}
	if c.Notifications.BatchSize < 1 {
		errs = append(errs, errors.New("NOTIFY_BATCH_SIZE must be positive"))
	}
	if c.Notifications.PollInterval <= 0 {
		errs = append(errs, errors.New("NOTIFY_POLL_INTERVAL must be positive"))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	}
	if c.Environment == "production" && c.Auth.JWTSigningKey == "dev-secret-key-change-in-production" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be overridden in production"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// UsesPostgres reports whether durable stores are configured.
func (c Config) UsesPostgres() bool { return c.Database.URL != "" }
