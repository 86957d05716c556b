// Package app builds the services shared by the server and the operator CLI
// from configuration.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"misiones/internal/notification/reminder"
	"misiones/internal/notification/store/outbox"
	"misiones/internal/notification/worker"
	"misiones/internal/platform/config"
	"misiones/internal/platform/postgres"
	"misiones/internal/platform/sitetx"
	"misiones/internal/registration"
	regmetrics "misiones/internal/registration/metrics"
	regservice "misiones/internal/registration/service"
	"misiones/internal/registration/store/ledger"
	"misiones/internal/site"
	sitemetrics "misiones/internal/site/metrics"
	siteservice "misiones/internal/site/service"
	sitestore "misiones/internal/site/store/site"
	audit "misiones/pkg/platform/audit"
	"misiones/pkg/platform/audit/publisher"
	auditmemory "misiones/pkg/platform/audit/store/memory"
	auditpostgres "misiones/pkg/platform/audit/store/postgres"
	"misiones/pkg/platform/retry"
)

// RegistrationStore is what the registration service and the reminder sweep
// read and write.
type RegistrationStore interface {
	regservice.Ledger
	siteservice.ConfirmedCounter
	reminder.RegistrationLister
}

// Outbox is the notification outbox as the worker and services see it.
type Outbox interface {
	regservice.NoticeEnqueuer
	worker.Outbox
	Pending(ctx context.Context) (int, error)
}

// Stores groups the storage backends for one process. DB is nil when running
// on in-memory stores.
type Stores struct {
	DB            *sql.DB
	Sites         siteservice.SiteStore
	Registrations RegistrationStore
	Outbox        Outbox
	Audit         audit.Store
	Tx            regservice.SiteTx
}

// OpenStores selects Postgres when DATABASE_URL is set and in-memory stores
// otherwise. Migrations run when migrate is true.
func OpenStores(ctx context.Context, cfg config.Config, logger *slog.Logger, migrate bool) (*Stores, error) {
	if !cfg.UsesPostgres() {
		logger.WarnContext(ctx, "DATABASE_URL not set; using in-memory stores")
		return &Stores{
			Sites:         sitestore.NewInMemory(),
			Registrations: ledger.NewInMemory(),
			Outbox:        outbox.NewInMemory(),
			Audit:         auditmemory.NewInMemoryStore(),
			Tx:            sitetx.NewMemory(cfg.Database.TxTimeout),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := postgres.MigrateUp(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Stores{
		DB:            db,
		Sites:         sitestore.NewPostgres(db),
		Registrations: ledger.NewPostgres(db),
		Outbox:        outbox.NewPostgres(db),
		Audit:         auditpostgres.New(db),
		Tx:            sitetx.NewPostgres(db, cfg.Database.TxTimeout, cfg.Database.LockTimeout),
	}, nil
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Ping checks the database, if any.
func (s *Stores) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.PingContext(ctx)
}

// Services are the wired domain services.
type Services struct {
	Sites         *site.Service
	Registrations *registration.Service
	Audit         *publisher.Publisher
}

// NewServices wires the site and registration services over stores. Metrics
// are registered with reg; nil leaves them unregistered.
func NewServices(cfg config.Config, stores *Stores, logger *slog.Logger, reg prometheus.Registerer) (*Services, error) {
	policy, err := regservice.ParseDuplicatePolicy(cfg.Registration.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	retryPolicy := retry.Policy{
		MaxAttempts:     cfg.Registration.RetryAttempts,
		InitialInterval: cfg.Registration.RetryInitialInterval,
		MaxInterval:     10 * cfg.Registration.RetryInitialInterval,
	}
	auditOpts := []publisher.Option{publisher.WithLogger(logger)}
	if n := cfg.Registration.AuditAsyncBuffer; n > 0 {
		if stores.DB != nil {
			logger.Warn("AUDIT_ASYNC_BUFFER ignored with Postgres; audit appends stay transactional")
		} else {
			auditOpts = append(auditOpts, publisher.WithAsyncBuffer(n))
		}
	}
	auditPublisher := publisher.NewPublisher(stores.Audit, auditOpts...)

	sites := site.NewService(stores.Sites, stores.Registrations, stores.Tx,
		siteservice.WithLogger(logger),
		siteservice.WithAuditPublisher(auditPublisher),
		siteservice.WithMetrics(sitemetrics.New(reg)),
		siteservice.WithOccupancyCache(cfg.Server.OccupancyCacheTTL),
		siteservice.WithRetryPolicy(retryPolicy),
	)
	registrations := registration.NewService(stores.Registrations, stores.Sites, stores.Tx,
		regservice.WithLogger(logger),
		regservice.WithAuditPublisher(auditPublisher),
		regservice.WithMetrics(regmetrics.New(reg)),
		regservice.WithNoticeEnqueuer(stores.Outbox),
		regservice.WithOccupancyInvalidator(sites),
		regservice.WithRetryPolicy(retryPolicy),
		regservice.WithDuplicatePolicy(policy),
	)
	return &Services{Sites: sites, Registrations: registrations, Audit: auditPublisher}, nil
}

// Close flushes the audit publisher.
func (s *Services) Close() {
	if s.Audit != nil {
		s.Audit.Close()
	}
}
