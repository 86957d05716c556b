package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"misiones/internal/app"
	httpapi "misiones/internal/http"
	jwttoken "misiones/internal/jwt_token"
	notifymetrics "misiones/internal/notification/metrics"
	"misiones/internal/notification/reminder"
	"misiones/internal/notification/sender"
	"misiones/internal/notification/worker"
	"misiones/internal/platform/config"
	"misiones/internal/platform/httpserver"
	"misiones/internal/platform/idempotency"
	"misiones/internal/platform/logger"
	platformmetrics "misiones/internal/platform/metrics"
	"misiones/internal/platform/redis"
	"misiones/internal/platform/tracing"
	"misiones/internal/registration"
	reghandler "misiones/internal/registration/handler"
	"misiones/internal/site"
	"misiones/internal/site/seed"
)

// main wires dependencies, serves HTTP and runs the notification worker and
// reminder scheduler until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "misiones:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	stores, err := app.OpenStores(ctx, cfg, log, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer stores.Close()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	services, err := app.NewServices(cfg, stores, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer services.Close()

	if cfg.Server.SitesSeedFile != "" {
		if err := seedSites(ctx, cfg.Server.SitesSeedFile, services.Sites, log); err != nil {
			return err
		}
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	var idemStore idempotency.Store = idempotency.NewMemoryStore(10 * time.Minute)
	readyChecks := []httpapi.Check{{Name: "database", Ping: stores.Ping}}
	if redisClient != nil {
		idemStore = idempotency.NewRedisStore(redisClient.Client)
		readyChecks = append(readyChecks, httpapi.Check{Name: "redis", Ping: redisClient.Health})
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:  log,
		Metrics: platformmetrics.New(prometheus.DefaultRegisterer),
		Sites:   site.NewHandler(services.Sites, log, validator),
		Registrations: registration.NewHandler(services.Registrations, log, validator,
			reghandler.WithIdempotency(idempotency.Middleware(idemStore, cfg.Server.IdempotencyTTL, log)),
			reghandler.WithEventLog(services.Audit)),
		RequestTimeout: cfg.Server.RequestTimeout,
		ReadyChecks:    readyChecks,
	})

	nMetrics := notifymetrics.New(prometheus.DefaultRegisterer)
	notifier, closeSender, err := app.NewSender(ctx, cfg.Notifications, log, nMetrics)
	if err != nil {
		return err
	}
	defer closeSender()
	notices := worker.New(stores.Outbox, notifier, worker.Config{
		PollInterval: cfg.Notifications.PollInterval,
		BatchSize:    cfg.Notifications.BatchSize,
		MaxAttempts:  cfg.Notifications.MaxAttempts,
	}, log, worker.WithMetrics(nMetrics))

	var reminders *reminder.Scheduler
	if cfg.Reminders.Enabled {
		sweeper, err := app.NewSweeper(cfg.Reminders, stores, log)
		if err != nil {
			return err
		}
		reminders, err = reminder.NewScheduler(cfg.Reminders.Schedule, sweeper, log)
		if err != nil {
			return err
		}
	}

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting misiones",
			"addr", cfg.Server.Addr,
			"postgres", cfg.UsesPostgres(),
			"redis", redisClient != nil,
			"sender", sender.Describe(notifier),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return notices.Run(gctx)
	})
	if reminders != nil {
		g.Go(func() error {
			return reminders.Run(gctx)
		})
	}
	return g.Wait()
}

func seedSites(ctx context.Context, path string, sites seed.SiteCreator, log *slog.Logger) error {
	reqs, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	res, err := seed.Apply(ctx, sites, reqs, log)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "site seed applied", "created", res.Created, "existing", res.Existing)
	return nil
}
