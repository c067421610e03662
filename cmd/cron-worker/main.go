package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/quoteflow-backend/internal/bootstrap"
	"github.com/angelmondragon/quoteflow-backend/internal/cron"
	"github.com/angelmondragon/quoteflow-backend/internal/notifications"
	"github.com/angelmondragon/quoteflow-backend/pkg/config"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	"github.com/angelmondragon/quoteflow-backend/pkg/metrics"
	"github.com/angelmondragon/quoteflow-backend/pkg/migrate"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox"
	"github.com/angelmondragon/quoteflow-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/quoteflow-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	only := flag.String("jobs", "", "comma separated job names to run (default all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	signals, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create signal guard", err)
		os.Exit(1)
	}

	stack, err := bootstrap.NewStack(bootstrap.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Sequencer:  redisClient,
		Signals:    signals,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to wire workflow", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, stack)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	if *only != "" {
		registry, err = registry.Only(strings.Split(*only, ",")...)
		if err != nil {
			logg.Error(context.Background(), "invalid job selection", err)
			os.Exit(1)
		}
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker", envName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.LockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	go serveMetrics(ctx, logg, cfg.Cron.MetricsAddr)

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, stack *bootstrap.Stack) (*cron.Registry, error) {
	conn := dbClient.DB()
	var jobs []cron.Job

	expiry, err := cron.NewQuoteExpiryJob(cron.QuoteExpiryJobParams{Logger: logg, Quotes: stack.Workflow})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, expiry)

	deadline, err := cron.NewDeadlineJob(cron.DeadlineJobParams{
		Logger:     logg,
		Quotes:     stack.Workflow,
		Guard:      stack.Signals,
		WindowDays: cfg.Workflow.DeadlineWindowDays,
	})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, deadline)

	workload, err := cron.NewWorkloadJob(cron.WorkloadJobParams{
		Logger:   logg,
		Balancer: stack.Balancer,
		Signals:  stack.Workflow,
		Guard:    stack.Signals,
	})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, workload)

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(conn),
		Retention:  cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, cleanup)

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(conn),
		Retention:   cfg.Cron.OutboxRetentionDays,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, retention)

	registry := cron.NewRegistry()
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped", err)
	}
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
