package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/libralend/libralend-backend/internal/alerts"
	"github.com/libralend/libralend-backend/internal/cron"
	"github.com/libralend/libralend-backend/internal/lending"
	"github.com/libralend/libralend-backend/pkg/config"
	"github.com/libralend/libralend-backend/pkg/db"
	"github.com/libralend/libralend-backend/pkg/logger"
	"github.com/libralend/libralend-backend/pkg/metrics"
	"github.com/libralend/libralend-backend/pkg/migrate"
	"github.com/libralend/libralend-backend/pkg/outbox"
	"github.com/libralend/libralend-backend/pkg/redis"
)

const lockKeyFormat = "ll:cron-worker:lock:%s"

func main() {
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
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	gdb := dbClient.DB()
	outboxRepo := outbox.NewRepository(gdb)
	outboxSvc := outbox.NewService(outboxRepo, logg)
	alertsRepo := alerts.NewRepository(gdb)

	lendingService, err := lending.NewService(
		lending.NewRepository(gdb),
		dbClient,
		outboxSvc,
		alertsRepo,
		cfg.Lending,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create lending service", err)
		os.Exit(1)
	}

	penaltyJob, err := cron.NewPenaltyJob(cron.PenaltyJobParams{
		Logger:   logg,
		Assessor: lendingService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create penalty job", err)
		os.Exit(1)
	}

	alertCleanupJob, err := cron.NewAlertCleanupJob(cron.AlertCleanupJobParams{
		Logger:     logg,
		Repository: alertsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create alert cleanup job", err)
		os.Exit(1)
	}

	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(penaltyJob, alertCleanupJob, outboxRetentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
