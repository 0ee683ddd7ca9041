package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/libralend/libralend-backend/api/routes"
	"github.com/libralend/libralend-backend/internal/alerts"
	"github.com/libralend/libralend-backend/internal/auth"
	"github.com/libralend/libralend-backend/internal/books"
	"github.com/libralend/libralend-backend/internal/lending"
	"github.com/libralend/libralend-backend/internal/stats"
	"github.com/libralend/libralend-backend/internal/users"
	"github.com/libralend/libralend-backend/pkg/auth/session"
	"github.com/libralend/libralend-backend/pkg/config"
	"github.com/libralend/libralend-backend/pkg/db"
	"github.com/libralend/libralend-backend/pkg/logger"
	"github.com/libralend/libralend-backend/pkg/migrate"
	"github.com/libralend/libralend-backend/pkg/outbox"
	"github.com/libralend/libralend-backend/pkg/redis"
	"github.com/libralend/libralend-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	// Cover uploads degrade gracefully when GCS is disabled.
	var coverSigner interface {
		SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	}
	if cfg.FeatureFlags.CoverUploadsEnabled {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs client", err)
			os.Exit(1)
		}
		coverSigner = gcsClient
	}

	usersRepo := users.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	booksService, err := books.NewService(
		books.NewRepository(gdb),
		dbClient,
		outboxSvc,
		coverSigner,
		cfg.GCS.BucketName,
		cfg.GCS.UploadURLExpiry,
		cfg.GCS.MaxCoverUploadMB,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create books service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	alertsRepo := alerts.NewRepository(gdb)
	alertsService, err := alerts.NewService(alertsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create alerts service", err)
		os.Exit(1)
	}

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

	statsService, err := stats.NewService(gdb)
	if err != nil {
		logg.Error(context.Background(), "failed to create stats service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:    authService,
			Books:   booksService,
			Users:   usersService,
			Lending: lendingService,
			Alerts:  alertsService,
			Stats:   statsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
