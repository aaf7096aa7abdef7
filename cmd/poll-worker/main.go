package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rangolink/merchant-bridge/internal/credentials"
	"github.com/rangolink/merchant-bridge/internal/marketplace"
	"github.com/rangolink/merchant-bridge/internal/orders"
	"github.com/rangolink/merchant-bridge/internal/polling"
	"github.com/rangolink/merchant-bridge/internal/reconciler"
	"github.com/rangolink/merchant-bridge/internal/tokens"
	"github.com/rangolink/merchant-bridge/pkg/config"
	"github.com/rangolink/merchant-bridge/pkg/db"
	"github.com/rangolink/merchant-bridge/pkg/logger"
	"github.com/rangolink/merchant-bridge/pkg/metrics"
	"github.com/rangolink/merchant-bridge/pkg/migrate"
	"github.com/rangolink/merchant-bridge/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "poll-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "poll-worker",
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

	marketplaceClient, err := marketplace.NewClient(cfg.Marketplace, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace client", err)
		os.Exit(1)
	}

	credentialsRepo := credentials.NewRepository(dbClient.DB())
	tokenService, err := tokens.NewService(credentialsRepo, marketplaceClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create token service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	reconcilerService := reconciler.NewService(ordersRepo, logg)
	pollService := polling.NewService(tokenService, marketplaceClient, reconcilerService, logg, cfg.Poller.EnrichDetails)

	lock, err := polling.NewRedisLock(redisClient, cfg.Poller.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	worker, err := polling.NewWorker(polling.WorkerParams{
		Logger:       logg,
		Credentials:  credentialsRepo,
		Poller:       pollService,
		Lock:         lock,
		Metrics:      metrics.NewPollerMetrics(prometheus.DefaultRegisterer),
		Interval:     cfg.Poller.Interval,
		MaxAttempts:  cfg.Poller.MaxAttempts,
		RetryBackoff: cfg.Poller.RetryBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create poll worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Poller.Interval.String(),
	})
	logg.Info(ctx, "starting poll worker")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "poll worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "poll worker shutting down gracefully")
}
