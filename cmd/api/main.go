package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rangolink/merchant-bridge/api/routes"
	"github.com/rangolink/merchant-bridge/internal/credentials"
	"github.com/rangolink/merchant-bridge/internal/marketplace"
	"github.com/rangolink/merchant-bridge/internal/merchants"
	"github.com/rangolink/merchant-bridge/internal/orders"
	"github.com/rangolink/merchant-bridge/internal/polling"
	"github.com/rangolink/merchant-bridge/internal/reconciler"
	"github.com/rangolink/merchant-bridge/internal/tokens"
	"github.com/rangolink/merchant-bridge/pkg/config"
	"github.com/rangolink/merchant-bridge/pkg/db"
	"github.com/rangolink/merchant-bridge/pkg/env"
	"github.com/rangolink/merchant-bridge/pkg/logger"
	"github.com/rangolink/merchant-bridge/pkg/migrate"
	"github.com/rangolink/merchant-bridge/pkg/redis"
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
	ordersService := orders.NewService(ordersRepo, tokenService, marketplaceClient, logg)
	merchantsService := merchants.NewService(tokenService, marketplaceClient, logg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Tokens:    tokenService,
			Polling:   pollService,
			Orders:    ordersService,
			Merchants: merchantsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
