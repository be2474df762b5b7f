package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/stockcast-backend/api/routes"
	"github.com/angelmondragon/stockcast-backend/internal/forecasting"
	"github.com/angelmondragon/stockcast-backend/internal/sales"
	"github.com/angelmondragon/stockcast-backend/pkg/cache"
	"github.com/angelmondragon/stockcast-backend/pkg/config"
	"github.com/angelmondragon/stockcast-backend/pkg/db"
	"github.com/angelmondragon/stockcast-backend/pkg/instance"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"github.com/angelmondragon/stockcast-backend/pkg/metrics"
	"github.com/angelmondragon/stockcast-backend/pkg/migrate"
	"github.com/angelmondragon/stockcast-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	forecastMetrics := metrics.NewForecastMetrics(registry)

	localSummaries, err := cache.NewLRU[string, forecasting.Summary](cfg.Cache.LocalSize, cfg.Cache.LocalTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create summary cache", err)
		os.Exit(1)
	}

	salesRepo := sales.NewRepository(dbClient.DB())
	forecastService, err := forecasting.NewService(forecasting.ServiceParams{
		Logger:  logg,
		History: sales.NewHistoryReader(salesRepo, nil),
		Engine:  cfg.Forecast.EngineConfig(),
		Cache: forecasting.NewSummaryCache(forecasting.SummaryCacheParams{
			Logger:  logg,
			Local:   localSummaries,
			Remote:  redisClient,
			TTL:     cfg.Cache.SummaryTTL,
			Metrics: forecastMetrics,

			BreakerFailures: cfg.Cache.RedisBreakerFailures,
			BreakerCooldown: cfg.Cache.RedisBreakerCooldown,
		}),
		Metrics:        forecastMetrics,
		LookbackDays:   cfg.Forecast.LookbackDays,
		HorizonDays:    cfg.Forecast.HorizonDays,
		BacktestWindow: cfg.Forecast.BacktestWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create forecasting service", err)
		os.Exit(1)
	}

	salesService, err := sales.NewService(sales.ServiceParams{
		Logger:      logg,
		DB:          dbClient,
		Repo:        salesRepo,
		Invalidator: forecastService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			RateLimiter: redisClient,
			Idempotency: redisClient,
			Gatherer:    registry,
			Sales:       salesService,
			Forecasts:   forecastService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
