package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/stockcast-backend/internal/cron"
	"github.com/angelmondragon/stockcast-backend/internal/forecasting"
	"github.com/angelmondragon/stockcast-backend/internal/sales"
	"github.com/angelmondragon/stockcast-backend/pkg/config"
	"github.com/angelmondragon/stockcast-backend/pkg/db"
	"github.com/angelmondragon/stockcast-backend/pkg/instance"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"github.com/angelmondragon/stockcast-backend/pkg/metrics"
	"github.com/angelmondragon/stockcast-backend/pkg/migrate"
	"github.com/angelmondragon/stockcast-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	only := flag.String("jobs", "", "comma-separated jobs to run (default all: "+cron.JobSalesRetention+","+cron.JobForecastRefresh+")")
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

	forecastMetrics := metrics.NewForecastMetrics(prometheus.DefaultRegisterer)
	salesRepo := sales.NewRepository(dbClient.DB())
	// no local tier: refreshed summaries must land in redis for the api instances
	forecastService, err := forecasting.NewService(forecasting.ServiceParams{
		Logger:  logg,
		History: sales.NewHistoryReader(salesRepo, nil),
		Engine:  cfg.Forecast.EngineConfig(),
		Cache: forecasting.NewSummaryCache(forecasting.SummaryCacheParams{
			Logger:  logg,
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

	refreshJob, err := cron.NewForecastRefreshJob(cron.ForecastRefreshJobParams{
		Logger:        logg,
		Products:      salesRepo,
		Forecasts:     forecastService,
		ActiveDays:    cfg.Worker.ActiveLookbackDays,
		Concurrency:   cfg.Worker.Concurrency,
		RatePerSecond: cfg.Worker.RefreshRate,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create forecast refresh job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewSalesRetentionJob(cron.SalesRetentionJobParams{
		Logger:    logg,
		DB:        dbClient,
		Retention: cfg.Retention.SalesDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sales retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cron.LockTTL(cfg.Worker.RefreshInterval), instance.GetID())
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(retentionJob, refreshJob).Select(splitJobs(*only)...)
	if err != nil {
		logg.Error(context.Background(), "invalid -jobs selection", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Worker.RefreshInterval,
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
		"instance":    instance.GetID(),
		"interval":    cfg.Worker.RefreshInterval.String(),
		"jobs":        strings.Join(registry.Names(), ","),
	})
	logg.Info(ctx, "starting cron worker")

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}

func splitJobs(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Split(value, ",")
}
