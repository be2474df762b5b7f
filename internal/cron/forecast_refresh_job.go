package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecasting"
	"github.com/angelmondragon/stockcast-backend/internal/sales"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	refreshActiveDays  = 30
	refreshConcurrency = 8
)

type activeProductLister interface {
	ActiveProducts(ctx context.Context, since time.Time) ([]sales.ProductKey, error)
}

type summaryRefresher interface {
	Refresh(ctx context.Context, key sales.ProductKey) (forecasting.Summary, error)
}

// ForecastRefreshJobParams configure the forecast warm-up job.
type ForecastRefreshJobParams struct {
	Logger      *logger.Logger
	Products    activeProductLister
	Forecasts   summaryRefresher
	ActiveDays  int
	Concurrency int
	// RatePerSecond caps refresh starts per second. Zero means unlimited.
	RatePerSecond float64
}

// NewForecastRefreshJob builds the job that recomputes and caches summaries for
// every product that sold recently.
func NewForecastRefreshJob(params ForecastRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lister required")
	}
	if params.Forecasts == nil {
		return nil, fmt.Errorf("forecast refresher required")
	}
	activeDays := params.ActiveDays
	if activeDays <= 0 {
		activeDays = refreshActiveDays
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = refreshConcurrency
	}
	return &forecastRefreshJob{
		logg:        params.Logger,
		products:    params.Products,
		forecasts:   params.Forecasts,
		activeDays:  activeDays,
		concurrency: concurrency,
		rate:        params.RatePerSecond,
		now:         time.Now,
	}, nil
}

type forecastRefreshJob struct {
	logg        *logger.Logger
	products    activeProductLister
	forecasts   summaryRefresher
	activeDays  int
	concurrency int
	rate        float64
	now         func() time.Time
}

func (j *forecastRefreshJob) Name() string { return JobForecastRefresh }

// Run refreshes every active product. One product failing does not stop the
// others; all failures are returned together.
func (j *forecastRefreshJob) Run(ctx context.Context) error {
	since := j.now().UTC().AddDate(0, 0, -j.activeDays)
	keys, err := j.products.ActiveProducts(ctx, since)
	if err != nil {
		return fmt.Errorf("list active products: %w", err)
	}

	var (
		mu       sync.Mutex
		failures error
		failed   int
	)
	limiter := j.limiter()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			if _, err := j.forecasts.Refresh(gctx, key); err != nil {
				mu.Lock()
				failures = multierr.Append(failures, fmt.Errorf("refresh %s: %w", key, err))
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failures = multierr.Append(failures, err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"products":    len(keys),
		"failed":      failed,
		"active_days": j.activeDays,
	})
	j.logg.Info(logCtx, "forecast.refresh.complete")
	return failures
}

func (j *forecastRefreshJob) limiter() *rate.Limiter {
	if j.rate <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(j.rate)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(j.rate), burst)
}
