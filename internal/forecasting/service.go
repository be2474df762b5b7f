package forecasting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/angelmondragon/stockcast-backend/internal/sales"
	pkgerrors "github.com/angelmondragon/stockcast-backend/pkg/errors"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"github.com/angelmondragon/stockcast-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

const (
	defaultLookbackDays   = 365
	defaultHorizonDays    = 30
	defaultBacktestWindow = 30

	MaxHorizonDays    = 90
	MinBacktestWindow = 7
	MaxBacktestWindow = 180

	noAccuracyLabel = "n/a"
)

// HistoryLoader supplies the dense daily series for a product.
type HistoryLoader interface {
	History(ctx context.Context, key sales.ProductKey, lookbackDays int) ([]forecast.SalesRecord, error)
}

// ServiceParams groups dependencies for the forecasting service.
type ServiceParams struct {
	Logger         *logger.Logger
	History        HistoryLoader
	Engine         forecast.Config
	Cache          *SummaryCache
	Metrics        *metrics.ForecastMetrics
	LookbackDays   int
	HorizonDays    int
	BacktestWindow int
	Now            func() time.Time
}

// Service serves demand forecasts for stored sales history.
type Service interface {
	Predict(ctx context.Context, key sales.ProductKey, target time.Time) (forecast.Prediction, error)
	PredictDays(ctx context.Context, key sales.ProductKey, days int) ([]forecast.Prediction, error)
	Accuracy(ctx context.Context, key sales.ProductKey, window int) (*forecast.BacktestResult, error)
	Summary(ctx context.Context, key sales.ProductKey) (Summary, error)
	Refresh(ctx context.Context, key sales.ProductKey) (Summary, error)
	Invalidate(ctx context.Context, key sales.ProductKey) error
}

type service struct {
	logg           *logger.Logger
	history        HistoryLoader
	engine         *forecast.Engine
	cache          *SummaryCache
	metrics        *metrics.ForecastMetrics
	lookbackDays   int
	horizonDays    int
	backtestWindow int
	now            func() time.Time
}

// NewService builds a forecasting service. The engine shares the service clock.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history loader required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	lookback := params.LookbackDays
	if lookback <= 0 {
		lookback = defaultLookbackDays
	}
	horizon := params.HorizonDays
	if horizon <= 0 || horizon > MaxHorizonDays {
		horizon = defaultHorizonDays
	}
	window := params.BacktestWindow
	if window < MinBacktestWindow || window > MaxBacktestWindow {
		window = defaultBacktestWindow
	}
	return &service{
		logg:           params.Logger,
		history:        params.History,
		engine:         forecast.NewEngine(params.Engine, forecast.WithClock(now)),
		cache:          params.Cache,
		metrics:        params.Metrics,
		lookbackDays:   lookback,
		horizonDays:    horizon,
		backtestWindow: window,
		now:            now,
	}, nil
}

// Predict forecasts one day. A zero target means tomorrow.
func (s *service) Predict(ctx context.Context, key sales.ProductKey, target time.Time) (forecast.Prediction, error) {
	history, err := s.load(ctx, key)
	if err != nil {
		return forecast.Prediction{}, err
	}
	if target.IsZero() {
		target = s.now().AddDate(0, 0, 1)
	}
	pred := s.engine.Predict(history, target)
	s.recordPath(pred)
	return pred, nil
}

func (s *service) PredictDays(ctx context.Context, key sales.ProductKey, days int) ([]forecast.Prediction, error) {
	if days < 1 || days > MaxHorizonDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must be between 1 and %d", MaxHorizonDays))
	}
	history, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	preds := s.engine.PredictDays(history, days)
	for _, pred := range preds {
		s.recordPath(pred)
	}
	return preds, nil
}

// Accuracy backtests the engine on the product's history. A nil result means
// there was not enough data. A zero window uses the configured default.
func (s *service) Accuracy(ctx context.Context, key sales.ProductKey, window int) (*forecast.BacktestResult, error) {
	if window == 0 {
		window = s.backtestWindow
	}
	if window < MinBacktestWindow || window > MaxBacktestWindow {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("window must be between %d and %d", MinBacktestWindow, MaxBacktestWindow))
	}
	history, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.backtest(history, window), nil
}

// Summary returns the cached summary or computes and caches a fresh one.
func (s *service) Summary(ctx context.Context, key sales.ProductKey) (Summary, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return Summary{}, err
	}
	if summary, ok := s.cache.Get(ctx, key); ok {
		return summary, nil
	}
	return s.Refresh(ctx, key)
}

// Refresh recomputes the summary and overwrites the cached copy. A summary
// computed across an invalidation is returned but not cached.
func (s *service) Refresh(ctx context.Context, key sales.ProductKey) (Summary, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return Summary{}, err
	}
	gen := s.cache.Generation(ctx, key)
	history, err := s.load(ctx, key)
	if err != nil {
		return Summary{}, err
	}
	summary := s.summarize(key, history)
	if s.cache != nil && !s.cache.SetIfCurrent(ctx, key, gen, summary) {
		s.logg.Debug(s.logg.WithProductID(ctx, key.ProductID), "forecast.refresh.stale_skipped")
	}

	ctx = s.logg.WithShopDomain(ctx, key.ShopDomain)
	ctx = s.logg.WithProductID(ctx, key.ProductID)
	ctx = s.logg.WithFields(ctx, map[string]any{"history_days": len(history), "next_7_days": summary.Next7Days})
	s.logg.Debug(ctx, "forecast.refresh.complete")
	return summary, nil
}

func (s *service) Invalidate(ctx context.Context, key sales.ProductKey) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate forecast summary")
	}
	return nil
}

func (s *service) summarize(key sales.ProductKey, history []forecast.SalesRecord) Summary {
	daily := s.engine.PredictDays(history, s.horizonDays)
	summary := Summary{
		ShopDomain:    key.ShopDomain,
		ProductID:     key.ProductID,
		Tomorrow:      daily[0],
		Daily:         daily,
		Next7Days:     sumValues(daily, 7),
		Next30Days:    sumValues(daily, 30),
		AverageDaily:  averageValue(daily),
		AccuracyLabel: noAccuracyLabel,
		HistoryDays:   len(history),
		GeneratedAt:   s.now(),
	}
	for _, pred := range daily {
		s.recordPath(pred)
	}
	if result := s.backtest(history, s.backtestWindow); result != nil {
		summary.Accuracy = result
		summary.AccuracyLabel = AccuracyLabel(result.Accuracy)
	}
	return summary
}

func (s *service) backtest(history []forecast.SalesRecord, window int) *forecast.BacktestResult {
	result := s.engine.Backtest(history, window)
	if result != nil {
		s.metrics.ObserveMAPE(result.MAPE)
	}
	return result
}

func (s *service) load(ctx context.Context, key sales.ProductKey) ([]forecast.SalesRecord, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	return s.history.History(ctx, key, s.lookbackDays)
}

func (s *service) recordPath(pred forecast.Prediction) {
	switch {
	case pred.Metadata.Warning == forecast.WarningNoData:
		s.metrics.IncPrediction(metrics.PathEmpty)
	case pred.Metadata.Algorithm == forecast.AlgorithmFallback:
		s.metrics.IncPrediction(metrics.PathFallback)
	default:
		s.metrics.IncPrediction(metrics.PathFull)
	}
}

// AccuracyLabel renders an accuracy percentage with one decimal, e.g. "87.5%".
func AccuracyLabel(accuracy float64) string {
	return decimal.NewFromFloat(accuracy).Round(1).StringFixed(1) + "%"
}

func sumValues(preds []forecast.Prediction, n int) int {
	if n > len(preds) {
		n = len(preds)
	}
	total := 0
	for _, pred := range preds[:n] {
		total += pred.Value
	}
	return total
}

func averageValue(preds []forecast.Prediction) decimal.Decimal {
	if len(preds) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, pred := range preds {
		total = total.Add(decimal.NewFromInt(int64(pred.Value)))
	}
	return total.Div(decimal.NewFromInt(int64(len(preds)))).Round(2)
}

func normalizeKey(key sales.ProductKey) (sales.ProductKey, error) {
	key.ShopDomain = strings.ToLower(strings.TrimSpace(key.ShopDomain))
	key.ProductID = strings.TrimSpace(key.ProductID)
	if key.ShopDomain == "" || key.ProductID == "" {
		return key, pkgerrors.New(pkgerrors.CodeValidation, "shop domain and product id are required")
	}
	return key, nil
}
