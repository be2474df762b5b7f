package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prediction paths reported by ForecastMetrics.
const (
	PathFull     = "full"
	PathFallback = "fallback"
	PathEmpty    = "empty"
)

// Cache tiers and outcomes reported by ForecastMetrics.
const (
	TierLocal = "local"
	TierRedis = "redis"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// ForecastMetrics tracks prediction volume, backtest accuracy and summary cache use.
type ForecastMetrics struct {
	predictions *prometheus.CounterVec
	mape        prometheus.Histogram
	cache       *prometheus.CounterVec
}

// NewForecastMetrics registers forecast metrics on reg. A nil registerer yields a
// no-op recorder.
func NewForecastMetrics(reg prometheus.Registerer) *ForecastMetrics {
	if reg == nil {
		return &ForecastMetrics{}
	}
	predictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "forecast",
		Name:      "predictions_total",
		Help:      "Predictions produced, by engine path.",
	}, []string{"path"})
	mape := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "forecast",
		Name:      "backtest_mape_percent",
		Help:      "Walk-forward MAPE of computed backtests.",
		Buckets:   []float64{5, 10, 20, 30, 50, 75, 100, 200},
	})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "forecast",
		Name:      "summary_cache_total",
		Help:      "Summary cache lookups by tier and result.",
	}, []string{"tier", "result"})
	reg.MustRegister(predictions, mape, cache)
	return &ForecastMetrics{predictions: predictions, mape: mape, cache: cache}
}

// IncPrediction counts one prediction on the given path.
func (m *ForecastMetrics) IncPrediction(path string) {
	if m == nil || m.predictions == nil {
		return
	}
	m.predictions.WithLabelValues(normalizeLabel(path)).Inc()
}

// ObserveMAPE records a backtest score.
func (m *ForecastMetrics) ObserveMAPE(mape float64) {
	if m == nil || m.mape == nil {
		return
	}
	m.mape.Observe(mape)
}

// CacheLookup counts a summary cache lookup.
func (m *ForecastMetrics) CacheLookup(tier string, hit bool) {
	if m == nil || m.cache == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cache.WithLabelValues(normalizeLabel(tier), result).Inc()
}
