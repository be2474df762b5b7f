package forecast

import (
	"math"
	"time"
)

const (
	fallbackConfidence = 0.3
	fallbackLowerRatio = 0.5
	fallbackUpperRatio = 1.5

	backtestMinExtraDays = 7
)

// Option customises an Engine.
type Option func(*Engine)

// WithClock sets the reference clock used for "today" and generatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine produces demand forecasts from a product's daily sales history. It holds
// no mutable state and is safe for concurrent use.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine builds an engine; zero config fields take their defaults.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg: cfg.normalized(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the settings captured at construction.
func (e *Engine) Config() Config {
	return e.cfg
}

// Predict forecasts demand for target. A zero target means today.
func (e *Engine) Predict(history []SalesRecord, target time.Time) Prediction {
	now := e.now()
	if target.IsZero() {
		target = now
	}
	return e.predict(SortChronological(history), calendarDay(target), now)
}

// PredictDays forecasts each of the next days days, starting tomorrow.
func (e *Engine) PredictDays(history []SalesRecord, days int) []Prediction {
	return e.PredictDaysFrom(history, e.now(), days)
}

// PredictDaysFrom forecasts the days days that follow reference. Every day is
// predicted from the same history; earlier predictions are not fed back in.
func (e *Engine) PredictDaysFrom(history []SalesRecord, reference time.Time, days int) []Prediction {
	if days <= 0 {
		return []Prediction{}
	}
	now := e.now()
	sorted := SortChronological(history)
	start := calendarDay(reference)
	predictions := make([]Prediction, 0, days)
	for i := 1; i <= days; i++ {
		predictions = append(predictions, e.predict(sorted, start.AddDate(0, 0, i), now))
	}
	return predictions
}

// predict expects a chronological history.
func (e *Engine) predict(history []SalesRecord, target, now time.Time) Prediction {
	if len(history) < e.cfg.MinHistoryDays {
		return fallbackPrediction(history, target, now)
	}

	base := WeightedMovingAverage(history, e.cfg.WindowSize)
	dayMult := WeekdayMultiplier(history, target)
	trend := Trend(history)
	seasonMult := MonthMultiplier(history, target)

	raw := base * dayMult * (1 + trend*e.cfg.effectiveTrendWeight()) * seasonMult
	value := roundHalfUp(raw)
	if value < 0 {
		value = 0
	}
	confidence := ConfidenceScore(history)

	return Prediction{
		Date:       target,
		Value:      value,
		Confidence: confidence,
		Interval:   PredictionInterval(value, confidence, history),
		Breakdown: &Breakdown{
			Base:          base,
			DayMultiplier: dayMult,
			Trend:         trend,
			Seasonality:   seasonMult,
		},
		Metadata: Metadata{
			DataPoints:  len(history),
			GeneratedAt: now,
			Algorithm:   AlgorithmWMA,
		},
	}
}

func fallbackPrediction(history []SalesRecord, target, now time.Time) Prediction {
	if len(history) == 0 {
		return Prediction{
			Date: target,
			Metadata: Metadata{
				GeneratedAt: now,
				Algorithm:   AlgorithmFallback,
				Warning:     WarningNoData,
			},
		}
	}

	value := roundHalfUp(Mean(quantities(history)))
	return Prediction{
		Date:       target,
		Value:      value,
		Confidence: fallbackConfidence,
		Interval: Interval{
			Min: roundHalfUp(float64(value) * fallbackLowerRatio),
			Max: roundHalfUp(float64(value) * fallbackUpperRatio),
		},
		Breakdown: &Breakdown{
			Base:          float64(value),
			DayMultiplier: 1,
			Trend:         0,
			Seasonality:   1,
		},
		Metadata: Metadata{
			DataPoints:  len(history),
			GeneratedAt: now,
			Algorithm:   AlgorithmFallback,
			Warning:     WarningInsufficientData,
		},
	}
}

// Backtest replays the last windowSize days walk-forward and scores the engine by
// MAPE. Days with zero actual demand are skipped. It returns nil when the history
// is too short or no day could be scored.
func (e *Engine) Backtest(history []SalesRecord, windowSize int) *BacktestResult {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if len(history) < windowSize+backtestMinExtraDays {
		return nil
	}

	sorted := SortChronological(history)
	now := e.now()
	errs := make([]float64, 0, windowSize)
	for i := len(sorted) - windowSize; i < len(sorted); i++ {
		actual := sorted[i].Quantity
		if actual == 0 {
			continue
		}
		predicted := e.predict(sorted[:i], calendarDay(sorted[i].Date), now).Value
		errs = append(errs, math.Abs(float64(predicted-actual))/float64(actual))
	}
	if len(errs) == 0 {
		return nil
	}

	mape := Mean(errs) * 100
	if math.IsNaN(mape) || math.IsInf(mape, 0) {
		return nil
	}
	raw := 100 - mape
	return &BacktestResult{
		MAPE:        mape,
		Accuracy:    clamp(raw, 0, 100),
		RawAccuracy: raw,
		Tested:      len(errs),
		Quality:     QualityFor(mape),
	}
}

// QualityFor buckets a MAPE percentage.
func QualityFor(mape float64) Quality {
	switch {
	case mape <= 10:
		return QualityExcellent
	case mape <= 20:
		return QualityGood
	case mape <= 30:
		return QualityAcceptable
	case mape <= 50:
		return QualityPoor
	default:
		return QualityVeryPoor
	}
}
