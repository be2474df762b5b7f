package forecast

import "time"

const (
	// AlgorithmWMA tags predictions produced by the full pipeline.
	AlgorithmWMA = "wma_seasonal_trend"
	// AlgorithmFallback tags predictions produced by the low-data path.
	AlgorithmFallback = "fallback_average"

	WarningNoData           = "no data"
	WarningInsufficientData = "insufficient data"
)

// SalesRecord is the number of units sold for one product on one calendar day.
type SalesRecord struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
}

// Interval is the prediction band around a point forecast.
type Interval struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Breakdown exposes the factors that produced a prediction.
type Breakdown struct {
	Base          float64 `json:"base"`
	DayMultiplier float64 `json:"dayMultiplier"`
	Trend         float64 `json:"trend"`
	Seasonality   float64 `json:"seasonality"`
}

// Metadata describes how a prediction was generated.
type Metadata struct {
	DataPoints  int       `json:"dataPoints"`
	GeneratedAt time.Time `json:"generatedAt"`
	Algorithm   string    `json:"algorithm"`
	Warning     string    `json:"warning,omitempty"`
}

// Prediction is the forecast for a single target date.
type Prediction struct {
	Date       time.Time  `json:"date"`
	Value      int        `json:"value"`
	Confidence float64    `json:"confidence"`
	Interval   Interval   `json:"interval"`
	Breakdown  *Breakdown `json:"breakdown"`
	Metadata   Metadata   `json:"metadata"`
}

// Quality buckets a backtest MAPE score.
type Quality string

const (
	QualityExcellent  Quality = "excellent"
	QualityGood       Quality = "good"
	QualityAcceptable Quality = "acceptable"
	QualityPoor       Quality = "poor"
	QualityVeryPoor   Quality = "very_poor"
)

func (q Quality) String() string { return string(q) }

// IsValid reports whether q is one of the known quality buckets.
func (q Quality) IsValid() bool {
	switch q {
	case QualityExcellent, QualityGood, QualityAcceptable, QualityPoor, QualityVeryPoor:
		return true
	default:
		return false
	}
}

// BacktestResult summarises walk-forward accuracy over a trailing window.
type BacktestResult struct {
	MAPE        float64 `json:"mape"`
	Accuracy    float64 `json:"accuracy"`
	RawAccuracy float64 `json:"rawAccuracy"`
	Tested      int     `json:"tested"`
	Quality     Quality `json:"quality"`
}
