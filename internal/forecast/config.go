package forecast

import "math"

const (
	DefaultWindowSize     = 30
	DefaultTrendWeight    = 0.3
	DefaultMinHistoryDays = 14
)

// Config governs every prediction made through an Engine. A zero TrendWeight
// means the default; set DisableTrend to drop the trend factor.
type Config struct {
	WindowSize     int
	TrendWeight    float64
	MinHistoryDays int
	DisableTrend   bool
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		WindowSize:     DefaultWindowSize,
		TrendWeight:    DefaultTrendWeight,
		MinHistoryDays: DefaultMinHistoryDays,
	}
}

// normalized replaces zero or invalid fields with their defaults.
func (c Config) normalized() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.TrendWeight <= 0 || math.IsNaN(c.TrendWeight) || math.IsInf(c.TrendWeight, 0) {
		c.TrendWeight = DefaultTrendWeight
	}
	if c.MinHistoryDays <= 0 {
		c.MinHistoryDays = DefaultMinHistoryDays
	}
	return c
}

func (c Config) effectiveTrendWeight() float64 {
	if c.DisableTrend {
		return 0
	}
	return c.TrendWeight
}
