package forecast

import "time"

const (
	minWeekdaySamples = 2
	minMonthSamples   = 3

	trendPeriodDays = 14
	trendMinDays    = 2 * trendPeriodDays
	trendCeiling    = 0.5
)

// WeightedMovingAverage averages the trailing window with linearly increasing
// weights so the newest day counts the most. history must be chronological.
func WeightedMovingAverage(history []SalesRecord, windowSize int) float64 {
	n := windowSize
	if n > len(history) {
		n = len(history)
	}
	if n <= 0 {
		return 0
	}
	window := history[len(history)-n:]
	weighted, weights := 0.0, 0.0
	for i, rec := range window {
		w := float64(i + 1)
		weighted += float64(rec.Quantity) * w
		weights += w
	}
	return weighted / weights
}

// WeekdayMultiplier compares the target weekday's average to the overall average.
// Weekdays with fewer than two samples are left unadjusted.
func WeekdayMultiplier(history []SalesRecord, target time.Time) float64 {
	buckets := GroupByWeekday(history)
	return seasonalRatio(buckets[calendarDay(target).Weekday()], history, minWeekdaySamples)
}

// MonthMultiplier compares the target month's average to the overall average.
// Months with fewer than three samples are left unadjusted.
func MonthMultiplier(history []SalesRecord, target time.Time) float64 {
	buckets := GroupByMonth(history)
	return seasonalRatio(buckets[calendarDay(target).Month()-1], history, minMonthSamples)
}

func seasonalRatio(bucket Bucket, history []SalesRecord, minSamples int) float64 {
	if bucket.Count < minSamples {
		return 1
	}
	global := Mean(quantities(history))
	if global == 0 {
		return 1
	}
	return bucket.Average / global
}

// Trend returns the relative change between the last two fortnights, clamped to
// [-0.5, 0.5]. history must be chronological.
func Trend(history []SalesRecord) float64 {
	if len(history) < trendMinDays {
		return 0
	}
	n := len(history)
	recent := Mean(quantities(history[n-trendPeriodDays:]))
	previous := Mean(quantities(history[n-trendMinDays : n-trendPeriodDays]))
	if previous == 0 {
		return 0
	}
	return clamp((recent-previous)/previous, -trendCeiling, trendCeiling)
}

// ConfidenceScore rates how much a forecast built on history can be trusted.
// Volume, zero-day rate and variability each contribute a capped share.
func ConfidenceScore(history []SalesRecord) float64 {
	if len(history) == 0 {
		return 0
	}
	values := quantities(history)
	zeros := 0
	for _, v := range values {
		if v == 0 {
			zeros++
		}
	}
	zeroRate := float64(zeros) / float64(len(values))
	score := volumeScore(len(values)) + regularityScore(zeroRate) + stabilityScore(CoefficientOfVariation(values))
	return clamp(score, 0, 1)
}

func volumeScore(days int) float64 {
	switch {
	case days >= 90:
		return 0.4
	case days >= 60:
		return 0.3
	case days >= 30:
		return 0.2
	default:
		return 0.1
	}
}

func regularityScore(zeroRate float64) float64 {
	switch {
	case zeroRate < 0.1:
		return 0.3
	case zeroRate < 0.3:
		return 0.2
	case zeroRate < 0.5:
		return 0.1
	default:
		return 0.05
	}
}

func stabilityScore(cv float64) float64 {
	switch {
	case cv < 0.3:
		return 0.3
	case cv < 0.5:
		return 0.2
	case cv < 0.8:
		return 0.1
	default:
		return 0.05
	}
}

// PredictionInterval widens the band around value as confidence drops.
func PredictionInterval(value int, confidence float64, history []SalesRecord) Interval {
	factor := 2*(1-confidence) + 0.5
	spread := StandardDeviation(quantities(history)) * factor
	if spread < 0 {
		spread = 0
	}
	lower := roundHalfUp(float64(value) - spread)
	if lower < 0 {
		lower = 0
	}
	return Interval{Min: lower, Max: roundHalfUp(float64(value) + spread)}
}
