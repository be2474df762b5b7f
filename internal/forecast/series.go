package forecast

import (
	"math"
	"sort"
	"time"
)

// Bucket accumulates quantities that share a calendar field.
type Bucket struct {
	Sum     int
	Count   int
	Average float64
}

// SortChronological returns a copy of history ordered by date. Records that share
// a date keep their relative order.
func SortChronological(history []SalesRecord) []SalesRecord {
	sorted := make([]SalesRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StandardDeviation returns the population standard deviation, or 0 for no values.
func StandardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := Mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - avg
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

// CoefficientOfVariation returns stddev/mean, or 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	avg := Mean(values)
	if avg == 0 {
		return 0
	}
	return StandardDeviation(values) / avg
}

// GroupByWeekday buckets records by time.Weekday (Sunday is index 0).
func GroupByWeekday(history []SalesRecord) [7]Bucket {
	var buckets [7]Bucket
	for _, rec := range history {
		idx := calendarDay(rec.Date).Weekday()
		buckets[idx].Sum += rec.Quantity
		buckets[idx].Count++
	}
	for i := range buckets {
		buckets[i].finalize()
	}
	return buckets
}

// GroupByMonth buckets records by month (January is index 0).
func GroupByMonth(history []SalesRecord) [12]Bucket {
	var buckets [12]Bucket
	for _, rec := range history {
		idx := calendarDay(rec.Date).Month() - 1
		buckets[idx].Sum += rec.Quantity
		buckets[idx].Count++
	}
	for i := range buckets {
		buckets[i].finalize()
	}
	return buckets
}

func (b *Bucket) finalize() {
	if b.Count == 0 {
		b.Average = 0
		return
	}
	b.Average = float64(b.Sum) / float64(b.Count)
}

func quantities(history []SalesRecord) []float64 {
	values := make([]float64, len(history))
	for i, rec := range history {
		values[i] = float64(rec.Quantity)
	}
	return values
}

// calendarDay truncates t to midnight UTC of its own calendar date.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
