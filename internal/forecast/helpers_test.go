package forecast

import "time"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailyHistory builds consecutive daily records starting at start.
func dailyHistory(start time.Time, qty ...int) []SalesRecord {
	history := make([]SalesRecord, len(qty))
	for i, q := range qty {
		history[i] = SalesRecord{Date: start.AddDate(0, 0, i), Quantity: q}
	}
	return history
}

func constantHistory(start time.Time, days, qty int) []SalesRecord {
	values := make([]int, days)
	for i := range values {
		values[i] = qty
	}
	return dailyHistory(start, values...)
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}
