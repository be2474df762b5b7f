package forecasting

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/angelmondragon/stockcast-backend/internal/sales"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var testNow = time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// constantHistory returns days records of qty ending yesterday relative to testNow.
func constantHistory(days, qty int) []forecast.SalesRecord {
	start := day(2024, time.March, 31).AddDate(0, 0, -days)
	history := make([]forecast.SalesRecord, days)
	for i := range history {
		history[i] = forecast.SalesRecord{Date: start.AddDate(0, 0, i), Quantity: qty}
	}
	return history
}

type stubHistory struct {
	mu       sync.Mutex
	series   map[sales.ProductKey][]forecast.SalesRecord
	err      error
	calls    int
	lookback int
	// onLoad runs after the series is read, outside the lock.
	onLoad func()
}

func (s *stubHistory) History(_ context.Context, key sales.ProductKey, lookbackDays int) ([]forecast.SalesRecord, error) {
	s.mu.Lock()
	s.calls++
	s.lookback = lookbackDays
	err, series, hook := s.err, s.series[key], s.onLoad
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return series, nil
}

func (s *stubHistory) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeSummaryStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	ttls   map[string]time.Duration
	gets   int
}

func newFakeSummaryStore() *fakeSummaryStore {
	return &fakeSummaryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeSummaryStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeSummaryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := value.(string)
	if !ok {
		return errors.New("unexpected value type")
	}
	f.data[key] = s
	f.ttls[key] = ttl
	return nil
}

func (f *fakeSummaryStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeSummaryStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	f.ttls[key] = ttl
	return n, nil
}

func (f *fakeSummaryStore) ForecastSummaryKey(shop, productID string) string {
	return "sc:forecast:" + shop + ":" + productID
}

func (f *fakeSummaryStore) ForecastGenerationKey(shop, productID string) string {
	return "sc:forecast_gen:" + shop + ":" + productID
}

func (f *fakeSummaryStore) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}
