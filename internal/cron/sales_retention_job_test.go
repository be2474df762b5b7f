package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"gorm.io/gorm"
)

func TestSalesRetentionJobDeletesOldRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 3, 0, 0, 0, time.UTC)
	purger := &fakeSalesPurger{}
	job := newSalesRetentionJob(t, purger, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.AddDate(0, 0, -salesRetentionDays)
	if !purger.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, purger.lastCutoff)
	}
	if purger.called != 1 {
		t.Fatalf("expected purger called once, got %d", purger.called)
	}
}

func TestSalesRetentionJobHonoursCustomWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	purger := &fakeSalesPurger{}
	job := newSalesRetentionJob(t, purger, 90)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC); !purger.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, purger.lastCutoff)
	}
}

func TestSalesRetentionJobPropagatesError(t *testing.T) {
	job := newSalesRetentionJob(t, &fakeSalesPurger{err: errors.New("boom")}, 0)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewSalesRetentionJobRequiresDependencies(t *testing.T) {
	if _, err := NewSalesRetentionJob(SalesRetentionJobParams{DB: passthroughTxRunner{}}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewSalesRetentionJob(SalesRetentionJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected db error")
	}
}

func newSalesRetentionJob(t *testing.T, purger *fakeSalesPurger, retention int) *salesRetentionJob {
	t.Helper()
	jobIface, err := NewSalesRetentionJob(SalesRetentionJobParams{
		Logger:        testLogger(),
		DB:            passthroughTxRunner{},
		Retention:     retention,
		PurgerFactory: func(*gorm.DB) salesPurger { return purger },
	})
	if err != nil {
		t.Fatalf("NewSalesRetentionJob: %v", err)
	}
	job, ok := jobIface.(*salesRetentionJob)
	if !ok {
		t.Fatalf("expected salesRetentionJob, got %T", jobIface)
	}
	if job.Name() != "sales-retention" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	return job
}

type fakeSalesPurger struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeSalesPurger) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 4, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}
