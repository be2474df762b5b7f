package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/sales"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"gorm.io/gorm"
)

const salesRetentionDays = 730

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type salesPurger interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type salesPurgerFactory func(tx *gorm.DB) salesPurger

func defaultSalesPurger(tx *gorm.DB) salesPurger {
	return sales.NewRepository(tx)
}

// SalesRetentionJobParams configure the sales history retention job.
type SalesRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Retention     int
	PurgerFactory salesPurgerFactory
}

// NewSalesRetentionJob builds the job that drops sales rows older than the
// retention window.
func NewSalesRetentionJob(params SalesRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = salesRetentionDays
	}
	factory := params.PurgerFactory
	if factory == nil {
		factory = defaultSalesPurger
	}
	return &salesRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		purger:    factory,
		retention: retention,
		now:       time.Now,
	}, nil
}

type salesRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	purger    salesPurgerFactory
	retention int
	now       func() time.Time
}

func (j *salesRetentionJob) Name() string { return JobSalesRetention }

func (j *salesRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purger(tx).DeleteBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("sales retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "sales retention cleanup complete")
	return nil
}
