package sales

import (
	"context"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/angelmondragon/stockcast-backend/internal/repo"
	"github.com/angelmondragon/stockcast-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists per-day sales aggregates.
type Repository struct {
	repo.Base
}

// NewRepository constructs a sales repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// UpsertDaily inserts the day row or adds the quantity to an existing one.
func (r *Repository) UpsertDaily(ctx context.Context, rec *models.SalesRecord) error {
	if rec.ShopDomain == "" || rec.ProductID == "" || rec.Quantity < 0 {
		return gorm.ErrInvalidValue
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.SoldOn = calendarDay(rec.SoldOn)

	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_domain"}, {Name: "product_id"}, {Name: "sold_on"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("sales_records.quantity + excluded.quantity"),
			"sku":        gorm.Expr("COALESCE(excluded.sku, sales_records.sku)"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(rec).Error
}

// History returns the recorded days for a product on or after since, oldest first.
// Days without a row are absent.
func (r *Repository) History(ctx context.Context, key ProductKey, since time.Time) ([]forecast.SalesRecord, error) {
	var rows []models.SalesRecord
	err := r.DB(ctx).
		Select("sold_on", "quantity").
		Where("shop_domain = ? AND product_id = ? AND sold_on >= ?", key.ShopDomain, key.ProductID, calendarDay(since)).
		Order("sold_on ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	history := make([]forecast.SalesRecord, 0, len(rows))
	for _, row := range rows {
		history = append(history, forecast.SalesRecord{Date: calendarDay(row.SoldOn), Quantity: row.Quantity})
	}
	return history, nil
}

// ActiveProducts lists products with at least one sale row on or after since.
func (r *Repository) ActiveProducts(ctx context.Context, since time.Time) ([]ProductKey, error) {
	var keys []ProductKey
	err := r.DB(ctx).
		Model(&models.SalesRecord{}).
		Distinct("shop_domain", "product_id").
		Where("sold_on >= ?", calendarDay(since)).
		Order("shop_domain ASC").
		Order("product_id ASC").
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteBefore removes rows older than cutoff and returns how many were deleted.
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).
		Where("sold_on < ?", calendarDay(cutoff)).
		Delete(&models.SalesRecord{})
	return res.RowsAffected, res.Error
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
