package sales

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/angelmondragon/stockcast-backend/pkg/db"
	"github.com/angelmondragon/stockcast-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockcast-backend/pkg/errors"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Invalidator drops derived state for products whose sales changed.
type Invalidator interface {
	Invalidate(ctx context.Context, key ProductKey) error
}

// ServiceParams groups dependencies for the sales service.
type ServiceParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repo        *Repository
	Invalidator Invalidator
	Now         func() time.Time
}

// Service records and reads daily sales.
type Service interface {
	Record(ctx context.Context, shop string, input RecordInput) (RecordResult, error)
	History(ctx context.Context, key ProductKey, lookbackDays int) ([]forecast.SalesRecord, error)
}

type service struct {
	logg        *logger.Logger
	db          txRunner
	repo        *Repository
	history     *HistoryReader
	invalidator Invalidator
	now         func() time.Time
}

// NewService builds a sales service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	now := params.Now
	if now == nil {
		now = utcNow
	}
	return &service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repo,
		history:     NewHistoryReader(params.Repo, now),
		invalidator: params.Invalidator,
		now:         now,
	}, nil
}

// Record stores a batch of daily sales in one transaction and invalidates the
// forecasts of every product it touched.
func (s *service) Record(ctx context.Context, shop string, input RecordInput) (RecordResult, error) {
	shop = normalizeShop(shop)
	if shop == "" {
		return RecordResult{}, pkgerrors.New(pkgerrors.CodeValidation, "shop domain is required")
	}
	if len(input.Sales) == 0 {
		return RecordResult{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one sale is required")
	}
	if len(input.Sales) > MaxBatchSize {
		return RecordResult{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d sales per batch", MaxBatchSize))
	}

	today := calendarDay(s.now())
	rows := make([]models.SalesRecord, 0, len(input.Sales))
	seen := map[ProductKey]struct{}{}
	keys := make([]ProductKey, 0)
	for i, sale := range input.Sales {
		productID := strings.TrimSpace(sale.ProductID)
		switch {
		case productID == "":
			return RecordResult{}, invalidSale(i, "product id is required")
		case len(productID) > maxProductIDLen:
			return RecordResult{}, invalidSale(i, "product id is too long")
		case len(strings.TrimSpace(sale.SKU)) > maxSKULen:
			return RecordResult{}, invalidSale(i, "sku is too long")
		case sale.Quantity < 0:
			return RecordResult{}, invalidSale(i, "quantity must be non-negative")
		case sale.Date.IsZero():
			return RecordResult{}, invalidSale(i, "date is required")
		case calendarDay(sale.Date).After(today):
			return RecordResult{}, invalidSale(i, "date is in the future")
		}

		row := models.SalesRecord{
			ShopDomain: shop,
			ProductID:  productID,
			SoldOn:     calendarDay(sale.Date),
			Quantity:   sale.Quantity,
		}
		if sku := strings.TrimSpace(sale.SKU); sku != "" {
			row.SKU = &sku
		}
		rows = append(rows, row)

		key := ProductKey{ShopDomain: shop, ProductID: productID}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i := range rows {
			if err := txRepo.UpsertDaily(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return RecordResult{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sales row already exists")
		}
		return RecordResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sales")
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	s.invalidate(ctx, keys)

	ctx = s.logg.WithFields(ctx, map[string]any{"shop_domain": shop, "rows": len(rows), "products": len(keys)})
	s.logg.Info(ctx, "sales.record.complete")
	return RecordResult{Accepted: len(rows), Products: keys}, nil
}

// History returns the dense daily series for key; see HistoryReader.
func (s *service) History(ctx context.Context, key ProductKey, lookbackDays int) ([]forecast.SalesRecord, error) {
	return s.history.History(ctx, key, lookbackDays)
}

func (s *service) invalidate(ctx context.Context, keys []ProductKey) {
	if s.invalidator == nil {
		return
	}
	for _, key := range keys {
		if err := s.invalidator.Invalidate(ctx, key); err != nil {
			keyCtx := s.logg.WithFields(ctx, map[string]any{"shop_domain": key.ShopDomain, "product_id": key.ProductID})
			s.logg.Warn(keyCtx, "sales.invalidate.failed: "+err.Error())
		}
	}
}

const (
	// MaxBatchSize bounds one Record call.
	MaxBatchSize    = 500
	maxProductIDLen = 64
	maxSKULen       = 128
)

func invalidSale(index int, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"index": index})
}

func normalizeShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}
