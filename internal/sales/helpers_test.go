package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/stockcast-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:sales_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SalesRecord{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, r *Repository, shop, product string, date time.Time, qty int) {
	t.Helper()
	require.NoError(t, r.UpsertDaily(context.Background(), &models.SalesRecord{
		ShopDomain: shop,
		ProductID:  product,
		SoldOn:     date,
		Quantity:   qty,
	}))
}

type recordingInvalidator struct {
	keys []ProductKey
	err  error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, key ProductKey) error {
	r.keys = append(r.keys, key)
	return r.err
}
