package sales

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/angelmondragon/stockcast-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const shopA = "acme.myshopify.com"

func TestRepositoryUpsertDailyAccumulates(t *testing.T) {
	db := setupSalesTestDB(t)
	r := NewRepository(db)
	ctx := context.Background()

	seed(t, r, shopA, "101", time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC), 3)
	seed(t, r, shopA, "101", time.Date(2024, time.March, 1, 17, 0, 0, 0, time.UTC), 4)

	var rows []models.SalesRecord
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].Quantity)

	history, err := r.History(ctx, ProductKey{ShopDomain: shopA, ProductID: "101"}, day(2024, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, []forecast.SalesRecord{{Date: day(2024, time.March, 1), Quantity: 7}}, history)
}

func TestRepositoryUpsertDailyRejectsInvalid(t *testing.T) {
	r := NewRepository(setupSalesTestDB(t))
	err := r.UpsertDaily(context.Background(), &models.SalesRecord{ShopDomain: shopA, ProductID: "101", Quantity: -1})
	assert.ErrorIs(t, err, gorm.ErrInvalidValue)
}

func TestRepositoryHistoryFiltersAndOrders(t *testing.T) {
	r := NewRepository(setupSalesTestDB(t))
	ctx := context.Background()

	seed(t, r, shopA, "101", day(2024, time.March, 5), 5)
	seed(t, r, shopA, "101", day(2024, time.March, 2), 2)
	seed(t, r, shopA, "101", day(2024, time.February, 1), 1)
	seed(t, r, shopA, "202", day(2024, time.March, 3), 9)
	seed(t, r, "other.myshopify.com", "101", day(2024, time.March, 3), 9)

	history, err := r.History(ctx, ProductKey{ShopDomain: shopA, ProductID: "101"}, day(2024, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, []forecast.SalesRecord{
		{Date: day(2024, time.March, 2), Quantity: 2},
		{Date: day(2024, time.March, 5), Quantity: 5},
	}, history)
}

func TestRepositoryActiveProducts(t *testing.T) {
	r := NewRepository(setupSalesTestDB(t))
	ctx := context.Background()

	seed(t, r, shopA, "101", day(2024, time.March, 5), 5)
	seed(t, r, shopA, "101", day(2024, time.March, 6), 1)
	seed(t, r, shopA, "202", day(2024, time.January, 6), 1)
	seed(t, r, "beta.myshopify.com", "9", day(2024, time.March, 2), 1)

	keys, err := r.ActiveProducts(ctx, day(2024, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, []ProductKey{
		{ShopDomain: shopA, ProductID: "101"},
		{ShopDomain: "beta.myshopify.com", ProductID: "9"},
	}, keys)
}

func TestRepositoryDeleteBefore(t *testing.T) {
	db := setupSalesTestDB(t)
	r := NewRepository(db)

	seed(t, r, shopA, "101", day(2022, time.January, 1), 1)
	seed(t, r, shopA, "101", day(2023, time.June, 1), 1)
	seed(t, r, shopA, "101", day(2024, time.March, 1), 1)

	deleted, err := r.DeleteBefore(context.Background(), day(2023, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, db.Model(&models.SalesRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
