package sales

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/angelmondragon/stockcast-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/stockcast-backend/pkg/errors"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceNow = time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, inv Invalidator) (Service, *Repository) {
	t.Helper()
	conn := setupSalesTestDB(t)
	r := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		DB:          db.NewFromConn(conn),
		Repo:        r,
		Invalidator: inv,
		Now:         func() time.Time { return serviceNow },
	})
	require.NoError(t, err)
	return svc, r
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

func TestDefaultClocksAreUTC(t *testing.T) {
	conn := setupSalesTestDB(t)
	r := NewRepository(conn)

	reader := NewHistoryReader(r, nil)
	assert.Equal(t, time.UTC, reader.now().Location())

	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		DB:     db.NewFromConn(conn),
		Repo:   r,
	})
	require.NoError(t, err)
	impl, ok := svc.(*service)
	require.True(t, ok)
	assert.Equal(t, time.UTC, impl.now().Location())
	assert.Equal(t, time.UTC, impl.history.now().Location())
}

func TestRecordStoresAndInvalidates(t *testing.T) {
	inv := &recordingInvalidator{}
	svc, r := newTestService(t, inv)

	res, err := svc.Record(context.Background(), " ACME.myshopify.com ", RecordInput{Sales: []DailySale{
		{ProductID: "202", Date: day(2024, time.March, 9), Quantity: 4, SKU: "TEE-M"},
		{ProductID: "101", Date: day(2024, time.March, 9), Quantity: 2},
		{ProductID: "101", Date: day(2024, time.March, 9), Quantity: 3},
	}})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Accepted)
	want := []ProductKey{{ShopDomain: shopA, ProductID: "101"}, {ShopDomain: shopA, ProductID: "202"}}
	assert.Equal(t, want, res.Products)
	assert.Equal(t, want, inv.keys)

	history, err := r.History(context.Background(), want[0], day(2024, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, []forecast.SalesRecord{{Date: day(2024, time.March, 9), Quantity: 5}}, history)
}

func TestRecordInvalidationFailureIsNotFatal(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("redis down")}
	svc, _ := newTestService(t, inv)

	_, err := svc.Record(context.Background(), shopA, RecordInput{Sales: []DailySale{
		{ProductID: "101", Date: day(2024, time.March, 9), Quantity: 1},
	}})
	assert.NoError(t, err)
	assert.Len(t, inv.keys, 1)
}

func TestRecordValidation(t *testing.T) {
	svc, r := newTestService(t, nil)
	ctx := context.Background()

	cases := map[string]struct {
		shop  string
		input RecordInput
	}{
		"missing shop":     {shop: " ", input: RecordInput{Sales: []DailySale{{ProductID: "1", Date: day(2024, time.March, 1)}}}},
		"empty batch":      {shop: shopA},
		"missing product":  {shop: shopA, input: RecordInput{Sales: []DailySale{{Date: day(2024, time.March, 1)}}}},
		"negative qty":     {shop: shopA, input: RecordInput{Sales: []DailySale{{ProductID: "1", Date: day(2024, time.March, 1), Quantity: -2}}}},
		"missing date":     {shop: shopA, input: RecordInput{Sales: []DailySale{{ProductID: "1"}}}},
		"future date":      {shop: shopA, input: RecordInput{Sales: []DailySale{{ProductID: "1", Date: day(2024, time.March, 11)}}}},
		"later bad record": {shop: shopA, input: RecordInput{Sales: []DailySale{{ProductID: "1", Date: day(2024, time.March, 1)}, {ProductID: "1", Date: day(2024, time.April, 1)}}}},
		"long product id":  {shop: shopA, input: RecordInput{Sales: []DailySale{{ProductID: strings.Repeat("p", 65), Date: day(2024, time.March, 1)}}}},
		"long sku":         {shop: shopA, input: RecordInput{Sales: []DailySale{{ProductID: "1", SKU: strings.Repeat("s", 129), Date: day(2024, time.March, 1)}}}},
		"oversized batch":  {shop: shopA, input: RecordInput{Sales: make([]DailySale, MaxBatchSize+1)}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Record(ctx, tc.shop, tc.input)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}

	// Nothing from the rejected batches was written.
	keys, err := r.ActiveProducts(ctx, day(2000, time.January, 1))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRecordAcceptsToday(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Record(context.Background(), shopA, RecordInput{Sales: []DailySale{
		{ProductID: "1", Date: time.Date(2024, time.March, 10, 23, 0, 0, 0, time.UTC), Quantity: 1},
	}})
	assert.NoError(t, err)
}

func TestHistoryIsDenseAndExcludesToday(t *testing.T) {
	svc, r := newTestService(t, nil)
	ctx := context.Background()
	seed(t, r, shopA, "101", day(2024, time.March, 6), 4)
	seed(t, r, shopA, "101", day(2024, time.March, 8), 2)
	seed(t, r, shopA, "101", day(2024, time.March, 10), 9)

	history, err := svc.History(ctx, ProductKey{ShopDomain: "Acme.myshopify.com", ProductID: "101"}, 30)
	require.NoError(t, err)
	assert.Equal(t, []forecast.SalesRecord{
		{Date: day(2024, time.March, 6), Quantity: 4},
		{Date: day(2024, time.March, 7), Quantity: 0},
		{Date: day(2024, time.March, 8), Quantity: 2},
		{Date: day(2024, time.March, 9), Quantity: 0},
	}, history)
}

func TestHistoryRespectsLookback(t *testing.T) {
	svc, r := newTestService(t, nil)
	seed(t, r, shopA, "101", day(2024, time.January, 1), 4)
	seed(t, r, shopA, "101", day(2024, time.March, 8), 2)

	history, err := svc.History(context.Background(), ProductKey{ShopDomain: shopA, ProductID: "101"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []forecast.SalesRecord{
		{Date: day(2024, time.March, 8), Quantity: 2},
		{Date: day(2024, time.March, 9), Quantity: 0},
	}, history)
}

func TestHistoryValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.History(ctx, ProductKey{ShopDomain: shopA}, 30)
	assert.Error(t, err)
	_, err = svc.History(ctx, ProductKey{ShopDomain: shopA, ProductID: "1"}, 0)
	assert.Error(t, err)

	history, err := svc.History(ctx, ProductKey{ShopDomain: shopA, ProductID: "unknown"}, 30)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDensify(t *testing.T) {
	sparse := []forecast.SalesRecord{
		{Date: day(2024, time.March, 3), Quantity: 1},
		{Date: day(2024, time.March, 1), Quantity: 2},
		{Date: day(2024, time.March, 3), Quantity: 5},
		{Date: day(2024, time.March, 5), Quantity: 7},
	}

	dense := Densify(sparse, day(2024, time.March, 5))
	assert.Equal(t, []forecast.SalesRecord{
		{Date: day(2024, time.March, 1), Quantity: 2},
		{Date: day(2024, time.March, 2), Quantity: 0},
		{Date: day(2024, time.March, 3), Quantity: 6},
		{Date: day(2024, time.March, 4), Quantity: 0},
	}, dense)

	assert.Empty(t, Densify(nil, day(2024, time.March, 5)))
	assert.Empty(t, Densify(sparse, day(2024, time.March, 1)))
}
