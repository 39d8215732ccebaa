package admin

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/testutil"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := testutil.OpenDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func seedOrders(t *testing.T, conn *gorm.DB) {
	t.Helper()
	user := testutil.MustCreateUser(t, conn, enums.RoleUser)
	rows := []models.Order{
		{Status: enums.OrderStatusPending, TotalPriceCents: 1000, CreatedAt: at(2025, time.December, 30)},
		{Status: enums.OrderStatusDelivered, TotalPriceCents: 2500, IsPaid: true, CreatedAt: at(2026, time.January, 3)},
		{Status: enums.OrderStatusShipped, TotalPriceCents: 500, CreatedAt: at(2026, time.January, 20)},
		{Status: enums.OrderStatusCancelled, TotalPriceCents: 9900, IsPaid: true, CreatedAt: at(2026, time.January, 21)},
		{Status: enums.OrderStatusProcessing, TotalPriceCents: 4000, IsPaid: true, CreatedAt: at(2026, time.March, 2)},
	}
	for i := range rows {
		rows[i].UserID = user.ID
		testutil.MustCreateOrder(t, conn, &rows[i])
	}
}

func TestSummary(t *testing.T) {
	svc, conn := newTestService(t)
	seedOrders(t, conn)
	category := testutil.MustCreateCategory(t, conn, "Shoes", nil)
	testutil.MustCreateProduct(t, conn, 1000, 1, &category.ID)
	testutil.MustCreateProduct(t, conn, 1000, 1, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Users)
	assert.Equal(t, int64(2), summary.Products)
	assert.Equal(t, int64(1), summary.Categories)
	assert.Equal(t, int64(5), summary.Orders)
	assert.Equal(t, int64(1), summary.PendingOrders)
	assert.Equal(t, types.Money(8000), summary.Revenue, "cancelled orders excluded")
	assert.Equal(t, types.Money(6500), summary.PaidRevenue)
}

func TestSummaryEmptyStore(t *testing.T) {
	svc, _ := newTestService(t)
	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Orders)
	assert.Zero(t, summary.Revenue)
}

func TestMonthlySales(t *testing.T) {
	svc, conn := newTestService(t)
	seedOrders(t, conn)
	ctx := context.Background()

	all, err := svc.MonthlySales(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, MonthlySales{Year: 2025, Month: 12, Orders: 1, Revenue: 1000}, all[0])

	year := 2026
	sales, err := svc.MonthlySales(ctx, &year)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, MonthlySales{Year: 2026, Month: 1, Orders: 2, Revenue: 3000}, sales[0])
	assert.Equal(t, MonthlySales{Year: 2026, Month: 3, Orders: 1, Revenue: 4000}, sales[1])

	bad := 12
	_, err = svc.MonthlySales(ctx, &bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCategoryDistribution(t *testing.T) {
	svc, conn := newTestService(t)
	shoes := testutil.MustCreateCategory(t, conn, "Shoes", nil)
	testutil.MustCreateCategory(t, conn, "Hats", nil)
	testutil.MustCreateProduct(t, conn, 1000, 1, &shoes.ID)
	testutil.MustCreateProduct(t, conn, 1000, 1, &shoes.ID)
	testutil.MustCreateProduct(t, conn, 1000, 1, nil)

	buckets, err := svc.CategoryDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, "Shoes", buckets[0].Name)
	assert.Equal(t, int64(2), buckets[0].Products)
	require.NotNil(t, buckets[0].CategoryID)
	assert.Equal(t, shoes.ID, *buckets[0].CategoryID)
	assert.Equal(t, "Hats", buckets[1].Name)
	assert.Zero(t, buckets[1].Products)
	assert.Nil(t, buckets[2].CategoryID)
	assert.Equal(t, uncategorizedLabel, buckets[2].Name)
	assert.Equal(t, int64(1), buckets[2].Products)
}

func TestStatusDistributionListsEveryStatus(t *testing.T) {
	svc, conn := newTestService(t)
	seedOrders(t, conn)

	counts, err := svc.StatusDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 5)
	byStatus := map[enums.OrderStatus]int64{}
	for _, c := range counts {
		byStatus[c.Status] = c.Orders
	}
	assert.Equal(t, int64(1), byStatus[enums.OrderStatusPending])
	assert.Equal(t, int64(1), byStatus[enums.OrderStatusCancelled])
	assert.Equal(t, enums.OrderStatusPending, counts[0].Status)
}
