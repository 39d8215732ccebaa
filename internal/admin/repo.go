package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository runs read-only rollups over the primary store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type revenueRow struct {
	Orders      int64 `gorm:"column:orders"`
	Revenue     int64 `gorm:"column:revenue"`
	PaidRevenue int64 `gorm:"column:paid_revenue"`
	Pending     int64 `gorm:"column:pending"`
}

func (r *Repository) Summary(ctx context.Context) (*Summary, error) {
	conn := r.db.WithContext(ctx)
	out := &Summary{}

	counts := []struct {
		model any
		dest  *int64
	}{
		{&models.User{}, &out.Users},
		{&models.Product{}, &out.Products},
		{&models.Category{}, &out.Categories},
	}
	for _, c := range counts {
		if err := conn.Model(c.model).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	var row revenueRow
	err := conn.Model(&models.Order{}).
		Select(`COUNT(*) AS orders,
			COALESCE(SUM(CASE WHEN status <> ? THEN total_price_cents ELSE 0 END), 0) AS revenue,
			COALESCE(SUM(CASE WHEN status <> ? AND is_paid = ? THEN total_price_cents ELSE 0 END), 0) AS paid_revenue,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending`,
			enums.OrderStatusCancelled, enums.OrderStatusCancelled, true, enums.OrderStatusPending).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	out.Orders = row.Orders
	out.PendingOrders = row.Pending
	out.Revenue = types.Money(row.Revenue)
	out.PaidRevenue = types.Money(row.PaidRevenue)
	return out, nil
}

type monthRow struct {
	Year    int   `gorm:"column:year"`
	Month   int   `gorm:"column:month"`
	Orders  int64 `gorm:"column:orders"`
	Revenue int64 `gorm:"column:revenue"`
}

// MonthlySales groups non-cancelled orders by calendar month (UTC). A nil year covers all time.
func (r *Repository) MonthlySales(ctx context.Context, year *int) ([]monthRow, error) {
	yearExpr, monthExpr := monthParts(db.Dialect(r.db))
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(fmt.Sprintf("%s AS year, %s AS month, COUNT(*) AS orders, COALESCE(SUM(total_price_cents), 0) AS revenue", yearExpr, monthExpr)).
		Where("status <> ?", enums.OrderStatusCancelled)
	if year != nil {
		start := time.Date(*year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("created_at >= ? AND created_at < ?", start, start.AddDate(1, 0, 0))
	}

	var rows []monthRow
	err := query.Group(yearExpr + ", " + monthExpr).
		Order(yearExpr + ", " + monthExpr).
		Scan(&rows).Error
	return rows, err
}

func monthParts(dialect string) (string, string) {
	if dialect == db.DialectSQLite {
		return "CAST(strftime('%Y', created_at) AS INTEGER)", "CAST(strftime('%m', created_at) AS INTEGER)"
	}
	return "CAST(EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC') AS INTEGER)",
		"CAST(EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC') AS INTEGER)"
}

type categoryRow struct {
	CategoryID uuid.UUID `gorm:"column:category_id"`
	Name       string    `gorm:"column:name"`
	Products   int64     `gorm:"column:products"`
}

// CategoryDistribution returns every category (empty ones included) followed by
// the uncategorized bucket when it is non-empty.
func (r *Repository) CategoryDistribution(ctx context.Context) ([]CategoryBucket, error) {
	var rows []categoryRow
	err := r.db.WithContext(ctx).
		Table("categories c").
		Select("c.id AS category_id, c.name AS name, COUNT(p.id) AS products").
		Joins("LEFT JOIN products p ON p.category_id = c.id").
		Group("c.id, c.name").
		Order("products DESC, c.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]CategoryBucket, 0, len(rows)+1)
	for _, row := range rows {
		id := row.CategoryID
		buckets = append(buckets, CategoryBucket{CategoryID: &id, Name: row.Name, Products: row.Products})
	}

	var uncategorized int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id IS NULL").Count(&uncategorized).Error; err != nil {
		return nil, err
	}
	if uncategorized > 0 {
		buckets = append(buckets, CategoryBucket{Name: uncategorizedLabel, Products: uncategorized})
	}
	return buckets, nil
}

func (r *Repository) StatusDistribution(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	var rows []struct {
		Status enums.OrderStatus `gorm:"column:status"`
		Orders int64             `gorm:"column:orders"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS orders").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Orders
	}
	return out, nil
}
