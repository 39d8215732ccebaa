package admin

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// Summary holds the dashboard headline counters. Revenue excludes cancelled orders.
type Summary struct {
	Users         int64       `json:"users"`
	Products      int64       `json:"products"`
	Categories    int64       `json:"categories"`
	Orders        int64       `json:"orders"`
	PendingOrders int64       `json:"pending_orders"`
	Revenue       types.Money `json:"revenue"`
	PaidRevenue   types.Money `json:"paid_revenue"`
}

type MonthlySales struct {
	Year    int         `json:"year"`
	Month   int         `json:"month"`
	Orders  int64       `json:"orders"`
	Revenue types.Money `json:"revenue"`
}

// CategoryBucket counts products per category. CategoryID is nil for the uncategorized bucket.
type CategoryBucket struct {
	CategoryID *uuid.UUID `json:"category_id"`
	Name       string     `json:"name"`
	Products   int64      `json:"products"`
}

type StatusCount struct {
	Status enums.OrderStatus `json:"status"`
	Orders int64             `json:"orders"`
}

const uncategorizedLabel = "Uncategorized"
