package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// UpdateIfStatus applies fields only while the order still has the expected status.
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, fields map[string]any) (bool, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error)
	List(ctx context.Context, query ListQuery, page pagination.Page) ([]models.Order, int64, error)
	SettleCOD(ctx context.Context, cutoff, now time.Time, markDelivered bool) (int64, error)
}

type customerDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
