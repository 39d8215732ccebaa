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

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByUser pages newest first; the returned cursor is the last row of the page.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

func (r *repository) List(ctx context.Context, query ListQuery, page pagination.Page) ([]models.Order, int64, error) {
	page = pagination.NormalizePage(page)
	base := r.db.WithContext(ctx).Model(&models.Order{})
	if query.Status != nil {
		base = base.Where("status = ?", *query.Status)
	}
	if query.PaymentMethod != nil {
		base = base.Where("payment_method = ?", *query.PaymentMethod)
	}
	if query.IsPaid != nil {
		base = base.Where("is_paid = ?", *query.IsPaid)
	}
	if query.UserID != nil {
		base = base.Where("user_id = ?", *query.UserID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := base.Session(&gorm.Session{}).
		Preload("Items", orderedItems).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SettleCOD marks aged, unpaid, non-cancelled cash-on-delivery orders as paid.
// markDelivered also closes them out as delivered.
func (r *repository) SettleCOD(ctx context.Context, cutoff, now time.Time, markDelivered bool) (int64, error) {
	fields := map[string]any{
		"is_paid":    true,
		"paid_at":    now,
		"updated_at": now,
	}
	if markDelivered {
		fields["status"] = enums.OrderStatusDelivered
		fields["is_delivered"] = true
		fields["delivered_at"] = now
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_method = ? AND is_paid = ? AND created_at < ? AND status <> ?",
			enums.PaymentMethodCOD, false, cutoff, enums.OrderStatusCancelled).
		UpdateColumns(fields)
	return res.RowsAffected, res.Error
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
