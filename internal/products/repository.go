package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const effectivePriceExpr = "CASE WHEN p.discount_price_cents > 0 AND p.discount_price_cents < p.price_cents THEN p.discount_price_cents ELSE p.price_cents END"

// Repository handles product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository for the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a product with its category.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the products for the ids that exist, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// TitleTaken reports whether another product already uses the title.
func (r *Repository) TitleTaken(ctx context.Context, title string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("title = ?", title)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update applies column changes; gorm.ErrRecordNotFound when the product is gone.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetImages replaces the stored image list.
func (r *Repository) SetImages(ctx context.Context, id uuid.UUID, images dbtypes.Images) error {
	return r.Update(ctx, id, map[string]any{"images": images})
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock removes qty units only when enough stock remains. It returns
// false when the row is missing or short.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementStock puts qty units back. Missing products are skipped.
func (r *Repository) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", qty)
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

// UpdateRating stores the derived review aggregate.
func (r *Repository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, numReviews int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"rating": rating, "num_reviews": numReviews}).Error
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error
	return count, err
}

// List returns one page of products matching the query and the total match count.
func (r *Repository) List(ctx context.Context, query productListQuery) ([]models.Product, int64, error) {
	page := pagination.NormalizePage(query.Page)

	base := r.db.WithContext(ctx).Table("products p")
	if keyword := strings.ToLower(strings.TrimSpace(query.Keyword)); keyword != "" {
		base = base.Where("LOWER(p.title) LIKE ? ESCAPE '\\'", "%"+escapeLike(keyword)+"%")
	}
	if len(query.CategoryIDs) > 0 {
		base = base.Where("p.category_id IN ?", query.CategoryIDs)
	}
	if query.MinPriceCents != nil {
		base = base.Where(effectivePriceExpr+" >= ?", *query.MinPriceCents)
	}
	if query.MaxPriceCents != nil {
		base = base.Where(effectivePriceExpr+" <= ?", *query.MaxPriceCents)
	}
	if query.MinRating != nil {
		base = base.Where("p.rating >= ?", *query.MinRating)
	}
	if query.InStock {
		base = base.Where("p.stock > 0")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ids []uuid.UUID
	if err := base.Session(&gorm.Session{}).
		Order(orderFor(query.Sort)).
		Limit(page.Limit).
		Offset(page.Offset()).
		Pluck("p.id", &ids).Error; err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []models.Product{}, total, nil
	}

	var rows []models.Product
	if err := r.db.WithContext(ctx).Preload("Category").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, total, nil
}

func orderFor(sort enums.ProductSort) string {
	switch sort {
	case enums.ProductSortPriceAsc:
		return effectivePriceExpr + " ASC, p.id ASC"
	case enums.ProductSortPriceDesc:
		return effectivePriceExpr + " DESC, p.id ASC"
	case enums.ProductSortRating:
		return "p.rating DESC, p.num_reviews DESC, p.id ASC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(value)
}
