package product

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// CategorySummary is the category embedded in product payloads.
type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ImageDTO is a public product image.
type ImageDTO struct {
	URL string `json:"url"`
}

// ProductDTO is the public shape of a product.
type ProductDTO struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Price          types.Money      `json:"price"`
	DiscountPrice  types.Money      `json:"discount_price"`
	EffectivePrice types.Money      `json:"effective_price"`
	Stock          int              `json:"stock"`
	InStock        bool             `json:"in_stock"`
	CategoryID     *uuid.UUID       `json:"category_id,omitempty"`
	Category       *CategorySummary `json:"category,omitempty"`
	Images         []ImageDTO       `json:"images"`
	Rating         float64          `json:"rating"`
	NumReviews     int              `json:"num_reviews"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Title         string      `json:"title" validate:"required,max=200"`
	Description   string      `json:"description" validate:"max=5000"`
	Price         types.Money `json:"price" validate:"gt=0"`
	DiscountPrice types.Money `json:"discount_price"`
	Stock         int         `json:"stock" validate:"gte=0"`
	CategoryID    *uuid.UUID  `json:"category_id,omitempty"`
}

// UpdateInput holds optional product mutations. ClearCategory detaches the category.
type UpdateInput struct {
	Title         *string      `json:"title,omitempty" validate:"omitempty,max=200"`
	Description   *string      `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price         *types.Money `json:"price,omitempty"`
	DiscountPrice *types.Money `json:"discount_price,omitempty"`
	Stock         *int         `json:"stock,omitempty" validate:"omitempty,gte=0"`
	CategoryID    *uuid.UUID   `json:"category_id,omitempty"`
	ClearCategory bool         `json:"clear_category,omitempty"`
}

// StockInput sets the absolute stock level.
type StockInput struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

// FromModel maps a product row to its public shape.
func FromModel(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Price:          types.Money(p.PriceCents),
		DiscountPrice:  types.Money(p.DiscountPriceCents),
		EffectivePrice: types.Money(p.EffectivePriceCents()),
		Stock:          p.Stock,
		InStock:        p.Stock > 0,
		CategoryID:     p.CategoryID,
		Images:         make([]ImageDTO, 0, len(p.Images)),
		Rating:         p.Rating,
		NumReviews:     p.NumReviews,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	for _, url := range p.Images.URLs() {
		dto.Images = append(dto.Images, ImageDTO{URL: url})
	}
	if p.Category != nil {
		dto.Category = &CategorySummary{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	return dto
}
