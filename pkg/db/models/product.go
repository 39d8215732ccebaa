package models

import (
	"time"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog listing. Rating and NumReviews are derived from reviews.
type Product struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Title              string         `gorm:"column:title;not null;uniqueIndex:idx_products_title"`
	Description        string         `gorm:"column:description;not null;default:''"`
	PriceCents         int64          `gorm:"column:price_cents;not null"`
	DiscountPriceCents int64          `gorm:"column:discount_price_cents;not null;default:0"`
	Stock              int            `gorm:"column:stock;not null;default:0"`
	CategoryID         *uuid.UUID     `gorm:"column:category_id;type:uuid;index"`
	Category           *Category      `gorm:"foreignKey:CategoryID"`
	Images             dbtypes.Images `gorm:"column:images;type:jsonb;not null"`
	Rating             float64        `gorm:"column:rating;not null;default:0"`
	NumReviews         int            `gorm:"column:num_reviews;not null;default:0"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Images == nil {
		p.Images = dbtypes.Images{}
	}
	return nil
}

// EffectivePriceCents is the price a buyer pays today.
func (p *Product) EffectivePriceCents() int64 {
	if p.DiscountPriceCents > 0 && p.DiscountPriceCents < p.PriceCents {
		return p.DiscountPriceCents
	}
	return p.PriceCents
}

// PrimaryImageURL returns the first image URL or an empty string.
func (p *Product) PrimaryImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}
