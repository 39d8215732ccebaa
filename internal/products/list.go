package product

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ListProductsInput captures catalog filters. Prices are in cents and compare against the effective price.
type ListProductsInput struct {
	Keyword       string
	CategoryID    *uuid.UUID
	MinPriceCents *int64
	MaxPriceCents *int64
	MinRating     *float64
	InStock       bool
	Sort          enums.ProductSort
	Page          pagination.Page
}

// ProductListResult is one page of products.
type ProductListResult struct {
	Products []ProductDTO        `json:"products"`
	Meta     pagination.PageMeta `json:"meta"`
}

type productListQuery struct {
	Keyword       string
	CategoryIDs   []uuid.UUID
	MinPriceCents *int64
	MaxPriceCents *int64
	MinRating     *float64
	InStock       bool
	Sort          enums.ProductSort
	Page          pagination.Page
}
