package cart

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// AddItemInput adds qty units of a product to the caller's cart.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// UpdateQuantityInput sets a line's quantity; 0 removes the line.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// ItemDTO is one cart line. Price is the snapshot taken when the line was created.
type ItemDTO struct {
	ProductID uuid.UUID   `json:"product_id"`
	Title     string      `json:"title"`
	ImageURL  string      `json:"image_url,omitempty"`
	Quantity  int         `json:"quantity"`
	Price     types.Money `json:"price"`
	LineTotal types.Money `json:"line_total"`
	Stock     int         `json:"stock"`
}

// CartDTO is the caller's cart with a computed subtotal.
type CartDTO struct {
	ID        *uuid.UUID  `json:"id,omitempty"`
	Items     []ItemDTO   `json:"items"`
	ItemCount int         `json:"item_count"`
	Subtotal  types.Money `json:"subtotal"`
}

func FromModel(c *models.Cart) CartDTO {
	dto := CartDTO{Items: []ItemDTO{}}
	if c == nil {
		return dto
	}
	id := c.ID
	dto.ID = &id
	var subtotal int64
	for _, item := range c.Items {
		line := ItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     types.Money(item.PriceCents),
			LineTotal: types.Money(item.PriceCents * int64(item.Quantity)),
		}
		if item.Product != nil {
			line.Title = item.Product.Title
			line.ImageURL = item.Product.PrimaryImageURL()
			line.Stock = item.Product.Stock
		}
		subtotal += item.PriceCents * int64(item.Quantity)
		dto.ItemCount += item.Quantity
		dto.Items = append(dto.Items, line)
	}
	dto.Subtotal = types.Money(subtotal)
	return dto
}
