package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// ShippingAddress is where an order ships.
type ShippingAddress struct {
	Address    string `json:"address" validate:"required,max=300"`
	City       string `json:"city" validate:"required,max=120"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=80"`
}

// MaxLineQuantity caps a single product's quantity in one order, after duplicate lines are merged.
const MaxLineQuantity = 10000

// PlaceOrderItem requests qty units of a product.
type PlaceOrderItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0,lte=10000"`
}

// PlaceOrderInput is the checkout payload. TotalPrice is optional; when sent it must
// match the server-computed total.
type PlaceOrderInput struct {
	Items         []PlaceOrderItem    `json:"items" validate:"required,min=1,dive"`
	Shipping      ShippingAddress     `json:"shipping_address" validate:"required"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	Phone         string              `json:"phone" validate:"omitempty,max=32"`
	TotalPrice    *types.Money        `json:"total_price,omitempty"`
	ClearCart     bool                `json:"clear_cart"`
}

// UpdateStatusInput moves an order through the state machine. Override lets an
// admin jump to any valid status.
type UpdateStatusInput struct {
	Status   enums.OrderStatus `json:"status" validate:"required"`
	Override bool              `json:"override"`
}

// SettleOptions selects the COD sweep variant.
type SettleOptions struct {
	MarkDelivered bool
}

// ListQuery filters the admin order listing.
type ListQuery struct {
	Status        *enums.OrderStatus
	PaymentMethod *enums.PaymentMethod
	IsPaid        *bool
	UserID        *uuid.UUID
}

// ItemDTO is a snapshotted order line.
type ItemDTO struct {
	ProductID uuid.UUID   `json:"product_id"`
	Title     string      `json:"title"`
	ImageURL  string      `json:"image_url,omitempty"`
	Quantity  int         `json:"quantity"`
	Price     types.Money `json:"price"`
}

// CustomerDTO is the buyer snapshot taken at placement.
type CustomerDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// OrderDTO is the public shape of an order.
type OrderDTO struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	Customer      CustomerDTO         `json:"customer"`
	Shipping      ShippingAddress     `json:"shipping_address"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Items         []ItemDTO           `json:"items"`
	ItemsPrice    types.Money         `json:"items_price"`
	TaxPrice      types.Money         `json:"tax_price"`
	ShippingPrice types.Money         `json:"shipping_price"`
	TotalPrice    types.Money         `json:"total_price"`
	Status        enums.OrderStatus   `json:"status"`
	IsPaid        bool                `json:"is_paid"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	IsDelivered   bool                `json:"is_delivered"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// MineResult is one cursor page of the caller's orders.
type MineResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ListResult is one page of the admin order listing.
type ListResult struct {
	Orders []OrderDTO          `json:"orders"`
	Meta   pagination.PageMeta `json:"meta"`
}

func FromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:     o.ID,
		UserID: o.UserID,
		Customer: CustomerDTO{
			Name:  o.CustomerName,
			Email: o.CustomerEmail,
			Phone: o.CustomerPhone,
		},
		Shipping: ShippingAddress{
			Address:    o.ShippingAddress,
			City:       o.ShippingCity,
			PostalCode: o.ShippingPostalCode,
			Country:    o.ShippingCountry,
		},
		PaymentMethod: o.PaymentMethod,
		Items:         make([]ItemDTO, 0, len(o.Items)),
		ItemsPrice:    types.Money(o.ItemsPriceCents),
		TaxPrice:      types.Money(o.TaxPriceCents),
		ShippingPrice: types.Money(o.ShippingPriceCents),
		TotalPrice:    types.Money(o.TotalPriceCents),
		Status:        o.Status,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   o.DeliveredAt,
		CancelledAt:   o.CancelledAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
			Price:     types.Money(item.PriceCents),
		})
	}
	return dto
}
