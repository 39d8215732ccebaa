package orders

import (
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Totals is the server-side price breakdown of an order, in cents.
type Totals struct {
	Items    int64
	Tax      int64
	Shipping int64
	Total    int64
}

// computeTotals prices lines at their snapshot price. Shipping is waived once
// the item subtotal exceeds the free-shipping threshold.
func computeTotals(items []models.OrderItem, pricing config.PricingConfig) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.PriceCents * int64(item.Quantity)
	}
	shipping := pricing.ShippingCents
	if pricing.FreeShippingOverCents > 0 && subtotal > pricing.FreeShippingOverCents {
		shipping = 0
	}
	tax := types.ApplyBasisPoints(subtotal, pricing.TaxBasisPoints)
	return Totals{
		Items:    subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}
