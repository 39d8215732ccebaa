package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// PaymentIntentInput describes a payment intent for a single order.
type PaymentIntentInput struct {
	AmountCents    int64
	Currency       string
	OrderID        string
	ReceiptEmail   string
	IdempotencyKey string
}

// PaymentIntent is the subset of Stripe's payment intent the API hands back to clients.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// CreatePaymentIntent creates a card payment intent tagged with the order id.
func (c *Client) CreatePaymentIntent(ctx context.Context, in PaymentIntentInput) (*PaymentIntent, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if in.AmountCents <= 0 {
		return nil, errors.New("payment amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		return nil, errors.New("currency is required")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(in.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	if in.OrderID != "" {
		params.AddMetadata(MetadataOrderID, in.OrderID)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	pi, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// MetadataOrderID is the metadata key carrying the order id on payment intents.
const MetadataOrderID = "order_id"
