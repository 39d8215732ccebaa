package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	stripeclient "github.com/angelmondragon/storefront-backend/pkg/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

type intentCreator interface {
	CreatePaymentIntent(ctx context.Context, in stripeclient.PaymentIntentInput) (*stripeclient.PaymentIntent, error)
}

type orderService interface {
	Get(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, orderID uuid.UUID) (*orders.OrderDTO, error)
	AttachPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error
}

// IntentDTO is what the client needs to confirm a card payment.
type IntentDTO struct {
	OrderID         uuid.UUID   `json:"order_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	ClientSecret    string      `json:"client_secret"`
	Amount          types.Money `json:"amount"`
	Currency        string      `json:"currency"`
}

// Service starts card payments for orders.
type Service interface {
	CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*IntentDTO, error)
}

type service struct {
	stripe   intentCreator
	orders   orderService
	currency string
	logg     *logger.Logger
}

func NewService(stripe intentCreator, orders orderService, currency string, logg *logger.Logger) (Service, error) {
	if stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "currency required")
	}
	return &service{stripe: stripe, orders: orders, currency: currency, logg: logg}, nil
}

func (s *service) CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*IntentDTO, error) {
	order, err := s.orders.Get(ctx, userID, enums.RoleUser, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodCard {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid by card")
	}
	if order.IsPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	intent, err := s.stripe.CreatePaymentIntent(ctx, stripeclient.PaymentIntentInput{
		AmountCents:    order.TotalPrice.Cents(),
		Currency:       s.currency,
		OrderID:        order.ID.String(),
		ReceiptEmail:   order.Customer.Email,
		IdempotencyKey: fmt.Sprintf("order-%s-%d", order.ID, order.TotalPrice.Cents()),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	if err := s.orders.AttachPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.InfoFields(ctx, "payment.intent_created", map[string]any{
			"order_id":          order.ID.String(),
			"payment_intent_id": intent.ID,
		})
	}
	return &IntentDTO{
		OrderID:         order.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          order.TotalPrice,
		Currency:        s.currency,
	}, nil
}
