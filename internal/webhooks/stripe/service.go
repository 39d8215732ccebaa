package stripewebhook

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	stripeclient "github.com/angelmondragon/storefront-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

type paymentConfirmer interface {
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, intentID string) (bool, error)
}

type ServiceParams struct {
	Orders paymentConfirmer
	Logger *logger.Logger
}

// Service applies verified Stripe events to orders.
type Service struct {
	orders paymentConfirmer
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	return &Service{orders: params.Orders, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, orderID, err := decodeIntent(event)
		if err != nil {
			return err
		}
		changed, err := s.orders.ConfirmPayment(ctx, orderID, intent.ID)
		if err != nil {
			return err
		}
		if s.logg != nil {
			s.logg.InfoFields(ctx, "payment.confirmed", map[string]any{
				"order_id":          orderID.String(),
				"payment_intent_id": intent.ID,
				"changed":           changed,
			})
		}
		return nil
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, orderID, err := decodeIntent(event)
		if err != nil {
			return err
		}
		if s.logg != nil {
			ctx = s.logg.WithFields(ctx, map[string]any{
				"order_id":          orderID.String(),
				"payment_intent_id": intent.ID,
			})
			s.logg.Warn(ctx, "payment.failed")
		}
		return nil
	default:
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, uuid.UUID, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	raw := intent.Metadata[stripeclient.MetadataOrderID]
	if raw == "" {
		return nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from payment intent metadata")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id in payment intent metadata")
	}
	return &intent, orderID, nil
}
