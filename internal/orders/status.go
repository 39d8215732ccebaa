package orders

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *service) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	target := input.Status
	if !target.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", target)
	}

	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.load(ctx, s.repo.WithTx(tx), orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if order.Status == target {
			return nil
		}
		if !input.Override && !order.Status.CanTransitionTo(target) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, target).
				WithDetails(map[string]any{"from": order.Status, "to": target})
		}
		return s.transition(ctx, tx, order, target)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && from != target {
		fields := map[string]any{
			"order_id": orderID.String(),
			"actor_id": actorID.String(),
			"from":     from,
			"to":       target,
		}
		if input.Override {
			s.logg.InfoFields(ctx, "order.status_override", fields)
		} else {
			s.logg.InfoFields(ctx, "order.status_changed", fields)
		}
	}
	return s.reload(ctx, orderID)
}

func (s *service) CancelOwn(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.load(ctx, s.repo.WithTx(tx), orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "only pending orders can be cancelled, order is %s", order.Status)
		}
		return s.transition(ctx, tx, order, enums.OrderStatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.InfoFields(ctx, "order.cancelled_by_owner", map[string]any{"order_id": orderID.String()})
	}
	return s.reload(ctx, orderID)
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.IsPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be paid")
		}
		ok, err := repo.UpdateIfStatus(ctx, orderID, order.Status, map[string]any{"is_paid": true, "paid_at": s.now()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		if !ok {
			return concurrentChange()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.load(ctx, s.repo.WithTx(tx), orderID)
		if err != nil {
			return err
		}
		if order.IsDelivered || order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already delivered")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be delivered")
		}
		return s.transition(ctx, tx, order, enums.OrderStatusDelivered)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) AttachPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error {
	if err := s.repo.Update(ctx, orderID, map[string]any{"payment_intent_id": intentID}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment intent")
	}
	return nil
}

func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID, intentID string) (bool, error) {
	changed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.IsPaid {
			return nil
		}
		if order.PaymentIntentID != nil && intentID != "" && *order.PaymentIntentID != intentID {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment intent does not belong to order")
		}
		if order.Status == enums.OrderStatusCancelled && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "order_id", orderID.String()), "order.paid_after_cancel")
		}
		fields := map[string]any{"is_paid": true, "paid_at": s.now()}
		if intentID != "" {
			fields["payment_intent_id"] = intentID
		}
		if err := repo.Update(ctx, orderID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		changed = true
		return nil
	})
	return changed, err
}

// transition writes the new status with its timestamps and keeps stock in step:
// entering cancelled restocks every line, leaving cancelled takes the units again.
func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus) error {
	now := s.now()
	fields := map[string]any{"status": target}
	switch target {
	case enums.OrderStatusDelivered:
		fields["is_delivered"] = true
		fields["delivered_at"] = now
	case enums.OrderStatusCancelled:
		fields["cancelled_at"] = now
	}
	if order.Status == enums.OrderStatusDelivered && target != enums.OrderStatusDelivered {
		fields["is_delivered"] = false
		fields["delivered_at"] = nil
	}
	if order.Status == enums.OrderStatusCancelled {
		fields["cancelled_at"] = nil
	}

	ok, err := s.repo.WithTx(tx).UpdateIfStatus(ctx, order.ID, order.Status, fields)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if !ok {
		return concurrentChange()
	}

	products := s.products.WithTx(tx)
	switch {
	case target == enums.OrderStatusCancelled:
		for _, item := range order.Items {
			if err := products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock order line")
			}
		}
	case order.Status == enums.OrderStatusCancelled:
		for _, item := range order.Items {
			taken, err := products.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
			}
			if !taken {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "insufficient stock for %q to reopen order", item.Title)
			}
		}
	}
	return nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(order)
	return &dto, nil
}

func concurrentChange() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently, retry")
}
