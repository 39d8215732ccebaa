package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

type stubConfirmer struct {
	calls   []uuid.UUID
	intents []string
	err     error
}

func (s *stubConfirmer) ConfirmPayment(ctx context.Context, orderID uuid.UUID, intentID string) (bool, error) {
	s.calls = append(s.calls, orderID)
	s.intents = append(s.intents, intentID)
	return s.err == nil, s.err
}

func intentEvent(t *testing.T, eventType stripe.EventType, metadata map[string]string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(&stripe.PaymentIntent{ID: "pi_test", Metadata: metadata})
	require.NoError(t, err)
	return &stripe.Event{ID: "evt_" + uuid.NewString(), Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func TestHandleEventConfirmsOrderPayment(t *testing.T) {
	orders := &stubConfirmer{}
	svc, err := NewService(ServiceParams{Orders: orders})
	require.NoError(t, err)

	orderID := uuid.New()
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"order_id": orderID.String()})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	require.Len(t, orders.calls, 1)
	assert.Equal(t, orderID, orders.calls[0])
	assert.Equal(t, "pi_test", orders.intents[0])
}

func TestHandleEventRejectsMissingOrderID(t *testing.T) {
	orders := &stubConfirmer{}
	svc, err := NewService(ServiceParams{Orders: orders})
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, nil))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"order_id": "nope"}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, orders.calls)
}

func TestHandleEventIgnoresOtherEvents(t *testing.T) {
	orders := &stubConfirmer{}
	svc, err := NewService(ServiceParams{Orders: orders})
	require.NoError(t, err)

	orderID := uuid.New()
	require.NoError(t, svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, map[string]string{"order_id": orderID.String()})))
	require.NoError(t, svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypeChargeRefunded, nil)))
	assert.Empty(t, orders.calls)

	assert.True(t, pkgerrors.IsCode(svc.HandleEvent(context.Background(), nil), pkgerrors.CodeValidation))
}

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, 0, "stripe-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Delete(ctx, "evt_1"))
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = guard.CheckAndMark(ctx, "  ")
	assert.ErrorIs(t, err, errEventIDRequired)

	_, err = NewIdempotencyGuard(store, time.Minute, " ")
	assert.Error(t, err)
}
