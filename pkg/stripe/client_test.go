package stripe

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Secret: "whsec_x"}, nil)
	assert.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123"}, nil)
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_x", Env: "test"}, nil)
	assert.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_x", Env: "staging"}, nil)
	assert.ErrorIs(t, err, errInvalidMode)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_testing", Secret: "whsec_x"}, nil)
	assert.Error(t, err)

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Secret: " whsec_x ", Env: "TEST"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeTest, client.Mode())
	assert.False(t, client.Live())
	assert.Equal(t, "whsec_x", client.SigningSecret())

	client, err = NewClient(ctx, config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec_x", Env: "live"}, nil)
	require.NoError(t, err)
	assert.True(t, client.Live())
}

func TestCreatePaymentIntentValidatesInput(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_x"}, nil)
	require.NoError(t, err)

	_, err = client.CreatePaymentIntent(context.Background(), PaymentIntentInput{AmountCents: 0, Currency: "usd"})
	assert.Error(t, err)

	_, err = client.CreatePaymentIntent(context.Background(), PaymentIntentInput{AmountCents: 100})
	assert.Error(t, err)

	var nilClient *Client
	_, err = nilClient.CreatePaymentIntent(context.Background(), PaymentIntentInput{AmountCents: 100, Currency: "usd"})
	assert.Error(t, err)
	assert.Empty(t, nilClient.SigningSecret())
	assert.False(t, nilClient.Live())
}
