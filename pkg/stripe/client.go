package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	ModeTest = "test"
	ModeLive = "live"
)

var (
	errAPIKeyRequired = errors.New("stripe api key is required")
	errSecretRequired = errors.New("stripe webhook secret is required")
	errInvalidMode    = fmt.Errorf("stripe environment must be %q or %q", ModeTest, ModeLive)
)

// Secret and restricted key prefixes accepted per mode.
var keyPrefixes = map[string][]string{
	ModeTest: {"sk_test_", "rk_test_"},
	ModeLive: {"sk_live_", "rk_live_"},
}

// Client creates order payment intents and holds the webhook signing secret.
type Client struct {
	api           *stripe.Client
	mode          string
	signingSecret string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode := cfg.Environment()
	prefixes, ok := keyPrefixes[mode]
	if !ok {
		return nil, errInvalidMode
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}
	if !hasAnyPrefix(apiKey, prefixes) {
		return nil, fmt.Errorf("stripe %s mode requires a %s key", mode, strings.Join(prefixes, " or "))
	}

	if logg != nil {
		logg.InfoFields(ctx, "stripe.client_ready", map[string]any{
			"mode":       mode,
			"restricted": strings.HasPrefix(apiKey, "rk_"),
		})
	}

	return &Client{
		api:           stripe.NewClient(apiKey),
		mode:          mode,
		signingSecret: signingSecret,
	}, nil
}

// Mode is ModeTest or ModeLive.
func (c *Client) Mode() string {
	if c == nil {
		return ""
	}
	return c.mode
}

// Live reports whether events and intents are expected to be livemode.
func (c *Client) Live() bool {
	return c.Mode() == ModeLive
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
