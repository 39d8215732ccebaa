package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var errCredentialsRequired = errors.New("twilio account sid, auth token and from number are required")

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Client sends text messages through Twilio.
type Client struct {
	api  messageCreator
	from string
	logg *logger.Logger
}

// NewClient builds a Twilio REST client from config.
func NewClient(cfg config.TwilioConfig, logg *logger.Logger) (*Client, error) {
	sid := strings.TrimSpace(cfg.AccountSID)
	token := strings.TrimSpace(cfg.AuthToken)
	if sid == "" || token == "" {
		return nil, errCredentialsRequired
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Username: sid, Password: token})
	return newClient(rest.Api, cfg.FromNumber, logg)
}

func newClient(api messageCreator, from string, logg *logger.Logger) (*Client, error) {
	from = strings.TrimSpace(from)
	if api == nil || from == "" {
		return nil, errCredentialsRequired
	}
	return &Client{api: api, from: from, logg: logg}, nil
}

// Send delivers body to the given phone number.
func (c *Client) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("recipient is required")
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	msg, err := c.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	if c.logg != nil && msg != nil && msg.Sid != nil {
		c.logg.Debug(c.logg.WithField(ctx, "message_sid", *msg.Sid), "sms.sent")
	}
	return nil
}
