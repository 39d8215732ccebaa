package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	errAPIKeyRequired = errors.New("sendgrid api key is required")
	errFromRequired   = errors.New("sendgrid from email is required")
)

// Message is a single transactional email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Client sends transactional email through SendGrid.
type Client struct {
	sender sender
	from   *mail.Email
	logg   *logger.Logger
}

// NewClient builds a SendGrid client from config.
func NewClient(cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	return newClient(sendgrid.NewSendClient(apiKey), cfg, logg)
}

func newClient(s sender, cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		return nil, errFromRequired
	}
	return &Client{
		sender: s,
		from:   mail.NewEmail(cfg.FromName, from),
		logg:   logg,
	}, nil
}

// Send delivers msg; any non-2xx response is an error.
func (c *Client) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("recipient is required")
	}
	email := mail.NewSingleEmail(c.from, msg.Subject, mail.NewEmail("", to), msg.Text, msg.HTML)
	resp, err := c.sender.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	if c.logg != nil {
		c.logg.Debug(c.logg.WithField(ctx, "status", resp.StatusCode), "mailer.sent")
	}
	return nil
}
