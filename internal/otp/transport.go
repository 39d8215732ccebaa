package otp

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
)

const (
	TransportProvider = "provider"
	TransportLog      = "log"
)

// Transport delivers a plaintext code to its contact.
type Transport interface {
	Deliver(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error
}

type emailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type smsSender interface {
	Send(ctx context.Context, to, body string) error
}

// ProviderTransport routes email contacts to the mailer and phone numbers to SMS.
type ProviderTransport struct {
	email emailSender
	sms   smsSender
}

// NewProviderTransport accepts nil senders; deliveries over a missing channel fail.
func NewProviderTransport(email emailSender, sms smsSender) *ProviderTransport {
	return &ProviderTransport{email: email, sms: sms}
}

func (t *ProviderTransport) Deliver(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error {
	body := messageBody(purpose, code)
	if users.IsEmail(contact) {
		if t.email == nil {
			return fmt.Errorf("email delivery not configured")
		}
		return t.email.Send(ctx, mailer.Message{
			To:      contact,
			Subject: messageSubject(purpose),
			Text:    body,
			HTML:    "<p>" + body + "</p>",
		})
	}
	if t.sms == nil {
		return fmt.Errorf("sms delivery not configured")
	}
	return t.sms.Send(ctx, contact, body)
}

// LogTransport writes codes to the log. Development only.
type LogTransport struct {
	logg *logger.Logger
}

func NewLogTransport(logg *logger.Logger) *LogTransport {
	return &LogTransport{logg: logg}
}

func (t *LogTransport) Deliver(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error {
	if t.logg == nil {
		return nil
	}
	t.logg.InfoFields(ctx, "otp.delivered_to_log", map[string]any{
		"contact": contact,
		"purpose": purpose.String(),
		"code":    code,
	})
	return nil
}

func messageSubject(purpose enums.OTPPurpose) string {
	switch purpose {
	case enums.OTPPurposeForgot:
		return "Your password reset code"
	case enums.OTPPurposeLogin:
		return "Your sign-in code"
	default:
		return "Verify your account"
	}
}

func messageBody(purpose enums.OTPPurpose, code string) string {
	return fmt.Sprintf("%s: %s", messageSubject(purpose), code)
}
