package otp

import (
	"bytes"
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMailer struct{ sent []mailer.Message }

func (s *stubMailer) Send(ctx context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

type stubSMS struct{ to, body string }

func (s *stubSMS) Send(ctx context.Context, to, body string) error {
	s.to, s.body = to, body
	return nil
}

func TestProviderTransportRoutesByContact(t *testing.T) {
	mail := &stubMailer{}
	sms := &stubSMS{}
	transport := NewProviderTransport(mail, sms)
	ctx := context.Background()

	require.NoError(t, transport.Deliver(ctx, "a@example.com", enums.OTPPurposeForgot, "123456"))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "Your password reset code", mail.sent[0].Subject)
	assert.Contains(t, mail.sent[0].Text, "123456")

	require.NoError(t, transport.Deliver(ctx, "+15550001111", enums.OTPPurposeLogin, "654321"))
	assert.Equal(t, "+15550001111", sms.to)
	assert.Contains(t, sms.body, "654321")
}

func TestProviderTransportMissingChannel(t *testing.T) {
	transport := NewProviderTransport(nil, nil)
	assert.Error(t, transport.Deliver(context.Background(), "a@example.com", enums.OTPPurposeLogin, "1"))
	assert.Error(t, transport.Deliver(context.Background(), "+1555", enums.OTPPurposeLogin, "1"))
}

func TestLogTransportWritesCode(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	require.NoError(t, NewLogTransport(logg).Deliver(context.Background(), "a@example.com", enums.OTPPurposeRegister, "246810"))
	assert.Contains(t, buf.String(), "246810")
}
