package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type stubCreator struct {
	params *openapi.CreateMessageParams
	err    error
}

func (s *stubCreator) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func TestSendSetsParams(t *testing.T) {
	stub := &stubCreator{}
	client, err := newClient(stub, "+15550000000", nil)
	require.NoError(t, err)

	require.NoError(t, client.Send(context.Background(), " +15551112222 ", "code 123456"))
	require.NotNil(t, stub.params)
	assert.Equal(t, "+15551112222", *stub.params.To)
	assert.Equal(t, "+15550000000", *stub.params.From)
	assert.Equal(t, "code 123456", *stub.params.Body)
}

func TestSendPropagatesErrors(t *testing.T) {
	stub := &stubCreator{err: errors.New("invalid number")}
	client, err := newClient(stub, "+15550000000", nil)
	require.NoError(t, err)

	assert.Error(t, client.Send(context.Background(), "+1555", "x"))
	assert.Error(t, client.Send(context.Background(), "", "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.Send(ctx, "+1555", "x"), context.Canceled)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.TwilioConfig{}, nil)
	assert.ErrorIs(t, err, errCredentialsRequired)
	_, err = newClient(&stubCreator{}, "", nil)
	assert.ErrorIs(t, err, errCredentialsRequired)
}
