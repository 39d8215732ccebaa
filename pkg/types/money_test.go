package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalToCents(t *testing.T) {
	cents, err := DecimalToCents(decimal.RequireFromString("19.99"))
	require.NoError(t, err)
	assert.Equal(t, int64(1999), cents)

	cents, err = DecimalToCents(decimal.RequireFromString("5"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), cents)

	_, err = DecimalToCents(decimal.RequireFromString("1.999"))
	assert.Error(t, err)

	_, err = DecimalToCents(decimal.RequireFromString("-1"))
	assert.Error(t, err)
}

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		Price Money `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": "12.50"}`), &payload))
	assert.Equal(t, int64(1250), payload.Price.Cents())

	require.NoError(t, json.Unmarshal([]byte(`{"price": 3}`), &payload))
	assert.Equal(t, int64(300), payload.Price.Cents())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"3.00"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"price": "abc"}`), &payload))
	assert.Error(t, json.Unmarshal([]byte(`{"price": "0.001"}`), &payload))
}

func TestApplyBasisPoints(t *testing.T) {
	assert.Equal(t, int64(150), ApplyBasisPoints(1000, 1500))
	assert.Equal(t, int64(2), ApplyBasisPoints(15, 1500))
	assert.Equal(t, int64(0), ApplyBasisPoints(0, 1500))
}
