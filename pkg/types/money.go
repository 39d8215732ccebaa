package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CentsToDecimal renders integer cents as a two-place decimal amount.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents converts an API amount into cents. Amounts with sub-cent precision are rejected.
func DecimalToCents(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must be non-negative")
	}
	scaled := amount.Mul(hundred)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than two decimal places", amount.String())
	}
	if !scaled.LessThanOrEqual(decimal.NewFromInt(1 << 53)) {
		return 0, fmt.Errorf("amount %s is too large", amount.String())
	}
	return scaled.IntPart(), nil
}

// Money is the JSON form of an amount: a string with exactly two decimals.
type Money int64

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + CentsToDecimal(int64(m)).StringFixed(2) + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	cents, err := DecimalToCents(d)
	if err != nil {
		return err
	}
	*m = Money(cents)
	return nil
}

// Cents returns the amount in cents.
func (m Money) Cents() int64 {
	return int64(m)
}

// ApplyBasisPoints returns cents * bps / 10000 rounded half away from zero.
func ApplyBasisPoints(cents, bps int64) int64 {
	return decimal.NewFromInt(cents).Mul(decimal.NewFromInt(bps)).Div(decimal.NewFromInt(10000)).Round(0).IntPart()
}
