package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorPerMajor is the fixed conversion ratio between the integer minor unit
// and the two-decimal major unit.
const minorPerMajor = 100

var minorRatio = decimal.NewFromInt(minorPerMajor)

// FromMinor converts an integer minor-unit amount into a major-unit decimal.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorRatio)
}

// ToMinor converts a major-unit decimal into the integer minor unit. Amounts
// with more than two fractional digits are rejected rather than rounded.
func ToMinor(major decimal.Decimal) (int64, error) {
	scaled := major.Mul(minorRatio)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-minor precision", major)
	}
	return scaled.IntPart(), nil
}

// Format renders a major-unit amount with exactly two decimal places.
func Format(major decimal.Decimal) string {
	return major.StringFixed(2)
}

// Parse reads a major-unit amount from its string form.
func Parse(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", value, err)
	}
	return d, nil
}
