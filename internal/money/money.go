package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (paise).
type Money int64

const (
	// Zero is the zero amount.
	Zero Money = 0
	// Max is the largest representable amount. Arithmetic saturates here.
	Max Money = math.MaxInt64
)

// ErrOutOfRange is returned when an amount does not fit in int64 minor units.
var ErrOutOfRange = errors.New("money: amount out of range")

var (
	hundred    = decimal.NewFromInt(100)
	minorScale = decimal.NewFromInt(100)
	maxMinor   = decimal.NewFromInt(math.MaxInt64)
	minMinor   = decimal.NewFromInt(math.MinInt64)
)

// FromMajor builds an amount from whole currency units.
func FromMajor(units int64) Money {
	return Money(units * 100)
}

// FromDecimal rounds a major-unit decimal to two places and converts it to
// minor units.
func FromDecimal(d decimal.Decimal) (Money, error) {
	minor := Round2(d).Mul(minorScale)
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return Money(minor.IntPart()), nil
}

// Parse reads a major-unit amount such as "499.90".
func Parse(value string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", value, err)
	}
	m, err := FromDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", value, err)
	}
	return m, nil
}

// Round2 rounds a major-unit decimal to two places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Add returns m + other, saturating at the int64 bounds.
func (m Money) Add(other Money) Money {
	sum := m + other
	switch {
	case other > 0 && sum < m:
		return Max
	case other < 0 && sum > m:
		return math.MinInt64
	}
	return sum
}

// Sub returns m - other clamped at zero.
func (m Money) Sub(other Money) Money {
	if other >= m {
		return 0
	}
	return m - other
}

// Mul multiplies the amount by a whole quantity, saturating at the int64
// bounds.
func (m Money) Mul(qty int64) Money {
	if m == 0 || qty == 0 {
		return 0
	}
	product := m * Money(qty)
	if product/Money(qty) != m || (m == -1 && qty == math.MinInt64) || (qty == -1 && m == math.MinInt64) {
		if (m > 0) == (qty > 0) {
			return Max
		}
		return math.MinInt64
	}
	return product
}

// MulPercent returns m × percent/100 rounded to the minor unit.
func (m Money) MulPercent(percent decimal.Decimal) Money {
	return m.MulDecimal(percent.Div(hundred))
}

// MulDecimal returns m × factor rounded to the minor unit, saturating at the
// int64 bounds.
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	minor := decimal.NewFromInt(int64(m)).Mul(factor).Round(0)
	switch {
	case minor.GreaterThan(maxMinor):
		return Max
	case minor.LessThan(minMinor):
		return math.MinInt64
	}
	return Money(minor.IntPart())
}

// Min returns the smaller of m and other.
func (m Money) Min(other Money) Money {
	if other < m {
		return other
	}
	return m
}

// NonNegative clamps negative amounts to zero.
func (m Money) NonNegative() Money {
	if m < 0 {
		return 0
	}
	return m
}

// Minor returns the amount in minor units.
func (m Money) Minor() int64 { return int64(m) }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount with two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string in major units.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*m = 0
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
