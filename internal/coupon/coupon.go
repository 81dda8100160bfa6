package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

var (
	// ErrNotFound is returned when no coupon matches the supplied code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been disabled.
	ErrInactive = errors.New("coupon not active")
	// ErrExpired is returned when the coupon expiry date has passed.
	ErrExpired = errors.New("coupon expired")
	// ErrLimitReached indicates the coupon has exhausted its usage limit.
	ErrLimitReached = errors.New("coupon usage limit reached")
)

// BelowMinimumError reports how far the subtotal is from the coupon minimum.
type BelowMinimumError struct {
	Minimum   money.Money
	Shortfall money.Money
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("coupon requires a minimum order of %s, add %s more", e.Minimum, e.Shortfall)
}

// Coupon is the read-only view of a coupon used for validation.
type Coupon struct {
	Code            string
	DiscountPercent decimal.Decimal
	MinOrderValue   money.Money
	ExpiresAt       time.Time
	UsageLimit      *int32
	UsedCount       int32
	Active          bool
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks whether c applies to an order with the given subtotal at now
// and returns its discount percentage. The result is advisory: usage is
// settled by the order backend.
func Validate(code string, subtotal money.Money, c Coupon, now time.Time) (decimal.Decimal, error) {
	normalized := NormalizeCode(code)
	if normalized == "" || normalized != NormalizeCode(c.Code) {
		return decimal.Zero, ErrNotFound
	}
	if !c.Active {
		return decimal.Zero, ErrInactive
	}
	if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
		return decimal.Zero, ErrExpired
	}
	if subtotal < c.MinOrderValue {
		return decimal.Zero, &BelowMinimumError{Minimum: c.MinOrderValue, Shortfall: c.MinOrderValue.Sub(subtotal)}
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return decimal.Zero, ErrLimitReached
	}
	return c.DiscountPercent, nil
}

// Reason maps a validation error to a stable machine-readable label.
func Reason(err error) string {
	var below *BelowMinimumError
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.As(err, &below):
		return "below_minimum"
	case errors.Is(err, ErrLimitReached):
		return "limit_reached"
	default:
		return "unavailable"
	}
}
