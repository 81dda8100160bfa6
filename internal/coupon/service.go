package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// Source looks up coupons by normalised code.
type Source interface {
	Lookup(ctx context.Context, code string) (Coupon, error)
}

// Checker resolves the discount percentage a code grants for a subtotal.
type Checker interface {
	Check(ctx context.Context, code string, subtotal money.Money) (decimal.Decimal, error)
}

// Service validates codes against coupons loaded from a Source.
type Service struct {
	Source Source
	Now    func() time.Time
}

// Check implements Checker.
func (s *Service) Check(ctx context.Context, code string, subtotal money.Money) (decimal.Decimal, error) {
	if s == nil || s.Source == nil {
		return decimal.Zero, errors.New("coupon service not configured")
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return decimal.Zero, ErrNotFound
	}
	c, err := s.Source.Lookup(ctx, normalized)
	if err != nil {
		return decimal.Zero, err
	}
	return Validate(normalized, subtotal, c, s.now())
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Outcome describes what happened to a coupon code during pricing.
type Outcome struct {
	Code    string          `json:"code"`
	Applied bool            `json:"applied"`
	Percent decimal.Decimal `json:"discountPercent"`
	Reason  string          `json:"reason"`
	Message string          `json:"message,omitempty"`
}

// Evaluate runs the checker and folds any failure into a non-applied outcome,
// so callers can always continue pricing without a discount.
func Evaluate(ctx context.Context, checker Checker, code string, subtotal money.Money) Outcome {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Outcome{}
	}
	out := Outcome{Code: normalized, Percent: decimal.Zero}
	if checker == nil {
		out.Reason = Reason(errors.New("no checker"))
		out.Message = "coupons are unavailable right now"
		return out
	}
	percent, err := checker.Check(ctx, normalized, subtotal)
	out.Reason = Reason(err)
	if err != nil {
		out.Message = message(err)
		return out
	}
	out.Applied = true
	out.Percent = percent
	return out
}

// MessageError lets a checker supply a shopper-facing message.
type MessageError interface {
	error
	UserMessage() string
}

func message(err error) string {
	var below *BelowMinimumError
	var withMessage MessageError
	switch {
	case errors.As(err, &below):
		return below.Error()
	case errors.As(err, &withMessage) && withMessage.UserMessage() != "":
		return withMessage.UserMessage()
	case errors.Is(err, ErrNotFound):
		return "coupon code is not valid"
	case errors.Is(err, ErrInactive):
		return "coupon is no longer active"
	case errors.Is(err, ErrExpired):
		return "coupon has expired"
	case errors.Is(err, ErrLimitReached):
		return "coupon usage limit has been reached"
	default:
		return "coupons are unavailable right now"
	}
}
