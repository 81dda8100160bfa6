package storeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/coupon"
	"github.com/noah-isme/toko-pricing/internal/money"
)

// CouponError is a coupon rejection reported by the store backend.
type CouponError struct {
	Status  int
	Message string
	cause   error
}

func (e *CouponError) Error() string {
	if e.Message != "" {
		return "coupon rejected: " + e.Message
	}
	return fmt.Sprintf("coupon rejected with status %d", e.Status)
}

// Unwrap exposes coupon.ErrNotFound for 404 responses.
func (e *CouponError) Unwrap() error { return e.cause }

// UserMessage implements coupon.MessageError.
func (e *CouponError) UserMessage() string { return e.Message }

// Check implements coupon.Checker against the backend validation endpoint.
// Client rejections (4xx) become *CouponError; transport failures and 5xx
// are returned as-is so the caller reports the coupon as unavailable.
func (c *Client) Check(ctx context.Context, code string, subtotal money.Money) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("code", coupon.NormalizeCode(code))
	q.Set("subtotal", subtotal.String())

	var out struct {
		DiscountPercent *decimal.Decimal `json:"discountPercent"`
		Data            *struct {
			DiscountPercent decimal.Decimal `json:"discountPercent"`
		} `json:"data"`
	}
	err := c.getJSON(ctx, "/coupons/validate", q, &out)
	var status *StatusError
	if errors.As(err, &status) && status.Status >= 400 && status.Status < 500 {
		rejected := &CouponError{Status: status.Status, Message: status.Message}
		if status.Status == http.StatusNotFound {
			rejected.cause = coupon.ErrNotFound
		}
		return decimal.Zero, rejected
	}
	if err != nil {
		return decimal.Zero, err
	}
	switch {
	case out.DiscountPercent != nil:
		return *out.DiscountPercent, nil
	case out.Data != nil:
		return out.Data.DiscountPercent, nil
	}
	return decimal.Zero, errors.New("storeapi: coupon response missing discountPercent")
}

var _ coupon.Checker = (*Client)(nil)
