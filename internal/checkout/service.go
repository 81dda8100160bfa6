package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/coupon"
	"github.com/noah-isme/toko-pricing/internal/loyalty"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/orders"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/settings"
	"github.com/noah-isme/toko-pricing/internal/storeapi"
)

var (
	// ErrEmptyCart is returned when a quote or submission has no priced lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOrderFailed wraps order-creation failures from the store backend.
	ErrOrderFailed = errors.New("order could not be placed")
)

// LineInput is one cart line as sent by the storefront. Unit prices are
// bounded at 10,000,000.00 so a full cart stays far inside int64 minor units.
type LineInput struct {
	ProductID string      `json:"productId" validate:"required,max=128"`
	UnitPrice money.Money `json:"unitPrice" validate:"gte=0,lte=1000000000"`
	Quantity  int         `json:"quantity" validate:"gte=1,lte=1000"`
}

// Input is the quote and submission payload. An empty item list passes
// validation and is rejected by the service with ErrEmptyCart.
type Input struct {
	Items          []LineInput `json:"items" validate:"dive"`
	CouponCode     string      `json:"couponCode,omitempty" validate:"max=64"`
	PointsToRedeem int64       `json:"pointsToRedeem,omitempty" validate:"gte=0"`
}

// Quote is a fully priced cart.
type Quote struct {
	Pricing pricing.Result     `json:"pricing"`
	Coupon  *coupon.Outcome    `json:"coupon,omitempty"`
	Loyalty loyalty.Projection `json:"loyalty"`
}

// Placed is the result of a successful submission.
type Placed struct {
	OrderID string             `json:"orderId"`
	Pricing pricing.Result     `json:"pricing"`
	Coupon  *coupon.Outcome    `json:"coupon,omitempty"`
	Loyalty loyalty.Projection `json:"loyalty"`
}

// ConfigSource resolves the effective pricing configuration.
type ConfigSource interface {
	Config(ctx context.Context) (pricing.Config, settings.Source)
}

// BalanceSource returns the shopper's loyalty balance.
type BalanceSource interface {
	RewardPoints(ctx context.Context) (int64, error)
}

// OrderCreator places orders with the store backend.
type OrderCreator interface {
	CreateOrder(ctx context.Context, idempotencyKey string, order storeapi.OrderRequest) (string, error)
}

// Service prices carts and submits orders. Totals are always recomputed
// server side from the submitted lines and the resolved configuration.
type Service struct {
	Settings ConfigSource
	Coupons  coupon.Checker
	Balances BalanceSource
	Orders   OrderCreator
	Ledger   orders.Recorder
	Metrics  *obs.DomainMetrics
	Logger   zerolog.Logger
	Currency string
}

// Quote prices in without side effects on the backend.
func (s *Service) Quote(ctx context.Context, in Input) (Quote, error) {
	if s == nil || s.Settings == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	items := toItems(in.Items)
	if len(items) == 0 {
		return Quote{}, ErrEmptyCart
	}
	cfg, _ := s.Settings.Config(ctx)

	base := pricing.Compute(items, cfg, pricing.Request{})
	var outcome *coupon.Outcome
	if code := coupon.NormalizeCode(in.CouponCode); code != "" {
		out := coupon.Evaluate(ctx, s.Coupons, code, base.Subtotal)
		s.Metrics.ObserveCoupon(out.Reason)
		if !out.Applied {
			s.logger(ctx).Info().Str("coupon", code).Str("reason", out.Reason).Msg("coupon not applied")
		}
		outcome = &out
	}

	balance := s.balance(ctx)
	req := pricing.Request{
		PointsToRedeem: in.PointsToRedeem,
		LoyaltyBalance: balance,
		PointValue:     cfg.PointValue,
	}
	if outcome != nil && outcome.Applied {
		req.DiscountPercent = outcome.Percent
	}
	result := pricing.Compute(items, cfg, req)

	s.Metrics.ObserveQuote(ctx, result.DiscountFromCoupon > 0, result.PointsRedeemed > 0, result.GrandTotal.Minor())
	return Quote{
		Pricing: result,
		Coupon:  outcome,
		Loyalty: loyalty.Project(balance, result.PointsRedeemed, result.GrandTotal),
	}, nil
}

// Submit re-prices in and places the order. A ledger write failure is logged
// and does not fail the submission; the order already exists upstream.
func (s *Service) Submit(ctx context.Context, idempotencyKey string, in Input) (Placed, error) {
	if s == nil || s.Orders == nil {
		return Placed{}, errors.New("checkout service not configured")
	}
	q, err := s.Quote(ctx, in)
	if err != nil {
		return Placed{}, err
	}

	req := orderRequest(in, q)
	orderID, err := s.Orders.CreateOrder(ctx, idempotencyKey, req)
	if err != nil {
		s.Metrics.ObserveOrder("failed", 0)
		s.logger(ctx).Error().Err(err).Msg("order creation failed")
		return Placed{}, fmt.Errorf("%w: %w", ErrOrderFailed, err)
	}
	s.Metrics.ObserveOrder("placed", q.Pricing.PointsRedeemed)

	if s.Ledger != nil {
		entry := orders.Entry{
			OrderID:            orderID,
			Currency:           s.Currency,
			CouponCode:         req.CouponCode,
			Subtotal:           q.Pricing.Subtotal,
			DiscountFromCoupon: q.Pricing.DiscountFromCoupon,
			TaxAmount:          q.Pricing.TaxAmount,
			Shipping:           q.Pricing.Shipping,
			DiscountFromPoints: q.Pricing.DiscountFromPoints,
			GrandTotal:         q.Pricing.GrandTotal,
			PointsRedeemed:     q.Pricing.PointsRedeemed,
			BalanceBefore:      q.Loyalty.BalanceBefore,
			BalanceAfter:       q.Loyalty.BalanceAfter,
			PointsPending:      q.Loyalty.PendingEarned,
		}
		if err := s.Ledger.Record(ctx, entry); err != nil {
			s.logger(ctx).Warn().Err(err).Str("order_id", orderID).Msg("order ledger write failed")
		}
	}

	return Placed{OrderID: orderID, Pricing: q.Pricing, Coupon: q.Coupon, Loyalty: q.Loyalty}, nil
}

// balance fetches the loyalty balance for authenticated shoppers. Failures
// leave the balance at zero so nothing is redeemed.
func (s *Service) balance(ctx context.Context) int64 {
	if s.Balances == nil {
		return 0
	}
	if _, ok := common.BearerToken(ctx); !ok {
		return 0
	}
	points, err := s.Balances.RewardPoints(ctx)
	if err != nil {
		s.logger(ctx).Warn().Err(err).Msg("loyalty balance unavailable")
		return 0
	}
	return max(points, 0)
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.Logger
}

func toItems(lines []LineInput) []pricing.Item {
	items := make([]pricing.Item, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		items = append(items, pricing.Item{
			ProductID: strings.TrimSpace(line.ProductID),
			Qty:       line.Quantity,
			UnitPrice: line.UnitPrice.NonNegative(),
		})
	}
	return items
}

func orderRequest(in Input, q Quote) storeapi.OrderRequest {
	lines := make([]storeapi.OrderLine, 0, len(in.Items))
	for _, item := range toItems(in.Items) {
		lines = append(lines, storeapi.OrderLine{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice.String(),
			Quantity:  item.Qty,
		})
	}
	req := storeapi.OrderRequest{
		Items:          lines,
		PointsRedeemed: q.Pricing.PointsRedeemed,
		Subtotal:       q.Pricing.Subtotal.String(),
		Discount:       q.Pricing.DiscountFromCoupon.String(),
		Tax:            q.Pricing.TaxAmount.String(),
		Shipping:       q.Pricing.Shipping.String(),
		PointsDiscount: q.Pricing.DiscountFromPoints.String(),
		GrandTotal:     q.Pricing.GrandTotal.String(),
	}
	if q.Coupon != nil && q.Coupon.Applied {
		req.CouponCode = q.Coupon.Code
	}
	return req
}
