package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/loyalty"
	"github.com/noah-isme/toko-pricing/internal/money"
)

var maxPercent = decimal.NewFromInt(100)

// Item describes a line item used for pricing calculation.
type Item struct {
	ProductID string
	Qty       int
	UnitPrice money.Money
}

// Request carries the per-checkout inputs that sit alongside the cart.
type Request struct {
	DiscountPercent decimal.Decimal
	PointsToRedeem  int64
	LoyaltyBalance  int64
	// PointValue overrides Config.PointValue when positive.
	PointValue decimal.Decimal
}

// Result aggregates computed pricing components.
type Result struct {
	Subtotal           money.Money     `json:"subtotal"`
	DiscountPercent    decimal.Decimal `json:"discountPercent"`
	DiscountFromCoupon money.Money     `json:"discountFromCoupon"`
	TaxableAmount      money.Money     `json:"taxableAmount"`
	TaxAmount          money.Money     `json:"taxAmount"`
	Shipping           money.Money     `json:"shipping"`
	PointsRedeemed     int64           `json:"pointsRedeemed"`
	DiscountFromPoints money.Money     `json:"discountFromPoints"`
	GrandTotal         money.Money     `json:"grandTotal"`
}

// Compute calculates order totals. Stages run in a fixed order: subtotal,
// coupon discount, taxable amount, tax on the discounted base, shipping on the
// pre-discount subtotal, point redemption capped at the payable amount before
// shipping, grand total clamped at zero.
func Compute(items []Item, cfg Config, req Request) Result {
	var subtotal money.Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(it.UnitPrice.NonNegative().Mul(int64(it.Qty)))
	}

	percent := ClampPercent(req.DiscountPercent)
	couponDiscount := subtotal.MulPercent(percent).Min(subtotal)
	taxable := subtotal.Sub(couponDiscount)

	taxPercent := cfg.TaxPercent
	if taxPercent.IsNegative() {
		taxPercent = decimal.Zero
	}
	tax := taxable.MulPercent(taxPercent)

	shipping := cfg.BaseShippingFee.NonNegative()
	if subtotal >= cfg.FreeShippingThreshold {
		shipping = 0
	}

	pointValue := req.PointValue
	if !pointValue.IsPositive() {
		pointValue = cfg.PointValue
	}
	payable := taxable.Add(tax)
	pointsDiscount, pointsUsed := redeem(payable, req.PointsToRedeem, req.LoyaltyBalance, pointValue)

	total := taxable.Add(tax).Add(shipping).Sub(pointsDiscount)

	return Result{
		Subtotal:           subtotal,
		DiscountPercent:    percent,
		DiscountFromCoupon: couponDiscount,
		TaxableAmount:      taxable,
		TaxAmount:          tax,
		Shipping:           shipping,
		PointsRedeemed:     pointsUsed,
		DiscountFromPoints: pointsDiscount,
		GrandTotal:         total,
	}
}

// ClampPercent forces a discount percentage into [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(maxPercent) {
		return maxPercent
	}
	return p
}

// redeem returns the points discount and the number of points it consumes.
// When the payable amount caps the discount only the points needed to cover
// it are consumed.
func redeem(payable money.Money, requested, balance int64, pointValue decimal.Decimal) (money.Money, int64) {
	points := loyalty.Redeemable(requested, balance)
	if points == 0 || !pointValue.IsPositive() || payable <= 0 {
		return 0, 0
	}
	worth := money.Round2(decimal.NewFromInt(points).Mul(pointValue))
	if worth.LessThanOrEqual(payable.Decimal()) {
		discount, err := money.FromDecimal(worth)
		if err == nil {
			return discount, points
		}
	}
	needed := payable.Decimal().Div(pointValue).Ceil()
	if needed.GreaterThan(decimal.NewFromInt(points)) {
		return payable, points
	}
	return payable, needed.IntPart()
}
