package pricing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/money"
)

func major(v string) money.Money {
	m, err := money.Parse(v)
	if err != nil {
		panic(err)
	}
	return m
}

func TestComputeScenarios(t *testing.T) {
	cfg := DefaultConfig()
	twoAt300 := []Item{{ProductID: "p1", UnitPrice: major("300"), Qty: 2}}

	cases := []struct {
		name  string
		items []Item
		req   Request
		want  Result
	}{
		{
			name:  "no coupon no points",
			items: twoAt300,
			want: Result{
				Subtotal:      major("600"),
				TaxableAmount: major("600"),
				TaxAmount:     major("108.00"),
				GrandTotal:    major("708.00"),
			},
		},
		{
			name:  "ten percent coupon",
			items: twoAt300,
			req:   Request{DiscountPercent: decimal.NewFromInt(10)},
			want: Result{
				Subtotal:           major("600"),
				DiscountFromCoupon: major("60.00"),
				TaxableAmount:      major("540.00"),
				TaxAmount:          major("97.20"),
				GrandTotal:         major("637.20"),
			},
		},
		{
			name:  "below free shipping threshold",
			items: []Item{{ProductID: "p2", UnitPrice: major("100"), Qty: 1}},
			want: Result{
				Subtotal:      major("100"),
				TaxableAmount: major("100"),
				TaxAmount:     major("18.00"),
				Shipping:      major("49"),
				GrandTotal:    major("167.00"),
			},
		},
		{
			name:  "points clamped to balance",
			items: twoAt300,
			req:   Request{PointsToRedeem: 3000, LoyaltyBalance: 50, PointValue: decimal.RequireFromString("0.25")},
			want: Result{
				Subtotal:           major("600"),
				TaxableAmount:      major("600"),
				TaxAmount:          major("108.00"),
				PointsRedeemed:     50,
				DiscountFromPoints: major("12.50"),
				GrandTotal:         major("695.50"),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.items, cfg, tc.req)
			assert.Equal(t, tc.want.Subtotal, got.Subtotal, "subtotal")
			assert.Equal(t, tc.want.DiscountFromCoupon, got.DiscountFromCoupon, "coupon")
			assert.Equal(t, tc.want.TaxableAmount, got.TaxableAmount, "taxable")
			assert.Equal(t, tc.want.TaxAmount, got.TaxAmount, "tax")
			assert.Equal(t, tc.want.Shipping, got.Shipping, "shipping")
			assert.Equal(t, tc.want.PointsRedeemed, got.PointsRedeemed, "points")
			assert.Equal(t, tc.want.DiscountFromPoints, got.DiscountFromPoints, "points discount")
			assert.Equal(t, tc.want.GrandTotal, got.GrandTotal, "grand total")
		})
	}
}

func TestComputeClampsDiscountPercent(t *testing.T) {
	items := []Item{{UnitPrice: major("300"), Qty: 2}}
	over := Compute(items, DefaultConfig(), Request{DiscountPercent: decimal.NewFromInt(150)})
	require.Equal(t, major("600"), over.DiscountFromCoupon)
	require.Equal(t, money.Money(0), over.TaxableAmount)
	require.Equal(t, money.Money(0), over.GrandTotal)
	require.True(t, over.DiscountPercent.Equal(decimal.NewFromInt(100)))

	under := Compute(items, DefaultConfig(), Request{DiscountPercent: decimal.NewFromInt(-20)})
	require.Equal(t, money.Money(0), under.DiscountFromCoupon)
	require.Equal(t, major("708"), under.GrandTotal)
}

func TestComputeEmptyCartChargesShipping(t *testing.T) {
	res := Compute(nil, DefaultConfig(), Request{})
	require.Equal(t, money.Money(0), res.Subtotal)
	require.Equal(t, money.Money(0), res.TaxAmount)
	require.Equal(t, major("49"), res.Shipping)

	cfg := DefaultConfig()
	cfg.FreeShippingThreshold = 0
	require.Equal(t, money.Money(0), Compute(nil, cfg, Request{}).Shipping)
}

func TestComputePointsCappedByPayable(t *testing.T) {
	items := []Item{{UnitPrice: major("10"), Qty: 1}}
	// payable before shipping = 10 + 1.80 tax = 11.80 → needs 48 points at 0.25.
	res := Compute(items, DefaultConfig(), Request{PointsToRedeem: 1000, LoyaltyBalance: 1000})
	require.Equal(t, major("11.80"), res.DiscountFromPoints)
	require.Equal(t, int64(48), res.PointsRedeemed)
	require.Equal(t, major("49"), res.GrandTotal)
}

func TestComputeSaturatesHugeAmounts(t *testing.T) {
	items := []Item{{UnitPrice: major("90000000000000000"), Qty: 2}}
	res := Compute(items, DefaultConfig(), Request{})
	require.Equal(t, money.Max, res.Subtotal)
	require.Equal(t, money.Money(0), res.Shipping)
	require.Equal(t, money.Max, res.GrandTotal)
}

func TestComputeHugePointBalanceDoesNotWrap(t *testing.T) {
	items := []Item{{UnitPrice: major("10"), Qty: 1}}
	res := Compute(items, DefaultConfig(), Request{
		PointsToRedeem: math.MaxInt64,
		LoyaltyBalance: math.MaxInt64,
		PointValue:     decimal.NewFromInt(1000),
	})
	require.Equal(t, major("11.80"), res.DiscountFromPoints)
	require.Equal(t, int64(1), res.PointsRedeemed)
	require.Equal(t, major("49"), res.GrandTotal)
}

func TestComputeIgnoresInvalidLines(t *testing.T) {
	items := []Item{
		{UnitPrice: major("100"), Qty: 0},
		{UnitPrice: major("100"), Qty: -3},
		{UnitPrice: money.Money(-500), Qty: 2},
		{UnitPrice: major("50"), Qty: 1},
	}
	require.Equal(t, major("50"), Compute(items, DefaultConfig(), Request{}).Subtotal)
}

func TestFreeShippingAtExactThreshold(t *testing.T) {
	cfg := DefaultConfig()
	items := []Item{{UnitPrice: major("250"), Qty: 2}}
	res := Compute(items, cfg, Request{DiscountPercent: decimal.NewFromInt(50)})
	require.Equal(t, cfg.FreeShippingThreshold, res.Subtotal)
	require.Equal(t, money.Money(0), res.Shipping)
}

func randomCart(r *rand.Rand) []Item {
	n := r.Intn(6)
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, Item{
			UnitPrice: money.Money(r.Int63n(200_000)),
			Qty:       1 + r.Intn(5),
		})
	}
	return items
}

func randomConfig(r *rand.Rand) Config {
	return Config{
		TaxPercent:            decimal.New(r.Int63n(3000), -2),
		FreeShippingThreshold: money.Money(r.Int63n(100_000)),
		BaseShippingFee:       money.Money(r.Int63n(10_000)),
		PointValue:            decimal.New(1+r.Int63n(500), -2),
	}
}

func TestComputeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		items := randomCart(r)
		cfg := randomConfig(r)
		req := Request{
			DiscountPercent: decimal.NewFromInt(r.Int63n(101)),
			PointsToRedeem:  r.Int63n(100_000),
			LoyaltyBalance:  r.Int63n(100_000),
		}
		res := Compute(items, cfg, req)

		require.GreaterOrEqual(t, int64(res.GrandTotal), int64(0), "grand total negative")
		require.LessOrEqual(t, res.DiscountFromCoupon, res.Subtotal, "coupon exceeds subtotal")
		require.LessOrEqual(t, res.DiscountFromPoints, res.TaxableAmount.Add(res.TaxAmount), "points exceed payable")
		require.LessOrEqual(t, res.PointsRedeemed, req.LoyaltyBalance, "points exceed balance")
		require.LessOrEqual(t, res.PointsRedeemed, req.PointsToRedeem, "points exceed request")
		if res.Subtotal >= cfg.FreeShippingThreshold {
			require.Equal(t, money.Money(0), res.Shipping)
		}

		again := Compute(items, cfg, req)
		require.Equal(t, res, again, "compute is not idempotent")

		if len(items) > 0 {
			bumped := make([]Item, len(items))
			copy(bumped, items)
			idx := r.Intn(len(bumped))
			bumped[idx].Qty++
			noPoints := req
			noPoints.PointsToRedeem = 0
			before := Compute(items, cfg, noPoints)
			after := Compute(bumped, cfg, noPoints)
			if before.Shipping == after.Shipping {
				require.GreaterOrEqual(t, after.GrandTotal, before.GrandTotal, "grand total decreased with quantity")
			}
		}
	}
}

func TestComputeDoesNotMutateItems(t *testing.T) {
	items := []Item{{ProductID: "p1", UnitPrice: major("300"), Qty: 2}}
	snapshot := append([]Item(nil), items...)
	_ = Compute(items, DefaultConfig(), Request{DiscountPercent: decimal.NewFromInt(10)})
	require.Equal(t, snapshot, items)
}
