package loyalty

import "github.com/noah-isme/toko-pricing/internal/money"

// SpendPerPoint is the amount a shopper spends to earn one point.
var SpendPerPoint = money.FromMajor(100)

// PointsEarned returns the points an order of grandTotal earns, rounding down.
func PointsEarned(grandTotal money.Money) int64 {
	if grandTotal <= 0 {
		return 0
	}
	return int64(grandTotal / SpendPerPoint)
}

// Redeemable clamps a redemption request to what the account holds.
func Redeemable(requested, balance int64) int64 {
	if requested <= 0 || balance <= 0 {
		return 0
	}
	if requested > balance {
		return balance
	}
	return requested
}

// Projection is the display-only view of a balance after checkout. Earned
// points stay pending until the backend confirms delivery and are never
// counted as redeemable.
type Projection struct {
	BalanceBefore int64 `json:"balanceBefore"`
	Redeemed      int64 `json:"redeemed"`
	BalanceAfter  int64 `json:"balanceAfter"`
	PendingEarned int64 `json:"pendingEarned"`
}

// Project computes the balance after redeeming points on an order.
func Project(balance, redeemed int64, grandTotal money.Money) Projection {
	if balance < 0 {
		balance = 0
	}
	redeemed = Redeemable(redeemed, balance)
	return Projection{
		BalanceBefore: balance,
		Redeemed:      redeemed,
		BalanceAfter:  balance - redeemed,
		PendingEarned: PointsEarned(grandTotal),
	}
}
