package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// ErrNotFound is returned when no ledger entry exists for an order.
var ErrNotFound = errors.New("order not found")

// Entry is the locally recorded outcome of a placed order, used by the
// order-success page.
type Entry struct {
	ID                 uuid.UUID   `json:"id"`
	OrderID            string      `json:"orderId"`
	Currency           string      `json:"currency"`
	CouponCode         string      `json:"couponCode,omitempty"`
	Subtotal           money.Money `json:"subtotal"`
	DiscountFromCoupon money.Money `json:"discountFromCoupon"`
	TaxAmount          money.Money `json:"taxAmount"`
	Shipping           money.Money `json:"shipping"`
	DiscountFromPoints money.Money `json:"discountFromPoints"`
	GrandTotal         money.Money `json:"grandTotal"`
	PointsRedeemed     int64       `json:"pointsRedeemed"`
	BalanceBefore      int64       `json:"balanceBefore"`
	BalanceAfter       int64       `json:"balanceAfter"`
	PointsPending      int64       `json:"pointsPending"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// Recorder persists ledger entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Reader loads ledger entries by order id.
type Reader interface {
	Get(ctx context.Context, orderID string) (Entry, error)
}

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps the ledger in the order_ledger table.
type PGStore struct {
	DB DBTX
}

const insertEntrySQL = `INSERT INTO order_ledger (
	id, order_id, currency, coupon_code, subtotal, coupon_discount, tax, shipping,
	points_discount, grand_total, points_redeemed, balance_before, balance_after, points_pending, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (order_id) DO NOTHING`

const selectEntrySQL = `SELECT id, order_id, currency, coupon_code, subtotal, coupon_discount, tax, shipping,
	points_discount, grand_total, points_redeemed, balance_before, balance_after, points_pending, created_at
FROM order_ledger WHERE order_id = $1`

// Record inserts e. Recording the same order twice is a no-op.
func (s PGStore) Record(ctx context.Context, e Entry) error {
	if s.DB == nil {
		return errors.New("order ledger not configured")
	}
	if strings.TrimSpace(e.OrderID) == "" {
		return errors.New("order ledger: order id is required")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	coupon := pgtype.Text{String: e.CouponCode, Valid: e.CouponCode != ""}
	_, err := s.DB.Exec(ctx, insertEntrySQL,
		e.ID, e.OrderID, e.Currency, coupon,
		e.Subtotal.Minor(), e.DiscountFromCoupon.Minor(), e.TaxAmount.Minor(), e.Shipping.Minor(),
		e.DiscountFromPoints.Minor(), e.GrandTotal.Minor(),
		e.PointsRedeemed, e.BalanceBefore, e.BalanceAfter, e.PointsPending, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record order %s: %w", e.OrderID, err)
	}
	return nil
}

// Get implements Reader.
func (s PGStore) Get(ctx context.Context, orderID string) (Entry, error) {
	if s.DB == nil {
		return Entry{}, errors.New("order ledger not configured")
	}
	var (
		e                                                           Entry
		coupon                                                      pgtype.Text
		subtotal, couponDiscount, tax, shipping, points, grandTotal int64
	)
	err := s.DB.QueryRow(ctx, selectEntrySQL, orderID).Scan(
		&e.ID, &e.OrderID, &e.Currency, &coupon,
		&subtotal, &couponDiscount, &tax, &shipping, &points, &grandTotal,
		&e.PointsRedeemed, &e.BalanceBefore, &e.BalanceAfter, &e.PointsPending, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	e.CouponCode = coupon.String
	e.Subtotal = money.Money(subtotal)
	e.DiscountFromCoupon = money.Money(couponDiscount)
	e.TaxAmount = money.Money(tax)
	e.Shipping = money.Money(shipping)
	e.DiscountFromPoints = money.Money(points)
	e.GrandTotal = money.Money(grandTotal)
	return e, nil
}
