package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// RowQuerier is the subset of pgxpool.Pool used by PGStore.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore reads coupons from the coupons table.
type PGStore struct {
	DB RowQuerier
}

const lookupCouponSQL = `SELECT code, discount_percent, min_order_value, expires_at, usage_limit, used_count, active
FROM coupons WHERE upper(code) = $1`

// Lookup implements Source.
func (s PGStore) Lookup(ctx context.Context, code string) (Coupon, error) {
	if s.DB == nil {
		return Coupon{}, errors.New("coupon store not configured")
	}
	var (
		c        Coupon
		percent  decimal.Decimal
		minOrder int64
		expires  pgtype.Timestamptz
		limit    pgtype.Int4
	)
	err := s.DB.QueryRow(ctx, lookupCouponSQL, NormalizeCode(code)).Scan(
		&c.Code, &percent, &minOrder, &expires, &limit, &c.UsedCount, &c.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("lookup coupon: %w", err)
	}
	c.DiscountPercent = percent
	c.MinOrderValue = money.Money(minOrder)
	if expires.Valid {
		c.ExpiresAt = expires.Time
	}
	if limit.Valid {
		v := limit.Int32
		c.UsageLimit = &v
	}
	return c, nil
}
