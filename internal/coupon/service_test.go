package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/money"
)

type stubSource struct {
	coupons map[string]Coupon
	err     error
	lastKey string
}

func (s *stubSource) Lookup(_ context.Context, code string) (Coupon, error) {
	s.lastKey = code
	if s.err != nil {
		return Coupon{}, s.err
	}
	c, ok := s.coupons[code]
	if !ok {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func TestServiceCheckNormalisesCode(t *testing.T) {
	src := &stubSource{coupons: map[string]Coupon{"SAVE10": newCoupon()}}
	svc := &Service{Source: src, Now: func() time.Time { return now }}

	percent, err := svc.Check(context.Background(), "save10", money.FromMajor(600))
	require.NoError(t, err)
	require.Equal(t, "SAVE10", src.lastKey)
	require.True(t, percent.Equal(decimal.NewFromInt(10)))
}

func TestEvaluateFoldsErrors(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	svc := &Service{Source: src, Now: func() time.Time { return now }}

	out := Evaluate(context.Background(), svc, "SAVE10", money.FromMajor(600))
	require.False(t, out.Applied)
	require.Equal(t, "unavailable", out.Reason)
	require.True(t, out.Percent.IsZero())
	require.NotEmpty(t, out.Message)
}

func TestEvaluateBelowMinimumMessage(t *testing.T) {
	src := &stubSource{coupons: map[string]Coupon{"SAVE10": newCoupon()}}
	svc := &Service{Source: src, Now: func() time.Time { return now }}

	out := Evaluate(context.Background(), svc, "SAVE10", money.FromMajor(100))
	require.False(t, out.Applied)
	require.Equal(t, "below_minimum", out.Reason)
	require.Contains(t, out.Message, "200.00")
}

func TestEvaluateEmptyCode(t *testing.T) {
	out := Evaluate(context.Background(), nil, "   ", money.FromMajor(100))
	require.Equal(t, Outcome{}, out)
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *string:
			*target = r.values[i].(string)
		case *decimal.Decimal:
			*target = r.values[i].(decimal.Decimal)
		case *int64:
			*target = r.values[i].(int64)
		case *int32:
			*target = r.values[i].(int32)
		case *bool:
			*target = r.values[i].(bool)
		case *pgtype.Timestamptz:
			*target = r.values[i].(pgtype.Timestamptz)
		case *pgtype.Int4:
			*target = r.values[i].(pgtype.Int4)
		}
	}
	return nil
}

type stubQuerier struct {
	row  stubRow
	args []any
}

func (q *stubQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.args = args
	return q.row
}

func TestPGStoreLookup(t *testing.T) {
	q := &stubQuerier{row: stubRow{values: []any{
		"SAVE10",
		decimal.NewFromInt(10),
		int64(30000),
		pgtype.Timestamptz{Time: now, Valid: true},
		pgtype.Int4{Int32: 3, Valid: true},
		int32(1),
		true,
	}}}
	c, err := PGStore{DB: q}.Lookup(context.Background(), "save10")
	require.NoError(t, err)
	require.Equal(t, []any{"SAVE10"}, q.args)
	require.Equal(t, money.FromMajor(300), c.MinOrderValue)
	require.NotNil(t, c.UsageLimit)
	require.Equal(t, int32(3), *c.UsageLimit)
	require.True(t, c.ExpiresAt.Equal(now))
}

func TestPGStoreLookupNotFound(t *testing.T) {
	q := &stubQuerier{row: stubRow{err: pgx.ErrNoRows}}
	_, err := PGStore{DB: q}.Lookup(context.Background(), "none")
	require.ErrorIs(t, err, ErrNotFound)
}
