package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

type seedCoupon struct {
	Code       string
	Percent    string
	MinOrder   money.Money
	ExpiresIn  time.Duration
	UsageLimit *int32
	Active     bool
}

func limit(n int32) *int32 { return &n }

var coupons = []seedCoupon{
	{Code: "SAVE10", Percent: "10", MinOrder: money.FromMajor(0), Active: true},
	{Code: "TOYS15", Percent: "15", MinOrder: money.FromMajor(999), ExpiresIn: 90 * 24 * time.Hour, Active: true},
	{Code: "FIRSTBUY", Percent: "20", MinOrder: money.FromMajor(499), UsageLimit: limit(500), Active: true},
	{Code: "FESTIVE25", Percent: "25", MinOrder: money.FromMajor(1499), ExpiresIn: -24 * time.Hour, Active: true},
	{Code: "RETIRED5", Percent: "5", MinOrder: money.FromMajor(0), Active: false},
}

const upsertCouponSQL = `INSERT INTO coupons (code, discount_percent, min_order_value, expires_at, usage_limit, active)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (code) DO UPDATE SET
	discount_percent = EXCLUDED.discount_percent,
	min_order_value = EXCLUDED.min_order_value,
	expires_at = EXCLUDED.expires_at,
	usage_limit = EXCLUDED.usage_limit,
	active = EXCLUDED.active`

func main() {
	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if err := db.Migrate(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := db.NewPool(ctx, dbURL, "toko-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	now := time.Now().UTC()
	for _, c := range coupons {
		var expires *time.Time
		if c.ExpiresIn != 0 {
			at := now.Add(c.ExpiresIn)
			expires = &at
		}
		_, err := pool.Exec(ctx, upsertCouponSQL,
			c.Code, decimal.RequireFromString(c.Percent), c.MinOrder.Minor(), expires, c.UsageLimit, c.Active)
		if err != nil {
			logger.Error().Err(err).Str("code", c.Code).Msg("seed coupon")
			continue
		}
		logger.Info().Str("code", c.Code).Str("percent", c.Percent).Msg("coupon seeded")
	}
	logger.Info().Msg("seeding completed")
}
