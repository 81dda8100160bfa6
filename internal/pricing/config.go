package pricing

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// Settings keys recognised by ResolveConfig.
const (
	KeyTaxPercent            = "TAX_PERCENTAGE"
	KeyFreeShippingThreshold = "FREE_DELIVERY_THRESHOLD"
	KeyBaseShippingFee       = "DELIVERY_CHARGE"
	KeyPointValue            = "POINT_VALUE"
)

// Config holds the store-wide inputs of a pricing computation.
type Config struct {
	TaxPercent            decimal.Decimal `json:"taxPercent"`
	FreeShippingThreshold money.Money     `json:"freeShippingThreshold"`
	BaseShippingFee       money.Money     `json:"baseShippingFee"`
	PointValue            decimal.Decimal `json:"pointValueInCurrency"`
}

// DefaultConfig returns the fallback configuration used when settings are unavailable.
func DefaultConfig() Config {
	return Config{
		TaxPercent:            decimal.NewFromInt(18),
		FreeShippingThreshold: money.FromMajor(500),
		BaseShippingFee:       money.FromMajor(49),
		PointValue:            decimal.RequireFromString("0.25"),
	}
}

// DefaultHook is invoked for every key that fell back to its default.
type DefaultHook func(key string)

// ResolveConfig parses raw store settings into a Config. Missing or malformed
// values are replaced by defaults and logged; it never fails.
func ResolveConfig(raw map[string]string, logger zerolog.Logger, hooks ...DefaultHook) Config {
	cfg := DefaultConfig()
	fallback := func(key, value string, reason string) {
		logger.Warn().Str("key", key).Str("value", value).Str("reason", reason).Msg("pricing setting defaulted")
		for _, hook := range hooks {
			if hook != nil {
				hook(key)
			}
		}
	}

	if value, ok := lookup(raw, KeyTaxPercent); !ok {
		fallback(KeyTaxPercent, value, "missing")
	} else if d, err := decimal.NewFromString(value); err != nil {
		fallback(KeyTaxPercent, value, "unparsable")
	} else if d.IsNegative() {
		fallback(KeyTaxPercent, value, "negative")
	} else {
		cfg.TaxPercent = d
	}

	cfg.FreeShippingThreshold = resolveMoney(raw, KeyFreeShippingThreshold, cfg.FreeShippingThreshold, fallback)
	cfg.BaseShippingFee = resolveMoney(raw, KeyBaseShippingFee, cfg.BaseShippingFee, fallback)

	if value, ok := lookup(raw, KeyPointValue); !ok {
		fallback(KeyPointValue, value, "missing")
	} else if d, err := decimal.NewFromString(value); err != nil {
		fallback(KeyPointValue, value, "unparsable")
	} else if !d.IsPositive() {
		fallback(KeyPointValue, value, "not positive")
	} else {
		cfg.PointValue = d
	}
	return cfg
}

func resolveMoney(raw map[string]string, key string, def money.Money, fallback func(key, value, reason string)) money.Money {
	value, ok := lookup(raw, key)
	if !ok {
		fallback(key, value, "missing")
		return def
	}
	parsed, err := money.Parse(value)
	if err != nil {
		fallback(key, value, "unparsable")
		return def
	}
	if parsed < 0 {
		fallback(key, value, "negative")
		return def
	}
	return parsed
}

func lookup(raw map[string]string, key string) (string, bool) {
	if raw == nil {
		return "", false
	}
	value, ok := raw[key]
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}
