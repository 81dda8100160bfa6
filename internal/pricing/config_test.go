package pricing

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigParsesSettings(t *testing.T) {
	cfg := ResolveConfig(map[string]string{
		KeyTaxPercent:            "12.5",
		KeyFreeShippingThreshold: " 999 ",
		KeyBaseShippingFee:       "39.90",
		KeyPointValue:            "0.5",
	}, zerolog.Nop())

	require.True(t, cfg.TaxPercent.Equal(decimal.RequireFromString("12.5")))
	require.Equal(t, major("999"), cfg.FreeShippingThreshold)
	require.Equal(t, major("39.90"), cfg.BaseShippingFee)
	require.True(t, cfg.PointValue.Equal(decimal.RequireFromString("0.5")))
}

func TestResolveConfigFallsBackToDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	var defaulted []string

	cfg := ResolveConfig(map[string]string{
		KeyTaxPercent:            "eighteen",
		KeyFreeShippingThreshold: "-5",
		KeyPointValue:            "0",
	}, logger, func(key string) { defaulted = append(defaulted, key) })

	def := DefaultConfig()
	require.True(t, cfg.TaxPercent.Equal(def.TaxPercent))
	require.Equal(t, def.FreeShippingThreshold, cfg.FreeShippingThreshold)
	require.Equal(t, def.BaseShippingFee, cfg.BaseShippingFee)
	require.True(t, cfg.PointValue.Equal(def.PointValue))
	require.ElementsMatch(t, []string{KeyTaxPercent, KeyFreeShippingThreshold, KeyBaseShippingFee, KeyPointValue}, defaulted)
	require.Contains(t, buf.String(), "pricing setting defaulted")
	require.Contains(t, buf.String(), `"key":"TAX_PERCENTAGE"`)
}

func TestResolveConfigNilSettings(t *testing.T) {
	cfg := ResolveConfig(nil, zerolog.Nop())
	require.Equal(t, DefaultConfig().FreeShippingThreshold, cfg.FreeShippingThreshold)
	require.True(t, cfg.TaxPercent.Equal(decimal.NewFromInt(18)))
}
