package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

type stubFetcher struct {
	raw   map[string]string
	err   error
	calls int
}

func (s *stubFetcher) Settings(context.Context) (map[string]string, error) {
	s.calls++
	return s.raw, s.err
}

func newCache(t *testing.T) (*cache.JSON, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewJSON(client, "test:settings:", time.Minute), mr
}

func TestConfigFetchesThenCaches(t *testing.T) {
	c, _ := newCache(t)
	fetcher := &stubFetcher{raw: map[string]string{"TAX_PERCENTAGE": "12", "DELIVERY_CHARGE": "60", "FREE_DELIVERY_THRESHOLD": "1000", "POINT_VALUE": "0.5"}}
	p := NewProvider(fetcher, c, zerolog.Nop(), nil)

	cfg, src := p.Config(context.Background())
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, "12", cfg.TaxPercent.String())
	assert.Equal(t, money.FromMajor(60), cfg.BaseShippingFee)

	cfg, src = p.Config(context.Background())
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, money.FromMajor(1000), cfg.FreeShippingThreshold)
	assert.Equal(t, 1, fetcher.calls)
}

func TestConfigRefetchesAfterTTL(t *testing.T) {
	c, mr := newCache(t)
	fetcher := &stubFetcher{raw: map[string]string{"TAX_PERCENTAGE": "12"}}
	p := NewProvider(fetcher, c, zerolog.Nop(), nil)

	_, _ = p.Config(context.Background())
	mr.FastForward(2 * time.Minute)
	_, src := p.Config(context.Background())
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, 2, fetcher.calls)
}

func TestConfigFallsBackToDefaults(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := obs.NewDomainMetrics("test", reg)
	p := NewProvider(&stubFetcher{err: errors.New("boom")}, nil, zerolog.Nop(), metrics)

	cfg, src := p.Config(context.Background())
	assert.Equal(t, SourceDefaults, src)
	assert.Equal(t, pricing.DefaultConfig(), cfg)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConfigDefaulted.WithLabelValues("TAX_PERCENTAGE")))
}

func TestConfigRemembersFetchFailure(t *testing.T) {
	c, mr := newCache(t)
	fetcher := &stubFetcher{err: errors.New("store down")}
	p := NewProvider(fetcher, c, zerolog.Nop(), nil).WithFailureTTL(10 * time.Second)

	for i := 0; i < 3; i++ {
		cfg, src := p.Config(context.Background())
		assert.Equal(t, SourceDefaults, src)
		assert.Equal(t, pricing.DefaultConfig(), cfg)
	}
	assert.Equal(t, 1, fetcher.calls)

	mr.FastForward(11 * time.Second)
	fetcher.err = nil
	fetcher.raw = map[string]string{"TAX_PERCENTAGE": "12"}
	cfg, src := p.Config(context.Background())
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, "12", cfg.TaxPercent.String())
	assert.Equal(t, 2, fetcher.calls)
}

func TestInvalidateClearsFailureMarker(t *testing.T) {
	c, _ := newCache(t)
	fetcher := &stubFetcher{err: errors.New("store down")}
	p := NewProvider(fetcher, c, zerolog.Nop(), nil)

	_, _ = p.Config(context.Background())
	fetcher.err = nil
	fetcher.raw = map[string]string{"TAX_PERCENTAGE": "5"}
	require.NoError(t, p.Invalidate(context.Background()))
	_, src := p.Config(context.Background())
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, 2, fetcher.calls)
}

func TestInvalidate(t *testing.T) {
	c, _ := newCache(t)
	fetcher := &stubFetcher{raw: map[string]string{"TAX_PERCENTAGE": "5"}}
	p := NewProvider(fetcher, c, zerolog.Nop(), nil)

	_, _ = p.Config(context.Background())
	require.NoError(t, p.Invalidate(context.Background()))
	_, src := p.Config(context.Background())
	assert.Equal(t, SourceRemote, src)
}
