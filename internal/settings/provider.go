package settings

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

const (
	cacheKey       = "pricing"
	unavailableKey = "pricing:unavailable"

	// DefaultFailureTTL is how long a failed fetch suppresses refetching.
	DefaultFailureTTL = 30 * time.Second
)

// Source names where a resolved configuration came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceDefaults Source = "defaults"
)

// Fetcher loads raw store settings; storeapi.Client satisfies it.
type Fetcher interface {
	Settings(ctx context.Context) (map[string]string, error)
}

// Provider resolves the pricing configuration. Raw settings are cached in
// Redis; when neither the cache nor the backend can supply them the
// documented defaults are used and a warning is logged. A failed fetch is
// remembered for the failure TTL; until it expires defaults are served without
// calling the backend.
type Provider struct {
	fetcher    Fetcher
	cache      *cache.JSON
	logger     zerolog.Logger
	metrics    *obs.DomainMetrics
	failureTTL time.Duration
}

// NewProvider constructs a Provider. cache and metrics may be nil.
func NewProvider(fetcher Fetcher, c *cache.JSON, logger zerolog.Logger, metrics *obs.DomainMetrics) *Provider {
	return &Provider{fetcher: fetcher, cache: c, logger: logger, metrics: metrics, failureTTL: DefaultFailureTTL}
}

// WithFailureTTL overrides DefaultFailureTTL. A non-positive value disables
// failure caching.
func (p *Provider) WithFailureTTL(ttl time.Duration) *Provider {
	p.failureTTL = ttl
	return p
}

// Config returns the effective pricing configuration. It never fails.
func (p *Provider) Config(ctx context.Context) (pricing.Config, Source) {
	raw, source := p.raw(ctx)
	return pricing.ResolveConfig(raw, p.logger, p.metrics.ConfigDefault), source
}

// Invalidate drops cached settings so the next call refetches them.
func (p *Provider) Invalidate(ctx context.Context) error {
	return p.cache.Delete(ctx, cacheKey, unavailableKey)
}

func (p *Provider) raw(ctx context.Context) (map[string]string, Source) {
	var cached map[string]string
	hit, err := p.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		p.logger.Warn().Err(err).Msg("settings cache read failed")
	}
	if hit {
		return cached, SourceCache
	}

	if p.fetcher == nil {
		p.logger.Warn().Msg("settings backend not configured, using defaults")
		return nil, SourceDefaults
	}
	var down bool
	if hit, _ := p.cache.Get(ctx, unavailableKey, &down); hit && down {
		p.logger.Debug().Msg("settings backend recently failed, using defaults")
		return nil, SourceDefaults
	}
	raw, err := p.fetcher.Settings(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Dur("retry_in", p.failureTTL).Msg("settings fetch failed, using defaults")
		if err := p.cache.SetFor(ctx, unavailableKey, true, p.failureTTL); err != nil {
			p.logger.Warn().Err(err).Msg("settings failure marker write failed")
		}
		return nil, SourceDefaults
	}
	if err := p.cache.Set(ctx, cacheKey, raw); err != nil {
		p.logger.Warn().Err(err).Msg("settings cache write failed")
	}
	return raw, SourceRemote
}
