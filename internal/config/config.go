package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	CurrencyCode       string

	StoreAPIBaseURL     string
	StoreAPITimeout     time.Duration
	StoreAPIMaxAttempts int
	StoreAPIRetryBase   time.Duration
	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration

	SettingsCacheTTL   time.Duration
	SettingsFailureTTL time.Duration
	CouponSource       string
	IdempotencyTTL     time.Duration

	QuoteRateLimitMax    int
	QuoteRateLimitWindow time.Duration
	RateLimitBackend     string
	BodyLimitBytes       int64

	DBAutoMigrate     bool
	OrderLedgerAsync  bool
	WorkerConcurrency int
}

// Coupon sources.
const (
	CouponSourceRemote   = "remote"
	CouponSourcePostgres = "postgres"
)

// Rate limiter backends.
const (
	RateLimitSliding = "sliding"
	RateLimitFixed   = "fixed"
)

// Load reads the API configuration from environment variables and optional
// .env files.
func Load() (*Config, error) {
	return load(true)
}

// LoadWorker reads the ledger worker configuration. The worker never calls the
// store backend, so STORE_API_BASE_URL is optional.
func LoadWorker() (*Config, error) {
	return load(false)
}

func load(requireStoreAPI bool) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "INR")),

		StoreAPIBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("STORE_API_BASE_URL")), "/"),
		StoreAPITimeout:     parseDuration(k.String("STORE_API_TIMEOUT"), "3s"),
		StoreAPIMaxAttempts: parseInt(k.String("STORE_API_MAX_ATTEMPTS"), 3),
		StoreAPIRetryBase:   parseDuration(k.String("STORE_API_RETRY_BASE"), "100ms"),
		CircuitMinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		SettingsCacheTTL:   parseDuration(k.String("SETTINGS_CACHE_TTL"), "5m"),
		SettingsFailureTTL: parseDuration(k.String("SETTINGS_FAILURE_TTL"), "30s"),
		CouponSource:       strings.ToLower(valueOrDefault(k.String("COUPON_SOURCE"), CouponSourceRemote)),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		QuoteRateLimitMax:    parseInt(k.String("QUOTE_RATE_LIMIT_MAX"), 120),
		QuoteRateLimitWindow: parseDuration(k.String("QUOTE_RATE_LIMIT_WINDOW"), "1m"),
		RateLimitBackend:     strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_BACKEND"), RateLimitSliding)),
		BodyLimitBytes:       int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),

		DBAutoMigrate:     parseBool(k.String("DB_AUTO_MIGRATE")),
		OrderLedgerAsync:  parseBool(k.String("ORDER_LEDGER_ASYNC")),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if requireStoreAPI && cfg.StoreAPIBaseURL == "" {
		return nil, errors.New("STORE_API_BASE_URL is required")
	}
	switch cfg.CouponSource {
	case CouponSourceRemote, CouponSourcePostgres:
	default:
		return nil, fmt.Errorf("COUPON_SOURCE must be %q or %q", CouponSourceRemote, CouponSourcePostgres)
	}
	switch cfg.RateLimitBackend {
	case RateLimitSliding, RateLimitFixed:
	default:
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q", RateLimitSliding, RateLimitFixed)
	}
	if cfg.CircuitFailureRatio <= 0 || cfg.CircuitFailureRatio > 1 {
		return nil, errors.New("CIRCUIT_FAILURE_RATIO must be in (0, 1]")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	return withEnv(env, Load)
}

func withEnv(env map[string]string, loader func() (*Config, error)) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := loader()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
