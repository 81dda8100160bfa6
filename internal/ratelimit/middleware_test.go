package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/common"
)

type stubLimiter struct {
	allowed bool
	reset   time.Time
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ time.Duration, max int) (bool, int, time.Time, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return false, 0, time.Time{}, s.err
	}
	if s.allowed {
		return true, max - 1, s.reset, nil
	}
	return false, 0, s.reset, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func quoteRequest(remoteAddr, bearer string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", nil)
	req.RemoteAddr = remoteAddr
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func TestByShopperKeysOnBearerToken(t *testing.T) {
	key := ByShopper("quote:")
	var seen []string
	chain := common.ForwardBearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, key(r))
	}))

	chain.ServeHTTP(httptest.NewRecorder(), quoteRequest("10.0.0.1:5555", "tok-a"))
	chain.ServeHTTP(httptest.NewRecorder(), quoteRequest("10.0.0.1:6666", "tok-b"))
	chain.ServeHTTP(httptest.NewRecorder(), quoteRequest("10.0.0.9:7777", "tok-a"))
	chain.ServeHTTP(httptest.NewRecorder(), quoteRequest("10.0.0.1:5555", ""))

	require.Len(t, seen, 4)
	assert.True(t, strings.HasPrefix(seen[0], "quote:shopper:"))
	assert.NotContains(t, seen[0], "tok-a")
	assert.NotEqual(t, seen[0], seen[1], "same address, different shoppers")
	assert.Equal(t, seen[0], seen[2], "same shopper, different address")
	assert.Equal(t, "quote:ip:10.0.0.1", seen[3])
}

func TestMiddlewareRejectionReportsWindow(t *testing.T) {
	lim := &stubLimiter{reset: time.Now().Add(30 * time.Second)}
	h := Handler{Limiter: lim, Config: Config{Key: ByClientIP("quote:"), Window: time.Minute, Max: 120}}

	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, quoteRequest("10.0.0.1:5555", ""))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var out struct {
		Error struct {
			Code    string    `json:"code"`
			Details Rejection `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "RATE_LIMITED", out.Error.Code)
	assert.Equal(t, Rejection{Limit: 120, Window: "1m0s", RetryAfterSeconds: 30}, out.Error.Details)
}

func TestMiddlewareRetryAfterIsAtLeastOneSecond(t *testing.T) {
	lim := &stubLimiter{reset: time.Now().Add(-time.Second)}
	h := Handler{Limiter: lim, Config: Config{Key: ByClientIP("quote:"), Window: time.Minute, Max: 1}}

	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, quoteRequest("10.0.0.1:5555", ""))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestMiddlewareFailsOpenOnLimiterError(t *testing.T) {
	lim := &stubLimiter{err: errors.New("redis down")}
	var reported error
	h := Handler{
		Limiter: lim,
		Config:  Config{Key: ByClientIP("quote:"), Window: time.Minute, Max: 1},
		OnError: func(err error) { reported = err },
	}

	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, quoteRequest("10.0.0.1:5555", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualError(t, reported, "redis down")
}

func TestMiddlewareWithSlidingWindowPerShopper(t *testing.T) {
	lim, _, _ := newSliding(t)
	h := Handler{Limiter: lim, Config: Config{Key: ByShopper("quote:"), Window: time.Minute, Max: 1}}
	chain := common.ForwardBearer(h.Middleware(okHandler()))

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, quoteRequest("10.0.0.1:5555", "tok-a"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, quoteRequest("10.0.0.1:5555", "tok-a"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, quoteRequest("10.0.0.1:5555", "tok-b"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareWithoutLimiterPassesThrough(t *testing.T) {
	h := Handler{Config: Config{Key: ByClientIP("q:"), Window: time.Second, Max: 1}}
	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, quoteRequest("10.0.0.1:5555", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}
