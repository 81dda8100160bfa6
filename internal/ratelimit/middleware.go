package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/common"
)

var errUnexpectedReply = errors.New("ratelimit: unexpected limiter reply")

// shopperNamespace scopes the opaque ids derived from bearer tokens.
var shopperNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("toko-pricing/ratelimit/shopper"))

// Limiter decides whether an event for key fits within max events per window.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error)
}

// ByClientIP keys requests by client address under prefix.
func ByClientIP(prefix string) func(*http.Request) string {
	return func(r *http.Request) string {
		return prefix + "ip:" + common.ClientIP(r)
	}
}

// ByShopper keys signed-in shoppers by an opaque id derived from their bearer
// token. Anonymous requests fall back to the client address. The token itself
// never reaches Redis.
func ByShopper(prefix string) func(*http.Request) string {
	byIP := ByClientIP(prefix)
	return func(r *http.Request) string {
		if token, ok := common.BearerToken(r.Context()); ok {
			return prefix + "shopper:" + uuid.NewSHA1(shopperNamespace, []byte(token)).String()
		}
		return byIP(r)
	}
}

// Rejection is the detail payload of a 429 response.
type Rejection struct {
	Limit             int    `json:"limit"`
	Window            string `json:"window"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil || h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Config.Key(r)
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limitValue := h.Config.Max
		if limitValue < 0 {
			limitValue = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limitValue))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many quote requests, slow down", Rejection{
				Limit:             limitValue,
				Window:            h.Config.Window.String(),
				RetryAfterSeconds: retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
