package common

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const bearerKey ctxKey = "auth/bearer"

// WithBearerToken stores the shopper's bearer token for forwarding to the
// store backend. The token is opaque here; the backend authenticates it.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey, token)
}

// BearerToken extracts the forwarded bearer token from the context if present.
func BearerToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerKey).(string)
	return token, ok && token != ""
}

// ForwardBearer copies the Authorization bearer token into the request context.
func ForwardBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			r = r.WithContext(WithBearerToken(r.Context(), strings.TrimSpace(header[7:])))
		}
		next.ServeHTTP(w, r)
	})
}
