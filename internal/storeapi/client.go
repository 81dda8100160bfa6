package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/resilience"
)

// ErrUnexpectedStatus is wrapped by errors for responses the client does not
// know how to interpret.
var ErrUnexpectedStatus = errors.New("storeapi: unexpected status")

// Doer executes outbound requests; resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the remote store backend.
type Client struct {
	BaseURL string
	HTTP    Doer
}

// Options configures New.
type Options struct {
	Timeout      time.Duration
	MaxAttempts  int
	RetryBase    time.Duration
	RetryJitter  float64
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	Logger       zerolog.Logger
}

// New builds a Client with an otelhttp-instrumented transport behind a
// circuit breaker.
func New(baseURL string, opts Options) *Client {
	logger := opts.Logger
	breaker := resilience.NewBreaker(opts.MinRequests, opts.FailureRatio, opts.OpenFor).
		WithTarget("store-api").
		WithLogger(logger)
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			BaseBackoff: opts.RetryBase,
			MaxAttempts: opts.MaxAttempts,
			Jitter:      opts.RetryJitter,
			Timeout:     opts.Timeout,
			Logger:      &logger,
		},
	}
}

// Healthy reports an error while the circuit to the backend is open.
func (c *Client) Healthy(context.Context) error {
	if c == nil {
		return errors.New("storeapi: client not configured")
	}
	if hc, ok := c.HTTP.(resilience.HTTPClient); ok && hc.Breaker != nil && hc.Breaker.State() == resilience.Open {
		return resilience.ErrOpenCircuit
	}
	return nil
}

// Settings fetches store-wide settings as a flat string map. Both
// {"data": {...}} and a bare object are accepted; numeric values are
// rendered in their JSON form.
func (c *Client) Settings(ctx context.Context) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, "/settings", nil, &raw); err != nil {
		return nil, err
	}
	if data, ok := raw["data"]; ok {
		raw = nil
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("storeapi: decode settings: %w", err)
		}
	}
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			out[key] = s
			continue
		}
		out[key] = strings.TrimSpace(string(value))
	}
	return out, nil
}

// RewardPoints fetches the shopper's loyalty balance using the forwarded
// bearer token.
func (c *Client) RewardPoints(ctx context.Context) (int64, error) {
	var profile struct {
		RewardPoints *int64 `json:"rewardPoints"`
		Data         *struct {
			RewardPoints int64 `json:"rewardPoints"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "/profile", nil, &profile); err != nil {
		return 0, err
	}
	switch {
	case profile.RewardPoints != nil:
		return max(*profile.RewardPoints, 0), nil
	case profile.Data != nil:
		return max(profile.Data.RewardPoints, 0), nil
	default:
		return 0, nil
	}
}

// OrderLine is one line of an order creation request.
type OrderLine struct {
	ProductID string `json:"productId"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// OrderRequest is the payload sent to the order-creation endpoint.
type OrderRequest struct {
	Items          []OrderLine `json:"items"`
	CouponCode     string      `json:"couponCode,omitempty"`
	PointsRedeemed int64       `json:"pointsRedeemed"`
	Subtotal       string      `json:"subtotal"`
	Discount       string      `json:"discount"`
	Tax            string      `json:"tax"`
	Shipping       string      `json:"shipping"`
	PointsDiscount string      `json:"pointsDiscount"`
	GrandTotal     string      `json:"grandTotal"`
}

// CreateOrder submits an order and returns the server-assigned identifier.
// Every attempt carries the same Idempotency-Key so retries are deduplicated
// upstream; one is generated when idempotencyKey is empty.
func (c *Client) CreateOrder(ctx context.Context, idempotencyKey string, order OrderRequest) (string, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("storeapi: encode order: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/orders", nil, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	var out struct {
		OrderID string `json:"orderId"`
		ID      string `json:"id"`
		Data    *struct {
			OrderID string `json:"orderId"`
		} `json:"data"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	switch {
	case out.OrderID != "":
		return out.OrderID, nil
	case out.Data != nil && out.Data.OrderID != "":
		return out.Data.OrderID, nil
	case out.ID != "":
		return out.ID, nil
	}
	return "", errors.New("storeapi: order response missing identifier")
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("storeapi: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("storeapi: status %d", e.Status)
}

// Unwrap lets callers match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// UserMessage returns the backend-supplied message, if any.
func (e *StatusError) UserMessage() string { return e.Message }

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, dst)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	if c == nil || c.HTTP == nil || c.BaseURL == "" {
		return nil, errors.New("storeapi: client not configured")
	}
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("storeapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := common.BearerToken(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, dst any) error {
	resp, err := c.HTTP.Do(req.Context(), req)
	if err != nil {
		return fmt.Errorf("storeapi: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("storeapi: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if dst == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("storeapi: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// errorMessage extracts a message from {"message": ...} or
// {"error": {"message": ...}} bodies.
func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	var plain string
	if err := json.Unmarshal(payload.Error, &plain); err == nil {
		return plain
	}
	return ""
}
