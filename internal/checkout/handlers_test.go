package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: NewValidator()}
}

func TestQuoteHandler(t *testing.T) {
	h := newHandler(newService())
	body := `{"items":[{"productId":"p1","unitPrice":300,"quantity":2}]}`
	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data struct {
			Pricing struct {
				GrandTotal float64 `json:"grandTotal"`
				Shipping   float64 `json:"shipping"`
			} `json:"pricing"`
			Loyalty struct {
				PendingEarned int64 `json:"pendingEarned"`
			} `json:"loyalty"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 708.0, out.Data.Pricing.GrandTotal)
	assert.Equal(t, 0.0, out.Data.Pricing.Shipping)
	assert.Equal(t, int64(7), out.Data.Loyalty.PendingEarned)
}

func TestQuoteHandlerValidation(t *testing.T) {
	h := newHandler(newService())
	body := `{"items":[{"productId":"p1","unitPrice":-5,"quantity":0}],"pointsToRedeem":-1}`
	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(body)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var out errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "VALIDATION_FAILED", out.Error.Code)
	assert.Equal(t, "gte", out.Error.Details["items[0].unitPrice"])
	assert.Equal(t, "gte", out.Error.Details["items[0].quantity"])
	assert.Equal(t, "gte", out.Error.Details["pointsToRedeem"])
}

func TestQuoteHandlerRejectsOversizedPrices(t *testing.T) {
	h := newHandler(newService())

	rec := httptest.NewRecorder()
	body := `{"items":[{"productId":"p1","unitPrice":10000000.01,"quantity":1}]}`
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var out errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "lte", out.Error.Details["items[0].unitPrice"])

	rec = httptest.NewRecorder()
	body = `{"items":[{"productId":"p1","unitPrice":1e18,"quantity":2}]}`
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteHandlerEmptyCart(t *testing.T) {
	h := newHandler(newService())
	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{"items":[]}`)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var out errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "EMPTY_CART", out.Error.Code)
}

func TestSubmitHandler(t *testing.T) {
	svc := newService()
	ordersAPI := &stubOrders{id: "ord-1"}
	svc.Orders = ordersAPI
	h := newHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"items":[{"productId":"p1","unitPrice":"300.00","quantity":2}]}`))
	req.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orderId":"ord-1"`)
	assert.Equal(t, "abc", ordersAPI.key)
}

func TestSubmitHandlerUpstreamFailure(t *testing.T) {
	svc := newService()
	svc.Orders = &stubOrders{err: errors.New("down")}
	h := newHandler(svc)

	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"items":[{"productId":"p1","unitPrice":100,"quantity":1}]}`)))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var out errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", out.Error.Code)
}

func TestConfigHandler(t *testing.T) {
	h := newHandler(newService())
	rec := httptest.NewRecorder()
	h.Config(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pricing/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data struct {
			Config struct {
				BaseShippingFee float64 `json:"baseShippingFee"`
			} `json:"config"`
			Source   string `json:"source"`
			Currency string `json:"currency"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 49.0, out.Data.Config.BaseShippingFee)
	assert.Equal(t, "defaults", out.Data.Source)
	assert.Equal(t, "INR", out.Data.Currency)
}
