package checkout

import (
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// Handler exposes quoting, submission and the resolved pricing config.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewValidator returns a validator that reports fields by JSON name.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(common.JSONTagName)
	return v
}

// Quote handles POST /checkout/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload Input
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	quote, err := h.Svc.Quote(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, quote)
}

// Submit handles POST /checkout.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload Input
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	placed, err := h.Svc.Submit(r.Context(), key, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, placed)
}

// Config handles GET /pricing/config.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Settings == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing settings not configured", nil)
		return
	}
	cfg, source := h.Svc.Settings.Config(r.Context())
	common.Data(w, http.StatusOK, map[string]any{
		"config":   cfg,
		"source":   source,
		"currency": h.Svc.Currency,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.WriteError(w, common.NewAppError("EMPTY_CART", "cart has no items to price", http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrOrderFailed):
		common.WriteError(w, common.NewAppError("UPSTREAM_UNAVAILABLE", "order could not be placed, please retry", http.StatusBadGateway, err))
	default:
		common.WriteError(w, err)
	}
}
