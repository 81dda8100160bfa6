package orders

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// Handler serves ledger reads.
type Handler struct {
	Ledger Reader
}

// Summary handles GET /orders/{orderId}/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Ledger == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order ledger not configured", nil)
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		common.WriteError(w, common.ValidationError("orderId is required", nil))
		return
	}
	entry, err := h.Ledger.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.WriteError(w, common.NewAppError("NOT_FOUND", "order not found", http.StatusNotFound, err))
			return
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, entry)
}
