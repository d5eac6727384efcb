package httpx

import (
	"encoding/json"
	"errors"
	"github.com/ariefcatur/nexus-inventory/internal/notify"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	log "github.com/sirupsen/logrus"
	"net/http"
)

type errorResp struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *orders.InvalidInputError
		notFound *orders.ProductNotFoundError
		short    *orders.InsufficientStockError
	)
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error(), Code: "INVALID_INPUT", Details: invalid.Problems})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp{Error: err.Error(), Code: "PRODUCT_NOT_FOUND",
			Details: map[string]string{"productId": notFound.ProductID}})
	case errors.As(err, &short):
		writeJSON(w, http.StatusConflict, errorResp{Error: err.Error(), Code: "INSUFFICIENT_STOCK",
			Details: map[string]any{"productId": short.ProductID, "requested": short.Requested, "available": short.Available}})
	case errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResp{Error: err.Error(), Code: "ORDER_NOT_FOUND"})
	case errors.Is(err, notify.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResp{Error: err.Error(), Code: "NOTIFICATION_NOT_FOUND"})
	case errors.Is(err, orders.ErrTransaction):
		log.WithError(err).WithField("path", r.URL.Path).Warn("transaction failed")
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResp{Error: "transaction failed, retry the request", Code: "TRANSACTION_FAILED"})
	default:
		log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "internal error", Code: "INTERNAL"})
	}
}
