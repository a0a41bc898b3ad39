package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeInvalidID             = "invalid_id"
	codeInvalidQuantity       = "invalid_quantity"
	codeEmptyOrder            = "empty_order"
	codeDuplicateOrderItem    = "duplicate_order_item"
	codeIdempotencyRequired   = "idempotency_key_required"
	codeIdempotencyConflict   = "idempotency_conflict"
	codeInsufficientStock     = "insufficient_stock"
	codeInventoryNotFound     = "inventory_not_found"
	codeReservationNotFound   = "reservation_not_found"
	codeReservationReleased   = "reservation_released"
	codeOrderNotFound         = "order_not_found"
	codeUnknownProduct        = "unknown_product"
	codeDependencyUnavailable = "dependency_unavailable"
	codeForbidden             = "forbidden"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
