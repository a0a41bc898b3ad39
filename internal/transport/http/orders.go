package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/ahmedm-sallam/SmartInventorySystem/internal/order"
	"github.com/go-chi/chi/v5"
)

// OrderPlacer is the minimal interface needed to place an order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (order.PlaceOrderResult, error)
}

// OrderReader reads orders back out.
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, email string) ([]domain.Order, error)
}

// HandleCreateOrder returns an HTTP handler for placing orders. The
// idempotency key comes from the Idempotency-Key header, with the
// idempotency_key body field as a fallback. A replay returns 200 with
// the stored order instead of 201.
func HandleCreateOrder(svc OrderPlacer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			key = req.IdempotencyKey
		}

		items := make([]order.ItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, order.ItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		result, err := svc.PlaceOrder(r.Context(), order.PlaceOrderInput{
			IdempotencyKey: key,
			CustomerName:   req.CustomerName,
			CustomerEmail:  req.CustomerEmail,
			Items:          items,
		})
		if err != nil {
			switch err {
			case domain.ErrIdempotencyKeyRequired:
				writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
			case domain.ErrEmptyOrder:
				writeError(w, http.StatusBadRequest, codeEmptyOrder, err.Error())
			case domain.ErrInvalidQuantity:
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrDuplicateOrderItem:
				writeError(w, http.StatusBadRequest, codeDuplicateOrderItem, err.Error())
			case domain.ErrIdempotencyConflict:
				writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, toOrderResponse(result.Order))
	}
}

// HandleGetOrder returns one order by id.
func HandleGetOrder(svc OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := svc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrOrderNotFound:
				writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, toOrderResponse(o))
	}
}

// HandleListOrders lists orders, newest first, paged by limit and offset
// query parameters.
func HandleListOrders(svc OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		orders, err := svc.ListOrders(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeOrderList(w, orders)
	}
}

// HandleListCustomerOrders lists every order for one customer email.
func HandleListCustomerOrders(svc OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.ListOrdersByCustomer(r.Context(), chi.URLParam(r, "email"))
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}
		writeOrderList(w, orders)
	}
}

func writeOrderList(w http.ResponseWriter, orders []domain.Order) {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: out})
}

type createOrderRequest struct {
	CustomerName   string             `json:"customer_name"`
	CustomerEmail  string             `json:"customer_email"`
	IdempotencyKey string             `json:"idempotency_key"`
	Items          []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	FailureReason string              `json:"failure_reason,omitempty"`
	CustomerName  string              `json:"customer_name,omitempty"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	Items         []orderItemResponse `json:"items"`
	TotalCents    int64               `json:"total_cents"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type listOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return orderResponse{
		ID:            o.ID,
		Status:        string(o.Status),
		FailureReason: string(o.FailureReason),
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Items:         items,
		TotalCents:    o.TotalCents(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
