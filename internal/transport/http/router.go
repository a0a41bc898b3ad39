package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// LedgerService is everything the ledger HTTP surface needs.
type LedgerService interface {
	Reserver
	ReservationFinisher
	InventoryReader
}

// OrderService is everything the fulfillment HTTP surface needs.
type OrderService interface {
	OrderPlacer
	OrderReader
}

// NewLedgerRouter mounts the inventory ledger routes.
func NewLedgerRouter(svc LedgerService, log *zap.Logger, corsOrigins []string) http.Handler {
	r := newRouter(log, corsOrigins)

	r.Get("/health", HealthHandler)
	r.Post("/reservations", HandleReserve(svc))
	r.Post("/reservations/{reservationID}/commit", HandleCommitReservation(svc))
	r.Post("/reservations/{reservationID}/release", HandleReleaseReservation(svc))
	r.Get("/inventory/{productID}", HandleGetInventory(svc))

	return otelhttp.NewHandler(r, "ledger")
}

// NewFulfillmentRouter mounts the order fulfillment routes.
func NewFulfillmentRouter(svc OrderService, log *zap.Logger, corsOrigins []string) http.Handler {
	r := newRouter(log, corsOrigins)

	r.Get("/health", HealthHandler)
	r.Post("/orders", HandleCreateOrder(svc))
	r.Get("/orders", HandleListOrders(svc))
	r.Get("/orders/{orderID}", HandleGetOrder(svc))
	r.Get("/orders/customer/{email}", HandleListCustomerOrders(svc))

	return otelhttp.NewHandler(r, "fulfillment")
}

func newRouter(log *zap.Logger, corsOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger(log))
	r.Use(CORS(corsOrigins))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})
	return r
}
