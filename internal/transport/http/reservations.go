package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/ahmedm-sallam/SmartInventorySystem/internal/ledger"
	"github.com/go-chi/chi/v5"
)

// Reserver is the minimal interface needed to place a hold on stock.
type Reserver interface {
	Reserve(ctx context.Context, in ledger.ReserveInput) (domain.Reservation, error)
}

// ReservationFinisher commits or releases an existing reservation.
type ReservationFinisher interface {
	Commit(ctx context.Context, reservationID string) (domain.CommitResult, error)
	Release(ctx context.Context, reservationID string) (domain.Reservation, error)
}

// HandleReserve returns an HTTP handler for creating reservations.
// A retry for the same (order, product) pair returns the existing
// reservation rather than a second one.
func HandleReserve(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reserveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Reserve(r.Context(), ledger.ReserveInput{
			ProductID: req.ProductID,
			OrderID:   req.OrderID,
			Quantity:  req.Quantity,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrInvalidQuantity:
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
			case domain.ErrInventoryNotFound:
				writeError(w, http.StatusNotFound, codeInventoryNotFound, err.Error())
			case domain.ErrInsufficientStock:
				writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, toReservationResponse(res))
	}
}

// HandleCommitReservation converts a held reservation into a committed
// one and reports the post-commit stock level.
func HandleCommitReservation(svc ReservationFinisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Commit(r.Context(), chi.URLParam(r, "reservationID"))
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrReservationNotFound:
				writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
			case domain.ErrReservationReleased:
				writeError(w, http.StatusConflict, codeReservationReleased, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, commitResponse{
			Reservation: toReservationResponse(result.Reservation),
			Available:   result.Available,
			Threshold:   result.Threshold,
		})
	}
}

// HandleReleaseReservation returns held units to the available pool.
// Releasing an already released or committed reservation is a no-op.
func HandleReleaseReservation(svc ReservationFinisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Release(r.Context(), chi.URLParam(r, "reservationID"))
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrReservationNotFound:
				writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, toReservationResponse(res))
	}
}

type reserveRequest struct {
	ProductID string `json:"product_id"`
	OrderID   string `json:"order_id"`
	Quantity  int    `json:"quantity"`
}

type reservationResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func toReservationResponse(res domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:        res.ID,
		OrderID:   res.OrderID,
		ProductID: res.ProductID,
		Quantity:  res.Quantity,
		State:     string(res.State),
		ExpiresAt: res.ExpiresAt,
		CreatedAt: res.CreatedAt,
	}
}

type commitResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Available   int                 `json:"available"`
	Threshold   int                 `json:"threshold"`
}
