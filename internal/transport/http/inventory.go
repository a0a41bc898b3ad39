package http

import (
	"context"
	"net/http"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/domain"
	"github.com/go-chi/chi/v5"
)

// InventoryReader reads the current stock position for a product.
type InventoryReader interface {
	GetInventory(ctx context.Context, productID string) (domain.InventoryRecord, error)
}

// HandleGetInventory returns the stock position for one product.
func HandleGetInventory(svc InventoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.GetInventory(r.Context(), chi.URLParam(r, "productID"))
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrInventoryNotFound:
				writeError(w, http.StatusNotFound, codeInventoryNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, inventoryResponse{
			ProductID: rec.ProductID,
			Total:     rec.Total,
			Reserved:  rec.Reserved,
			Available: rec.Available(),
			Threshold: rec.Threshold,
		})
	}
}

type inventoryResponse struct {
	ProductID string `json:"product_id"`
	Total     int    `json:"total"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
}
