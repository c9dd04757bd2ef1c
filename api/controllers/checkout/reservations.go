package checkout

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lucasrioja/storefront-backend/api/responses"
	"github.com/lucasrioja/storefront-backend/api/validators"
	"github.com/lucasrioja/storefront-backend/internal/reservation"
	pkgerrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
)

// ReserveRequest asks for a short-lived stock lock on one SKU.
type ReserveRequest struct {
	SKU      string `json:"sku" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

// ReservationDTO is a granted lock on the wire.
type ReservationDTO struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expiresAt"`
	Remaining int       `json:"remaining"`
}

// ReservationCreate grants a stock lock or rejects with INSUFFICIENT_STOCK.
func ReservationCreate(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload ReserveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sku := validators.SanitizeString(payload.SKU, 64)
		granted, remaining, err := svc.Reserve(r.Context(), sku, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ReservationDTO{
			ID:        granted.ID,
			SKU:       granted.SKU,
			Quantity:  granted.Quantity,
			ExpiresAt: granted.ExpiresAt,
			Remaining: remaining,
		})
	}
}

// ReservationRelease drops a lock. Unknown or expired locks succeed quietly.
func ReservationRelease(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, lockID, err := lockParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Release(r.Context(), sku, lockID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "released"})
	}
}

// ReservationCommit converts a lock into a real stock decrement.
func ReservationCommit(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, lockID, err := lockParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Commit(r.Context(), sku, lockID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "committed"})
	}
}

func lockParams(r *http.Request) (string, string, error) {
	sku := validators.SanitizeString(chi.URLParam(r, "sku"), 64)
	lockID := validators.SanitizeString(chi.URLParam(r, "lockID"), 64)
	if sku == "" || lockID == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "sku and reservation id are required")
	}
	return sku, lockID, nil
}
