package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucasrioja/storefront-backend/api/middleware"
	"github.com/lucasrioja/storefront-backend/api/responses"
	"github.com/lucasrioja/storefront-backend/api/validators"
	cartsvc "github.com/lucasrioja/storefront-backend/internal/cart"
	pkgerrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
)

// CartFetch returns the reconciled cart for the caller's identity.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newViewDTO(view))
	}
}

// CartAdd inserts a SKU or sums it into an existing line.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sku := validators.SanitizeString(payload.SKU, 64)
		record, err := svc.Add(r.Context(), identity, payload.ProductID, sku, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartDTO(record))
	}
}

// CartUpdate rewrites a line's quantity; zero removes it.
func CartUpdate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sku := validators.SanitizeString(payload.SKU, 64)
		record, err := svc.Update(r.Context(), identity, sku, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartDTO(record))
	}
}

// CartRemove deletes the line addressed by the sku path parameter.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sku := validators.SanitizeString(chi.URLParam(r, "sku"), 64)
		if sku == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku is required"))
			return
		}

		record, err := svc.Remove(r.Context(), identity, sku)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartDTO(record))
	}
}

// CartClear empties the cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Clear(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartDTO(record))
	}
}

// CartSync bulk-replaces the cart, reporting per-item failures.
func CartSync(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload SyncRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := make([]cartsvc.SyncEntry, 0, len(payload.Items))
		for _, item := range payload.Items {
			entries = append(entries, cartsvc.SyncEntry{
				ProductID: item.ProductID,
				SKU:       validators.SanitizeString(item.SKU, 64),
				Quantity:  item.Quantity,
			})
		}

		result, err := svc.Sync(r.Context(), identity, entries)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto := newCartDTO(result.Cart)
		dto.Errors = result.Errors
		responses.WriteSuccess(w, dto)
	}
}

// CartMerge folds a guest cart into the authenticated caller's cart.
func CartMerge(svc cartsvc.Merger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload MergeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Merge(r.Context(), userID, validators.SanitizeString(payload.GuestSessionID, 128))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto := newCartDTO(result.Cart)
		dto.Warnings = result.Warnings
		responses.WriteSuccess(w, dto)
	}
}

func identityFromRequest(r *http.Request) (cartsvc.Identity, error) {
	ctx := r.Context()
	if raw := middleware.UserIDFromContext(ctx); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return cartsvc.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return cartsvc.UserIdentity(userID), nil
	}
	if session := middleware.GuestSessionFromContext(ctx); session != "" {
		return cartsvc.GuestIdentity(session), nil
	}
	return cartsvc.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity missing")
}

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
