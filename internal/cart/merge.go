package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/lucasrioja/storefront-backend/pkg/config"
	"github.com/lucasrioja/storefront-backend/pkg/enums"
	apperrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
)

// MergeResult is the user cart after folding in a guest session, plus
// warnings for anything capped or dropped along the way.
type MergeResult struct {
	Cart     *Cart     `json:"cart"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Merger folds a guest cart into a user cart at login.
type Merger interface {
	Merge(ctx context.Context, userID uuid.UUID, guestSessionID string) (*MergeResult, error)
}

// MergerParams groups dependencies for the merge service.
type MergerParams struct {
	Service    Service
	UserStore  Repository
	GuestStore Repository
	Limits     config.CartConfig
	Logger     *logger.Logger
}

type merger struct {
	svc    Service
	users  Repository
	guests Repository
	limits config.CartConfig
	log    *logger.Logger
}

// NewMerger builds the merge service.
func NewMerger(params MergerParams) (Merger, error) {
	if params.Service == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "cart service is required")
	}
	if params.UserStore == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user cart store is required")
	}
	if params.GuestStore == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "guest cart store is required")
	}
	if params.Limits.MaxItems <= 0 || params.Limits.MaxQtyPerItem <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "cart limits must be positive")
	}
	return &merger{
		svc:    params.Service,
		users:  params.UserStore,
		guests: params.GuestStore,
		limits: params.Limits,
		log:    params.Logger,
	}, nil
}

// Merge applies each guest line as an add-with-summing against the user
// cart, then deletes the guest cart. The merge is one-shot: the guest cart
// is retired only after the whole loop completes, so an infrastructure
// failure mid-merge leaves it intact for a retry. A retry after a partial
// merge can re-apply already merged lines; quantities stay within the caps
// either way.
func (m *merger) Merge(ctx context.Context, userID uuid.UUID, guestSessionID string) (*MergeResult, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if guestSessionID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "guest session id is required")
	}

	guestIdentity := GuestIdentity(guestSessionID)
	userIdentity := UserIdentity(userID)

	guest, err := m.guests.Peek(ctx, guestIdentity)
	if err != nil {
		return nil, err
	}
	if guest.IsEmpty() {
		if guest != nil {
			if err := m.guests.Retire(ctx, guestIdentity); err != nil {
				return nil, err
			}
		}
		current, err := m.users.Get(ctx, userIdentity)
		if err != nil {
			return nil, err
		}
		return &MergeResult{Cart: current}, nil
	}

	current, err := m.users.Get(ctx, userIdentity)
	if err != nil {
		return nil, err
	}

	warnings := make([]Warning, 0)
	for _, item := range guest.Items {
		quantity := item.Quantity
		if existing := current.FindItem(item.SKU); existing != nil {
			allowed := m.limits.MaxQtyPerItem - existing.Quantity
			if allowed <= 0 {
				warnings = append(warnings, Warning{
					SKU:     item.SKU,
					Type:    enums.CartWarningTypeItemDropped,
					Message: "item quantity limit already reached",
				})
				continue
			}
			if quantity > allowed {
				quantity = allowed
				warnings = append(warnings, Warning{
					SKU:     item.SKU,
					Type:    enums.CartWarningTypeQuantityCapped,
					Message: "quantity reduced to fit the item limit",
				})
			}
		}

		merged, err := m.svc.Add(ctx, userIdentity, item.ProductID, item.SKU, quantity)
		if err != nil {
			if isBusinessError(err) {
				if m.log != nil {
					m.log.Warn(m.log.WithField(ctx, "sku", item.SKU), "dropping guest cart line during merge")
				}
				warnings = append(warnings, Warning{
					SKU:     item.SKU,
					Type:    enums.CartWarningTypeItemDropped,
					Message: userFacingMessage(err),
				})
				continue
			}
			return nil, err
		}
		current = merged
	}

	if err := m.guests.Retire(ctx, guestIdentity); err != nil {
		return nil, err
	}
	return &MergeResult{Cart: current, Warnings: warnings}, nil
}

var mergeBusinessCodes = []apperrors.Code{
	apperrors.CodeProductNotFound,
	apperrors.CodeProductNotActive,
	apperrors.CodeInsufficientStock,
	apperrors.CodeInvalidSKU,
	apperrors.CodeItemNotFound,
	apperrors.CodeMaxItemsExceeded,
	apperrors.CodeMaxQuantityExceeded,
}

func isBusinessError(err error) bool {
	for _, code := range mergeBusinessCodes {
		if apperrors.HasCode(err, code) {
			return true
		}
	}
	return false
}

func userFacingMessage(err error) string {
	if appErr := apperrors.As(err); appErr != nil {
		return appErr.Message()
	}
	return "item could not be merged"
}
