package cart

import "github.com/google/uuid"

// AddItemRequest adds one SKU to the cart.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	SKU       string    `json:"sku" validate:"required,max=64"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// UpdateItemRequest rewrites the quantity of an existing line. Zero removes
// the line.
type UpdateItemRequest struct {
	SKU      string `json:"sku" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

// SyncItemRequest is one entry of a bulk replace.
type SyncItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	SKU       string    `json:"sku" validate:"required,max=64"`
	Quantity  int       `json:"quantity" validate:"min=1"`
}

// SyncRequest replaces the whole cart.
type SyncRequest struct {
	Items []SyncItemRequest `json:"items" validate:"required,dive"`
}

// MergeRequest folds a guest session's cart into the caller's user cart.
type MergeRequest struct {
	GuestSessionID string `json:"guestSessionId" validate:"required,max=128"`
}
