package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasrioja/storefront-backend/internal/catalog"
	"github.com/lucasrioja/storefront-backend/pkg/enums"
)

// ValidationResult partitions a cart's lines against fresh catalog snapshots.
// Remove and Update describe the drift corrections the caller must apply
// before returning the cart; a clean cart produces neither.
type ValidationResult struct {
	Statuses []LineStatus
	Warnings []Warning
	Remove   []string
	Update   []LineItem
}

// Dirty reports whether the cart needs any write to reconcile.
func (r ValidationResult) Dirty() bool {
	return len(r.Remove) > 0 || len(r.Update) > 0
}

// Validate classifies every line against the snapshot map. Precedence per
// line: product gone, product inactive, catalog SKU changed, snapshot drift,
// then valid. Items stay priced at their stored snapshot until drift is
// detected, at which point the stored snapshot is rewritten.
func Validate(items []LineItem, snapshots map[uuid.UUID]catalog.Snapshot) ValidationResult {
	result := ValidationResult{Statuses: make([]LineStatus, 0, len(items))}
	for _, item := range items {
		snapshot, found := snapshots[item.ProductID]
		switch {
		case !found:
			result.mark(item.SKU, enums.LineItemStatusRemoved)
			result.drop(item.SKU, "product no longer exists")
		case !snapshot.IsActive:
			result.mark(item.SKU, enums.LineItemStatusProductUnavailable)
			result.drop(item.SKU, "product is no longer available")
		case snapshot.SKU != item.SKU:
			result.mark(item.SKU, enums.LineItemStatusRemoved)
			result.drop(item.SKU, "product sku has changed")
		case snapshotDrifted(item, snapshot):
			result.mark(item.SKU, enums.LineItemStatusPriceChanged)
			result.Update = append(result.Update, newLineItem(snapshot, item.Quantity))
			result.Warnings = append(result.Warnings, Warning{
				SKU:     item.SKU,
				Type:    enums.CartWarningTypePriceChanged,
				Message: "product details changed since the item was added",
			})
		default:
			result.mark(item.SKU, enums.LineItemStatusValid)
		}
	}
	return result
}

func (r *ValidationResult) mark(sku string, status enums.LineItemStatus) {
	r.Statuses = append(r.Statuses, LineStatus{SKU: sku, Status: status})
}

func (r *ValidationResult) drop(sku, message string) {
	r.Remove = append(r.Remove, sku)
	r.Warnings = append(r.Warnings, Warning{
		SKU:     sku,
		Type:    enums.CartWarningTypeItemRemoved,
		Message: message,
	})
}

func snapshotDrifted(item LineItem, snapshot catalog.Snapshot) bool {
	if !item.Price.Equal(snapshot.Price) {
		return true
	}
	if !decimalPtrEqual(item.DiscountedPrice, snapshot.DiscountedPrice) {
		return true
	}
	if item.ProductName != snapshot.Name {
		return true
	}
	return !item.ProductImages.Equal(snapshot.Images)
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
