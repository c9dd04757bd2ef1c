package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/lucasrioja/storefront-backend/internal/cart"
	"github.com/lucasrioja/storefront-backend/pkg/types"
)

// ItemDTO is one cart line on the wire.
type ItemDTO struct {
	ProductID       uuid.UUID          `json:"productId"`
	SKU             string             `json:"sku"`
	Quantity        int                `json:"quantity"`
	Price           decimal.Decimal    `json:"price"`
	DiscountedPrice *decimal.Decimal   `json:"discountedPrice,omitempty"`
	LineTotal       decimal.Decimal    `json:"lineTotal"`
	ProductName     string             `json:"productName"`
	ProductImages   types.StringList   `json:"productImages,omitempty"`
	Attributes      types.AttributeMap `json:"attributes,omitempty"`
	IsVariant       bool               `json:"isVariant"`
}

// CartDTO is the reconciled cart plus anything the operation surfaced.
type CartDTO struct {
	Items        []ItemDTO            `json:"items"`
	TotalItems   int                  `json:"totalItems"`
	TotalPrice   decimal.Decimal      `json:"totalPrice"`
	ItemStatuses []cartsvc.LineStatus `json:"itemStatuses,omitempty"`
	Warnings     []cartsvc.Warning    `json:"warnings,omitempty"`
	Errors       []cartsvc.SyncError  `json:"errors,omitempty"`
}

func newCartDTO(record *cartsvc.Cart) CartDTO {
	items := make([]ItemDTO, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, ItemDTO{
			ProductID:       item.ProductID,
			SKU:             item.SKU,
			Quantity:        item.Quantity,
			Price:           item.Price,
			DiscountedPrice: item.DiscountedPrice,
			LineTotal:       item.LineTotal(),
			ProductName:     item.ProductName,
			ProductImages:   item.ProductImages,
			Attributes:      item.Attributes,
			IsVariant:       item.IsVariant,
		})
	}
	return CartDTO{
		Items:      items,
		TotalItems: record.TotalItems,
		TotalPrice: record.TotalPrice,
	}
}

func newViewDTO(view *cartsvc.View) CartDTO {
	dto := newCartDTO(view.Cart)
	dto.ItemStatuses = view.Statuses
	dto.Warnings = view.Warnings
	return dto
}
