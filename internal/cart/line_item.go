package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasrioja/storefront-backend/internal/catalog"
	"github.com/lucasrioja/storefront-backend/pkg/enums"
	"github.com/lucasrioja/storefront-backend/pkg/types"
)

// LineItem is one SKU inside a cart, independent of which backend stores it.
// Price, name, and image fields are the snapshot captured at add-time.
type LineItem struct {
	ProductID       uuid.UUID          `json:"productId"`
	SKU             string             `json:"sku"`
	Quantity        int                `json:"quantity"`
	Price           decimal.Decimal    `json:"price"`
	DiscountedPrice *decimal.Decimal   `json:"discountedPrice,omitempty"`
	ProductName     string             `json:"productName"`
	ProductImages   types.StringList   `json:"productImages"`
	Attributes      types.AttributeMap `json:"attributes"`
	IsVariant       bool               `json:"isVariant"`
}

// EffectivePrice is the discounted price when present, the list price
// otherwise.
func (i LineItem) EffectivePrice() decimal.Decimal {
	if i.DiscountedPrice != nil {
		return *i.DiscountedPrice
	}
	return i.Price
}

// LineTotal is the effective price multiplied by quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the backend-agnostic view every operation returns. Aggregates are
// always a pure function of Items.
type Cart struct {
	Identity   Identity        `json:"-"`
	Items      []LineItem      `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// FindItem returns the line with the given SKU, or nil.
func (c *Cart) FindItem(sku string) *LineItem {
	if c == nil {
		return nil
	}
	for idx := range c.Items {
		if c.Items[idx].SKU == sku {
			return &c.Items[idx]
		}
	}
	return nil
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Recalculate rewrites the aggregates from the current item set. Totals are
// rounded to currency precision.
func (c *Cart) Recalculate() {
	totalItems := 0
	totalPrice := decimal.Zero
	for _, item := range c.Items {
		totalItems += item.Quantity
		totalPrice = totalPrice.Add(item.LineTotal())
	}
	c.TotalItems = totalItems
	c.TotalPrice = totalPrice.Round(2)
}

// Warning is surfaced alongside a cart when an operation adjusted or dropped
// something without failing the request.
type Warning struct {
	SKU     string                `json:"sku"`
	Type    enums.CartWarningType `json:"type"`
	Message string                `json:"message"`
}

// LineStatus reports the validation outcome for one line on a read.
type LineStatus struct {
	SKU    string               `json:"sku"`
	Status enums.LineItemStatus `json:"status"`
}

func newLineItem(snapshot catalog.Snapshot, quantity int) LineItem {
	var discounted *decimal.Decimal
	if snapshot.DiscountedPrice != nil {
		value := *snapshot.DiscountedPrice
		discounted = &value
	}
	return LineItem{
		ProductID:       snapshot.ProductID,
		SKU:             snapshot.SKU,
		Quantity:        quantity,
		Price:           snapshot.Price,
		DiscountedPrice: discounted,
		ProductName:     snapshot.Name,
		ProductImages:   snapshot.Images.Clone(),
		Attributes:      snapshot.Attributes.Clone(),
		IsVariant:       snapshot.IsVariant,
	}
}
