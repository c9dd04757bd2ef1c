package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasrioja/storefront-backend/pkg/types"
)

// CartItem is one SKU inside a user cart, carrying the price/name/image
// snapshot captured at add-time. SKU is unique within a cart.
type CartItem struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID          uuid.UUID          `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_sku"`
	ProductID       uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	SKU             string             `gorm:"column:sku;not null;uniqueIndex:idx_cart_items_cart_sku"`
	Quantity        int                `gorm:"column:quantity;not null"`
	Price           decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountedPrice *decimal.Decimal   `gorm:"column:discounted_price;type:numeric(12,2)"`
	ProductName     string             `gorm:"column:product_name;not null"`
	ProductImages   types.StringList   `gorm:"column:product_images;type:jsonb;serializer:json"`
	Attributes      types.AttributeMap `gorm:"column:attributes;type:jsonb;serializer:json"`
	IsVariant       bool               `gorm:"column:is_variant;not null;default:false"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is the price a line is charged at: the discounted price
// when present, the list price otherwise.
func (i CartItem) EffectivePrice() decimal.Decimal {
	if i.DiscountedPrice != nil {
		return *i.DiscountedPrice
	}
	return i.Price
}

// LineTotal is the effective price multiplied by quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}
