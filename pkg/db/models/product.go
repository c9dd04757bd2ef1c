package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasrioja/storefront-backend/pkg/types"
)

// Product is the catalog listing the cart snapshots from. Owned by the
// catalog service; this subsystem only reads it.
type Product struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU             string             `gorm:"column:sku;not null;uniqueIndex"`
	Name            string             `gorm:"column:name;not null"`
	IsActive        bool               `gorm:"column:is_active;not null;default:true"`
	Stock           int                `gorm:"column:stock;not null;default:0"`
	Price           decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountedPrice *decimal.Decimal   `gorm:"column:discounted_price;type:numeric(12,2)"`
	Images          types.StringList   `gorm:"column:images;type:jsonb;serializer:json"`
	Attributes      types.AttributeMap `gorm:"column:attributes;type:jsonb;serializer:json"`
	VariantGroupID  *uuid.UUID         `gorm:"column:variant_group_id;type:uuid;index"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
