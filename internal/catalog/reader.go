package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lucasrioja/storefront-backend/internal/repo"
	"github.com/lucasrioja/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/types"
)

// Snapshot is the read model the cart reconciles against. It is a copy of
// the catalog row at lookup time; the catalog can drift out from under any
// stored cart line at any moment.
type Snapshot struct {
	ProductID       uuid.UUID
	SKU             string
	IsActive        bool
	Stock           int
	Price           decimal.Decimal
	DiscountedPrice *decimal.Decimal
	Name            string
	Images          types.StringList
	Attributes      types.AttributeMap
	IsVariant       bool
}

// Reader exposes batch and single product lookups. Implementations must not
// produce side effects; store-level failures surface as dependency errors.
type Reader interface {
	// GetByIDs returns snapshots for the ids that exist plus the subset that
	// does not. One round trip regardless of input size.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, []uuid.UUID, error)
	// GetByID returns the snapshot for one product, or nil when it does not
	// exist. Active state is reported, not filtered.
	GetByID(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	// GetBySKU resolves a product through its catalog-unique SKU.
	GetBySKU(ctx context.Context, sku string) (*Snapshot, error)
}

type gormReader struct {
	repo.Base
}

// NewReader builds a catalog reader backed by the provided GORM connection.
func NewReader(db *gorm.DB) Reader {
	return &gormReader{Base: repo.NewBase(db)}
}

func (r *gormReader) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, []uuid.UUID, error) {
	found := make(map[uuid.UUID]Snapshot, len(ids))
	if len(ids) == 0 {
		return found, nil, nil
	}

	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var products []models.Product
	if err := r.DB(ctx).Where("id IN ?", unique).Find(&products).Error; err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	for _, product := range products {
		found[product.ID] = toSnapshot(product)
	}

	var notFound []uuid.UUID
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			notFound = append(notFound, id)
		}
	}
	return found, notFound, nil
}

func (r *gormReader) GetByID(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	var product models.Product
	if err := r.DB(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	snapshot := toSnapshot(product)
	return &snapshot, nil
}

func (r *gormReader) GetBySKU(ctx context.Context, sku string) (*Snapshot, error) {
	var product models.Product
	if err := r.DB(ctx).Where("sku = ?", sku).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product by sku")
	}
	snapshot := toSnapshot(product)
	return &snapshot, nil
}

func toSnapshot(product models.Product) Snapshot {
	var discounted *decimal.Decimal
	if product.DiscountedPrice != nil {
		value := *product.DiscountedPrice
		discounted = &value
	}
	return Snapshot{
		ProductID:       product.ID,
		SKU:             product.SKU,
		IsActive:        product.IsActive,
		Stock:           product.Stock,
		Price:           product.Price,
		DiscountedPrice: discounted,
		Name:            product.Name,
		Images:          product.Images.Clone(),
		Attributes:      product.Attributes.Clone(),
		IsVariant:       product.VariantGroupID != nil,
	}
}
