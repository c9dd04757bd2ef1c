package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasrioja/storefront-backend/internal/repo"
	"github.com/lucasrioja/storefront-backend/pkg/db"
	"github.com/lucasrioja/storefront-backend/pkg/db/models"
	apperrors "github.com/lucasrioja/storefront-backend/pkg/errors"
)

// userStore persists user carts in the relational database. Every mutation
// runs inside a transaction that rewrites the item rows and the cart
// aggregates together.
type userStore struct {
	repo.Base
	client *db.Client
}

// NewUserStore builds the relational cart repository.
func NewUserStore(client *db.Client) (Repository, error) {
	if client == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "db client is required")
	}
	return &userStore{Base: repo.NewBase(client.DB()), client: client}, nil
}

func (s *userStore) Get(ctx context.Context, identity Identity) (*Cart, error) {
	record, err := s.findOrCreate(ctx, s.DB(ctx), identity.UserID)
	if err != nil {
		return nil, err
	}
	return fromModel(identity, record), nil
}

func (s *userStore) Peek(ctx context.Context, identity Identity) (*Cart, error) {
	record, err := s.find(ctx, s.DB(ctx), identity.UserID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return fromModel(identity, record), nil
}

func (s *userStore) InsertItem(ctx context.Context, identity Identity, item LineItem) (*Cart, error) {
	return s.mutate(ctx, identity, func(tx *gorm.DB, record *models.Cart) error {
		row := toItemModel(record.ID, item)
		if err := tx.Create(&row).Error; err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "inserting cart item")
		}
		return nil
	})
}

func (s *userStore) UpdateItemQuantity(ctx context.Context, identity Identity, sku string, quantity int) (*Cart, error) {
	return s.mutate(ctx, identity, func(tx *gorm.DB, record *models.Cart) error {
		result := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND sku = ?", record.ID, sku).
			Update("quantity", quantity)
		if result.Error != nil {
			return apperrors.Wrap(apperrors.CodeDependency, result.Error, "updating cart item quantity")
		}
		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.CodeItemNotFound, "item is not in the cart")
		}
		return nil
	})
}

func (s *userStore) RemoveItem(ctx context.Context, identity Identity, sku string) (*Cart, error) {
	return s.mutate(ctx, identity, func(tx *gorm.DB, record *models.Cart) error {
		err := tx.Where("cart_id = ? AND sku = ?", record.ID, sku).
			Delete(&models.CartItem{}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "removing cart item")
		}
		return nil
	})
}

func (s *userStore) ReplaceItems(ctx context.Context, identity Identity, items []LineItem) (*Cart, error) {
	return s.mutate(ctx, identity, func(tx *gorm.DB, record *models.Cart) error {
		if err := tx.Where("cart_id = ?", record.ID).Delete(&models.CartItem{}).Error; err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "clearing cart items")
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.CartItem, 0, len(items))
		for _, item := range items {
			rows = append(rows, toItemModel(record.ID, item))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "writing cart items")
		}
		return nil
	})
}

func (s *userStore) Clear(ctx context.Context, identity Identity) (*Cart, error) {
	return s.ReplaceItems(ctx, identity, nil)
}

func (s *userStore) ApplyDrift(ctx context.Context, identity Identity, removeSKUs []string, updates []LineItem) (*Cart, error) {
	return s.mutate(ctx, identity, func(tx *gorm.DB, record *models.Cart) error {
		if len(removeSKUs) > 0 {
			err := tx.Where("cart_id = ? AND sku IN ?", record.ID, removeSKUs).
				Delete(&models.CartItem{}).Error
			if err != nil {
				return apperrors.Wrap(apperrors.CodeDependency, err, "removing stale cart items")
			}
		}
		for _, item := range updates {
			err := tx.Model(&models.CartItem{}).
				Where("cart_id = ? AND sku = ?", record.ID, item.SKU).
				Select("price", "discounted_price", "product_name", "product_images", "attributes", "is_variant").
				Updates(models.CartItem{
					Price:           item.Price,
					DiscountedPrice: item.DiscountedPrice,
					ProductName:     item.ProductName,
					ProductImages:   item.ProductImages,
					Attributes:      item.Attributes,
					IsVariant:       item.IsVariant,
				}).Error
			if err != nil {
				return apperrors.Wrap(apperrors.CodeDependency, err, "refreshing cart item snapshot")
			}
		}
		return nil
	})
}

func (s *userStore) Retire(ctx context.Context, identity Identity) error {
	err := s.DB(ctx).Where("user_id = ?", identity.UserID).Delete(&models.Cart{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "deleting cart")
	}
	return nil
}

// mutate loads the cart row, applies fn, then rewrites the aggregates from
// the surviving item rows, all inside one transaction.
func (s *userStore) mutate(ctx context.Context, identity Identity, fn func(tx *gorm.DB, record *models.Cart) error) (*Cart, error) {
	var out *Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		record, err := s.findOrCreate(ctx, tx, identity.UserID)
		if err != nil {
			return err
		}
		if err := fn(tx, record); err != nil {
			return err
		}
		reloaded, err := s.reload(tx, record.ID)
		if err != nil {
			return err
		}
		view := fromModel(identity, reloaded)
		err = tx.Model(&models.Cart{}).
			Where("id = ?", record.ID).
			Updates(map[string]any{
				"total_items": view.TotalItems,
				"total_price": view.TotalPrice,
			}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating cart totals")
		}
		out = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *userStore) find(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	err := tx.Preload("Items").Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading cart")
	}
	return &record, nil
}

func (s *userStore) findOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	record, err := s.find(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}
	fresh := models.Cart{ID: uuid.New(), UserID: userID}
	if err := tx.Create(&fresh).Error; err != nil {
		// Concurrent first write: another request created the row between
		// our read and insert. Re-read instead of failing.
		if db.IsUniqueViolation(err, "") {
			record, rerr := s.find(ctx, tx, userID)
			if rerr != nil {
				return nil, rerr
			}
			if record != nil {
				return record, nil
			}
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "creating cart")
	}
	return &fresh, nil
}

func (s *userStore) reload(tx *gorm.DB, cartID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	err := tx.Preload("Items").Where("id = ?", cartID).First(&record).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "reloading cart")
	}
	return &record, nil
}

func fromModel(identity Identity, record *models.Cart) *Cart {
	items := make([]LineItem, 0, len(record.Items))
	for _, row := range record.Items {
		items = append(items, LineItem{
			ProductID:       row.ProductID,
			SKU:             row.SKU,
			Quantity:        row.Quantity,
			Price:           row.Price,
			DiscountedPrice: row.DiscountedPrice,
			ProductName:     row.ProductName,
			ProductImages:   row.ProductImages,
			Attributes:      row.Attributes,
			IsVariant:       row.IsVariant,
		})
	}
	view := &Cart{Identity: identity, Items: items}
	view.Recalculate()
	return view
}

func toItemModel(cartID uuid.UUID, item LineItem) models.CartItem {
	return models.CartItem{
		ID:              uuid.New(),
		CartID:          cartID,
		ProductID:       item.ProductID,
		SKU:             item.SKU,
		Quantity:        item.Quantity,
		Price:           item.Price,
		DiscountedPrice: item.DiscountedPrice,
		ProductName:     item.ProductName,
		ProductImages:   item.ProductImages,
		Attributes:      item.Attributes,
		IsVariant:       item.IsVariant,
	}
}
