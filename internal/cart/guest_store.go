package cart

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/redis"
)

// guestStore keeps anonymous carts as JSON blobs in Redis, one key per
// session, with a TTL that slides on every read and write. A missing key is
// an empty cart, never an error.
type guestStore struct {
	client *redis.Client
	ttl    time.Duration
}

// guestBlob is the serialized shape of a guest cart. Aggregates are stored
// alongside the items so reads do not recompute them.
type guestBlob struct {
	Items      []LineItem `json:"items"`
	TotalItems int        `json:"totalItems"`
	TotalPrice string     `json:"totalPrice"`
}

// NewGuestStore builds the Redis-backed guest cart repository.
func NewGuestStore(client *redis.Client, ttl time.Duration) (Repository, error) {
	if client == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "redis client is required")
	}
	if ttl <= 0 {
		return nil, apperrors.New(apperrors.CodeInternal, "guest cart ttl must be positive")
	}
	return &guestStore{client: client, ttl: ttl}, nil
}

func (s *guestStore) Get(ctx context.Context, identity Identity) (*Cart, error) {
	view, found, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	if found {
		// Activity extends the session's cart lifetime.
		if _, err := s.client.Expire(ctx, s.key(identity), s.ttl); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDependency, err, "refreshing guest cart ttl")
		}
	}
	return view, nil
}

func (s *guestStore) Peek(ctx context.Context, identity Identity) (*Cart, error) {
	view, found, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return view, nil
}

func (s *guestStore) InsertItem(ctx context.Context, identity Identity, item LineItem) (*Cart, error) {
	return s.mutate(ctx, identity, func(view *Cart) error {
		view.Items = append(view.Items, item)
		return nil
	})
}

func (s *guestStore) UpdateItemQuantity(ctx context.Context, identity Identity, sku string, quantity int) (*Cart, error) {
	return s.mutate(ctx, identity, func(view *Cart) error {
		line := view.FindItem(sku)
		if line == nil {
			return apperrors.New(apperrors.CodeItemNotFound, "item is not in the cart")
		}
		line.Quantity = quantity
		return nil
	})
}

func (s *guestStore) RemoveItem(ctx context.Context, identity Identity, sku string) (*Cart, error) {
	return s.mutate(ctx, identity, func(view *Cart) error {
		view.Items = withoutSKUs(view.Items, []string{sku})
		return nil
	})
}

func (s *guestStore) ReplaceItems(ctx context.Context, identity Identity, items []LineItem) (*Cart, error) {
	return s.mutate(ctx, identity, func(view *Cart) error {
		view.Items = items
		return nil
	})
}

func (s *guestStore) Clear(ctx context.Context, identity Identity) (*Cart, error) {
	return s.ReplaceItems(ctx, identity, nil)
}

func (s *guestStore) ApplyDrift(ctx context.Context, identity Identity, removeSKUs []string, updates []LineItem) (*Cart, error) {
	return s.mutate(ctx, identity, func(view *Cart) error {
		view.Items = withoutSKUs(view.Items, removeSKUs)
		for _, update := range updates {
			line := view.FindItem(update.SKU)
			if line == nil {
				continue
			}
			quantity := line.Quantity
			*line = update
			line.Quantity = quantity
		}
		return nil
	})
}

func (s *guestStore) Retire(ctx context.Context, identity Identity) error {
	if err := s.client.Del(ctx, s.key(identity)); err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "deleting guest cart")
	}
	return nil
}

func (s *guestStore) mutate(ctx context.Context, identity Identity, fn func(view *Cart) error) (*Cart, error) {
	view, _, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := fn(view); err != nil {
		return nil, err
	}
	view.Recalculate()
	if err := s.save(ctx, identity, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *guestStore) load(ctx context.Context, identity Identity) (*Cart, bool, error) {
	raw, err := s.client.Get(ctx, s.key(identity))
	if err != nil {
		if redis.IsNil(err) {
			return &Cart{Identity: identity, Items: []LineItem{}}, false, nil
		}
		return nil, false, apperrors.Wrap(apperrors.CodeDependency, err, "loading guest cart")
	}
	var blob guestBlob
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return nil, false, apperrors.Wrap(apperrors.CodeDependency, err, "decoding guest cart")
	}
	view := &Cart{Identity: identity, Items: blob.Items}
	if view.Items == nil {
		view.Items = []LineItem{}
	}
	view.Recalculate()
	return view, true, nil
}

func (s *guestStore) save(ctx context.Context, identity Identity, view *Cart) error {
	blob := guestBlob{
		Items:      view.Items,
		TotalItems: view.TotalItems,
		TotalPrice: view.TotalPrice.String(),
	}
	payload, err := json.Marshal(blob)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "encoding guest cart")
	}
	if err := s.client.Set(ctx, s.key(identity), payload, s.ttl); err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "writing guest cart")
	}
	return nil
}

func (s *guestStore) key(identity Identity) string {
	return s.client.GuestCartKey(identity.GuestSessionID)
}

func withoutSKUs(items []LineItem, skus []string) []LineItem {
	if len(skus) == 0 {
		return items
	}
	drop := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		drop[sku] = struct{}{}
	}
	kept := items[:0]
	for _, item := range items {
		if _, gone := drop[item.SKU]; gone {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}
