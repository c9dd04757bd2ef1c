package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	apperrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/redis"
)

func newGuestStore(t *testing.T, ttl time.Duration) (Repository, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	client := redis.NewFromClient(raw)
	store, err := NewGuestStore(client, ttl)
	if err != nil {
		t.Fatalf("new guest store: %v", err)
	}
	return store, client, mr
}

func TestGuestStoreMissingSessionIsEmptyCart(t *testing.T) {
	store, _, _ := newGuestStore(t, time.Hour)
	ctx := context.Background()
	identity := GuestIdentity("sess-empty")

	view, err := store.Get(ctx, identity)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !view.IsEmpty() || view.TotalItems != 0 {
		t.Fatalf("expected empty cart, got %+v", view)
	}

	peeked, err := store.Peek(ctx, identity)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if peeked != nil {
		t.Fatalf("expected nil on peek of absent cart, got %+v", peeked)
	}
}

func TestGuestStoreMutationsPersistBlob(t *testing.T) {
	store, client, mr := newGuestStore(t, time.Hour)
	ctx := context.Background()
	identity := GuestIdentity("sess-1")

	view, err := store.InsertItem(ctx, identity, testLineItem("SKU-A", 2, 10))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if view.TotalItems != 2 {
		t.Fatalf("expected 2 total items, got %d", view.TotalItems)
	}
	if !mr.Exists(client.GuestCartKey("sess-1")) {
		t.Fatal("expected guest cart key written")
	}

	view, err = store.UpdateItemQuantity(ctx, identity, "SKU-A", 5)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if item := view.FindItem("SKU-A"); item == nil || item.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %+v", item)
	}

	_, err = store.UpdateItemQuantity(ctx, identity, "SKU-MISSING", 1)
	if !apperrors.HasCode(err, apperrors.CodeItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}

	reloaded, err := store.Get(ctx, identity)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.TotalItems != 5 {
		t.Fatalf("expected blob round trip, got %d items", reloaded.TotalItems)
	}
	if want := decimal.NewFromInt(50); !reloaded.TotalPrice.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, reloaded.TotalPrice)
	}
}

func TestGuestStoreTTLSlidesOnAccess(t *testing.T) {
	store, client, mr := newGuestStore(t, time.Hour)
	ctx := context.Background()
	identity := GuestIdentity("sess-ttl")
	key := client.GuestCartKey("sess-ttl")

	if _, err := store.InsertItem(ctx, identity, testLineItem("SKU-A", 1, 10)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	mr.FastForward(30 * time.Minute)
	if ttl := mr.TTL(key); ttl > 31*time.Minute {
		t.Fatalf("expected ttl to have decayed, got %s", ttl)
	}

	if _, err := store.Get(ctx, identity); err != nil {
		t.Fatalf("get: %v", err)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("expected ttl reset to 1h on read, got %s", ttl)
	}
}

func TestGuestStoreApplyDriftAndRetire(t *testing.T) {
	store, client, mr := newGuestStore(t, time.Hour)
	ctx := context.Background()
	identity := GuestIdentity("sess-drift")

	if _, err := store.InsertItem(ctx, identity, testLineItem("SKU-STALE", 1, 10)); err != nil {
		t.Fatalf("insert stale: %v", err)
	}
	kept := testLineItem("SKU-KEPT", 3, 10)
	if _, err := store.InsertItem(ctx, identity, kept); err != nil {
		t.Fatalf("insert kept: %v", err)
	}

	refreshed := kept
	refreshed.Price = decimal.NewFromFloat(7)

	view, err := store.ApplyDrift(ctx, identity, []string{"SKU-STALE"}, []LineItem{refreshed})
	if err != nil {
		t.Fatalf("apply drift: %v", err)
	}
	if view.FindItem("SKU-STALE") != nil {
		t.Fatal("expected stale item removed")
	}
	item := view.FindItem("SKU-KEPT")
	if item == nil || !item.Price.Equal(decimal.NewFromFloat(7)) || item.Quantity != 3 {
		t.Fatalf("expected refreshed line with preserved quantity, got %+v", item)
	}

	if err := store.Retire(ctx, identity); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if mr.Exists(client.GuestCartKey("sess-drift")) {
		t.Fatal("expected guest cart key deleted")
	}

	// retiring an absent cart is not an error
	if err := store.Retire(ctx, identity); err != nil {
		t.Fatalf("retire twice: %v", err)
	}
}
