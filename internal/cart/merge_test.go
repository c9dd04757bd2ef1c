package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/lucasrioja/storefront-backend/pkg/config"
	"github.com/lucasrioja/storefront-backend/pkg/enums"
	apperrors "github.com/lucasrioja/storefront-backend/pkg/errors"
)

type mergeFixture struct {
	merger  Merger
	svc     Service
	users   *memoryRepo
	guests  *memoryRepo
	catalog *stubCatalog
}

func newMergeFixture(t *testing.T, limits config.CartConfig) *mergeFixture {
	t.Helper()
	fix := newServiceFixture(t, limits)
	merger, err := NewMerger(MergerParams{
		Service:    fix.svc,
		UserStore:  fix.users,
		GuestStore: fix.guests,
		Limits:     limits,
	})
	if err != nil {
		t.Fatalf("new merger: %v", err)
	}
	return &mergeFixture{merger: merger, svc: fix.svc, users: fix.users, guests: fix.guests, catalog: fix.catalog}
}

func TestMergeSumsQuantitiesAndRetiresGuestCart(t *testing.T) {
	t.Parallel()

	fix := newMergeFixture(t, config.CartConfig{MaxItems: 50, MaxQtyPerItem: 100})
	ctx := context.Background()
	userID := uuid.New()
	guestID := "sess-merge"

	product := fix.catalog.add(activeSnapshot("SKU-A", 200, 10))
	if _, err := fix.svc.Add(ctx, UserIdentity(userID), product.ProductID, "SKU-A", 2); err != nil {
		t.Fatalf("seed user cart: %v", err)
	}
	if _, err := fix.svc.Add(ctx, GuestIdentity(guestID), product.ProductID, "SKU-A", 3); err != nil {
		t.Fatalf("seed guest cart: %v", err)
	}

	result, err := fix.merger.Merge(ctx, userID, guestID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	item := result.Cart.FindItem("SKU-A")
	if item == nil || item.Quantity != 5 {
		t.Fatalf("expected one line with quantity 5, got %+v", item)
	}
	if len(result.Cart.Items) != 1 {
		t.Fatalf("expected single line after merge, got %d", len(result.Cart.Items))
	}

	remaining, err := fix.guests.Peek(ctx, GuestIdentity(guestID))
	if err != nil {
		t.Fatalf("peek guest: %v", err)
	}
	if remaining != nil {
		t.Fatal("expected guest cart retired after merge")
	}
}

func TestMergeEmptyGuestCartIsNoop(t *testing.T) {
	t.Parallel()

	fix := newMergeFixture(t, config.CartConfig{MaxItems: 50, MaxQtyPerItem: 100})
	ctx := context.Background()
	userID := uuid.New()

	product := fix.catalog.add(activeSnapshot("SKU-A", 10, 10))
	if _, err := fix.svc.Add(ctx, UserIdentity(userID), product.ProductID, "SKU-A", 2); err != nil {
		t.Fatalf("seed user cart: %v", err)
	}

	result, err := fix.merger.Merge(ctx, userID, "sess-absent")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if item := result.Cart.FindItem("SKU-A"); item == nil || item.Quantity != 2 {
		t.Fatalf("expected user cart unchanged, got %+v", result.Cart.Items)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", result.Warnings)
	}
}

func TestMergeCapsQuantityAtLimit(t *testing.T) {
	t.Parallel()

	fix := newMergeFixture(t, config.CartConfig{MaxItems: 50, MaxQtyPerItem: 10})
	ctx := context.Background()
	userID := uuid.New()
	guestID := "sess-cap"

	product := fix.catalog.add(activeSnapshot("SKU-A", 200, 10))
	if _, err := fix.svc.Add(ctx, UserIdentity(userID), product.ProductID, "SKU-A", 9); err != nil {
		t.Fatalf("seed user cart: %v", err)
	}
	if _, err := fix.svc.Add(ctx, GuestIdentity(guestID), product.ProductID, "SKU-A", 5); err != nil {
		t.Fatalf("seed guest cart: %v", err)
	}

	result, err := fix.merger.Merge(ctx, userID, guestID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if item := result.Cart.FindItem("SKU-A"); item == nil || item.Quantity != 10 {
		t.Fatalf("expected quantity capped at 10, got %+v", item)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Type != enums.CartWarningTypeQuantityCapped {
		t.Fatalf("expected quantity_capped warning, got %+v", result.Warnings)
	}
}

func TestMergeDropsLineAlreadyAtCap(t *testing.T) {
	t.Parallel()

	fix := newMergeFixture(t, config.CartConfig{MaxItems: 50, MaxQtyPerItem: 10})
	ctx := context.Background()
	userID := uuid.New()
	guestID := "sess-full"

	product := fix.catalog.add(activeSnapshot("SKU-A", 200, 10))
	if _, err := fix.svc.Add(ctx, UserIdentity(userID), product.ProductID, "SKU-A", 10); err != nil {
		t.Fatalf("seed user cart: %v", err)
	}
	if _, err := fix.svc.Add(ctx, GuestIdentity(guestID), product.ProductID, "SKU-A", 4); err != nil {
		t.Fatalf("seed guest cart: %v", err)
	}

	result, err := fix.merger.Merge(ctx, userID, guestID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if item := result.Cart.FindItem("SKU-A"); item == nil || item.Quantity != 10 {
		t.Fatalf("expected quantity unchanged at cap, got %+v", item)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Type != enums.CartWarningTypeItemDropped {
		t.Fatalf("expected item_dropped warning, got %+v", result.Warnings)
	}
}

func TestMergeDropsDeadProductsWithWarning(t *testing.T) {
	t.Parallel()

	fix := newMergeFixture(t, config.CartConfig{MaxItems: 50, MaxQtyPerItem: 100})
	ctx := context.Background()
	userID := uuid.New()
	guestID := "sess-dead"

	alive := fix.catalog.add(activeSnapshot("SKU-ALIVE", 10, 5))
	dead := fix.catalog.add(activeSnapshot("SKU-DEAD", 10, 5))
	if _, err := fix.svc.Add(ctx, GuestIdentity(guestID), alive.ProductID, "SKU-ALIVE", 1); err != nil {
		t.Fatalf("seed alive: %v", err)
	}
	if _, err := fix.svc.Add(ctx, GuestIdentity(guestID), dead.ProductID, "SKU-DEAD", 1); err != nil {
		t.Fatalf("seed dead: %v", err)
	}
	delete(fix.catalog.products, dead.ProductID)

	result, err := fix.merger.Merge(ctx, userID, guestID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if result.Cart.FindItem("SKU-ALIVE") == nil {
		t.Fatal("expected live line merged")
	}
	if result.Cart.FindItem("SKU-DEAD") != nil {
		t.Fatal("expected dead line dropped")
	}
	if len(result.Warnings) != 1 || result.Warnings[0].SKU != "SKU-DEAD" || result.Warnings[0].Type != enums.CartWarningTypeItemDropped {
		t.Fatalf("expected item_dropped warning for dead sku, got %+v", result.Warnings)
	}

	remaining, err := fix.guests.Peek(ctx, GuestIdentity(guestID))
	if err != nil {
		t.Fatalf("peek guest: %v", err)
	}
	if remaining != nil {
		t.Fatal("expected guest cart retired")
	}
}

func TestMergeInfrastructureFailureKeepsGuestCart(t *testing.T) {
	t.Parallel()

	fix := newMergeFixture(t, config.CartConfig{MaxItems: 50, MaxQtyPerItem: 100})
	ctx := context.Background()
	userID := uuid.New()
	guestID := "sess-infra"

	product := fix.catalog.add(activeSnapshot("SKU-A", 10, 5))
	if _, err := fix.svc.Add(ctx, GuestIdentity(guestID), product.ProductID, "SKU-A", 1); err != nil {
		t.Fatalf("seed guest cart: %v", err)
	}

	fix.catalog.err = apperrors.New(apperrors.CodeDependency, "catalog unreachable")

	_, err := fix.merger.Merge(ctx, userID, guestID)
	if !apperrors.HasCode(err, apperrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	fix.catalog.err = nil
	remaining, peekErr := fix.guests.Peek(ctx, GuestIdentity(guestID))
	if peekErr != nil {
		t.Fatalf("peek guest: %v", peekErr)
	}
	if remaining == nil || remaining.FindItem("SKU-A") == nil {
		t.Fatal("expected guest cart preserved for retry")
	}
}
