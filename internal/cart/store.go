package cart

import "context"

// Repository is the behavioral contract both cart backends satisfy: the
// durable relational store for user carts and the ephemeral keyed store for
// guest carts. Every mutation returns the cart with aggregates already
// recalculated, in the same logical operation as the item change.
type Repository interface {
	// Get returns the cart for the identity, creating an empty one lazily.
	Get(ctx context.Context, identity Identity) (*Cart, error)
	// Peek returns the cart without creating it; nil when absent.
	Peek(ctx context.Context, identity Identity) (*Cart, error)
	// InsertItem appends a new line. The SKU must not already be present.
	InsertItem(ctx context.Context, identity Identity, item LineItem) (*Cart, error)
	// UpdateItemQuantity rewrites the quantity of the line with the SKU.
	UpdateItemQuantity(ctx context.Context, identity Identity, sku string, quantity int) (*Cart, error)
	// RemoveItem deletes the line with the SKU if present.
	RemoveItem(ctx context.Context, identity Identity, sku string) (*Cart, error)
	// ReplaceItems swaps the entire item set.
	ReplaceItems(ctx context.Context, identity Identity, items []LineItem) (*Cart, error)
	// Clear deletes every line and zeroes the aggregates.
	Clear(ctx context.Context, identity Identity) (*Cart, error)
	// ApplyDrift removes dead lines and rewrites drifted snapshots in one
	// logical operation, then recalculates.
	ApplyDrift(ctx context.Context, identity Identity, removeSKUs []string, updates []LineItem) (*Cart, error)
	// Retire discards the cart entirely. Used to delete a guest cart after a
	// merge; absence is not an error.
	Retire(ctx context.Context, identity Identity) error
}
