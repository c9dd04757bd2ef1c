package cart

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucasrioja/storefront-backend/internal/catalog"
	"github.com/lucasrioja/storefront-backend/pkg/config"
	apperrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
	"github.com/lucasrioja/storefront-backend/pkg/metrics"
)

// View is the response shape every read-path operation produces: the
// reconciled cart plus the per-line statuses and warnings gathered while
// reconciling it.
type View struct {
	Cart     *Cart        `json:"cart"`
	Statuses []LineStatus `json:"itemStatuses,omitempty"`
	Warnings []Warning    `json:"warnings,omitempty"`
}

// SyncEntry is one requested line in a bulk replace.
type SyncEntry struct {
	ProductID uuid.UUID `json:"productId"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
}

// SyncError reports why one sync entry was skipped.
type SyncError struct {
	SKU     string         `json:"sku"`
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// SyncResult carries the replaced cart plus per-entry failures.
type SyncResult struct {
	Cart   *Cart       `json:"cart"`
	Errors []SyncError `json:"errors,omitempty"`
}

// Service exposes cart mutations over both backends. Every operation ends
// with aggregates recalculated in the same logical write as the item change.
type Service interface {
	Get(ctx context.Context, identity Identity) (*View, error)
	Add(ctx context.Context, identity Identity, productID uuid.UUID, sku string, quantity int) (*Cart, error)
	Update(ctx context.Context, identity Identity, sku string, quantity int) (*Cart, error)
	Remove(ctx context.Context, identity Identity, sku string) (*Cart, error)
	Clear(ctx context.Context, identity Identity) (*Cart, error)
	Sync(ctx context.Context, identity Identity, entries []SyncEntry) (*SyncResult, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	UserStore  Repository
	GuestStore Repository
	Catalog    catalog.Reader
	Limits     config.CartConfig
	Logger     *logger.Logger
	Metrics    *metrics.CartMetrics
}

type service struct {
	users   Repository
	guests  Repository
	catalog catalog.Reader
	limits  config.CartConfig
	log     *logger.Logger
	metrics *metrics.CartMetrics
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserStore == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user cart store is required")
	}
	if params.GuestStore == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "guest cart store is required")
	}
	if params.Catalog == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "catalog reader is required")
	}
	if params.Limits.MaxItems <= 0 || params.Limits.MaxQtyPerItem <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "cart limits must be positive")
	}
	return &service{
		users:   params.UserStore,
		guests:  params.GuestStore,
		catalog: params.Catalog,
		limits:  params.Limits,
		log:     params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Get loads the cart, reconciles it against fresh catalog snapshots, and
// applies any drift corrections before returning.
func (s *service) Get(ctx context.Context, identity Identity) (*View, error) {
	defer s.observe("get", time.Now())
	view, err := s.reconcile(ctx, identity)
	s.count("get", err)
	return view, err
}

// Add inserts a new line or sums the quantity into an existing one.
func (s *service) Add(ctx context.Context, identity Identity, productID uuid.UUID, sku string, quantity int) (*Cart, error) {
	defer s.observe("add", time.Now())
	out, err := s.add(ctx, identity, productID, sku, quantity)
	s.count("add", err)
	return out, err
}

func (s *service) add(ctx context.Context, identity Identity, productID uuid.UUID, sku string, quantity int) (*Cart, error) {
	sku = strings.TrimSpace(sku)
	if err := s.checkQuantity(quantity); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "product id is required")
	}
	if sku == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "sku is required")
	}

	repo := s.repoFor(identity)
	current, err := repo.Get(ctx, identity)
	if err != nil {
		return nil, err
	}

	if existing := current.FindItem(sku); existing != nil {
		summed := existing.Quantity + quantity
		if summed > s.limits.MaxQtyPerItem {
			return nil, apperrors.New(apperrors.CodeMaxQuantityExceeded, "item quantity limit reached").
				WithDetails(map[string]any{"sku": sku, "max": s.limits.MaxQtyPerItem})
		}
		return s.setQuantity(ctx, identity, existing.ProductID, sku, summed)
	}

	if len(current.Items) >= s.limits.MaxItems {
		return nil, apperrors.New(apperrors.CodeMaxItemsExceeded, "cart item limit reached").
			WithDetails(map[string]any{"max": s.limits.MaxItems})
	}

	snapshot, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperrors.New(apperrors.CodeProductNotFound, "product does not exist")
	}
	if !snapshot.IsActive {
		return nil, apperrors.New(apperrors.CodeProductNotActive, "product is not available")
	}
	if snapshot.SKU != sku {
		return nil, apperrors.New(apperrors.CodeInvalidSKU, "sku does not match the product").
			WithDetails(map[string]any{"sku": sku})
	}
	if snapshot.Stock < quantity {
		return nil, apperrors.New(apperrors.CodeInsufficientStock, "not enough stock available").
			WithDetails(map[string]any{"sku": sku, "available": snapshot.Stock})
	}

	return repo.InsertItem(ctx, identity, newLineItem(*snapshot, quantity))
}

// Update rewrites a line's quantity. Zero removes the line. A line whose
// product has disappeared or gone inactive is removed instead of erroring.
func (s *service) Update(ctx context.Context, identity Identity, sku string, quantity int) (*Cart, error) {
	defer s.observe("update", time.Now())
	out, err := s.update(ctx, identity, sku, quantity)
	s.count("update", err)
	return out, err
}

func (s *service) update(ctx context.Context, identity Identity, sku string, quantity int) (*Cart, error) {
	if quantity == 0 {
		return s.remove(ctx, identity, sku)
	}
	if err := s.checkQuantity(quantity); err != nil {
		return nil, err
	}

	repo := s.repoFor(identity)
	current, err := repo.Get(ctx, identity)
	if err != nil {
		return nil, err
	}
	item := current.FindItem(sku)
	if item == nil {
		return nil, apperrors.New(apperrors.CodeItemNotFound, "item is not in the cart").
			WithDetails(map[string]any{"sku": sku})
	}
	return s.setQuantity(ctx, identity, item.ProductID, sku, quantity)
}

// setQuantity re-checks the product before writing the new quantity. A dead
// product heals the cart by dropping the line rather than failing the call.
func (s *service) setQuantity(ctx context.Context, identity Identity, productID uuid.UUID, sku string, quantity int) (*Cart, error) {
	repo := s.repoFor(identity)
	snapshot, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil || !snapshot.IsActive {
		if s.log != nil {
			s.log.Info(s.log.WithField(ctx, "sku", sku), "dropping cart line for unavailable product")
		}
		return repo.RemoveItem(ctx, identity, sku)
	}
	if snapshot.Stock < quantity {
		return nil, apperrors.New(apperrors.CodeInsufficientStock, "not enough stock available").
			WithDetails(map[string]any{"sku": sku, "available": snapshot.Stock})
	}
	return repo.UpdateItemQuantity(ctx, identity, sku, quantity)
}

// Remove deletes a line, failing when the SKU is absent.
func (s *service) Remove(ctx context.Context, identity Identity, sku string) (*Cart, error) {
	defer s.observe("remove", time.Now())
	out, err := s.remove(ctx, identity, sku)
	s.count("remove", err)
	return out, err
}

func (s *service) remove(ctx context.Context, identity Identity, sku string) (*Cart, error) {
	repo := s.repoFor(identity)
	current, err := repo.Get(ctx, identity)
	if err != nil {
		return nil, err
	}
	if current.FindItem(sku) == nil {
		return nil, apperrors.New(apperrors.CodeItemNotFound, "item is not in the cart").
			WithDetails(map[string]any{"sku": sku})
	}
	return repo.RemoveItem(ctx, identity, sku)
}

// Clear empties the cart. Clearing an already empty cart succeeds.
func (s *service) Clear(ctx context.Context, identity Identity) (*Cart, error) {
	defer s.observe("clear", time.Now())
	out, err := s.repoFor(identity).Clear(ctx, identity)
	s.count("clear", err)
	return out, err
}

// Sync replaces the cart wholesale. Entries that fail validation are skipped
// and reported; only an over-limit surviving set aborts the whole request.
func (s *service) Sync(ctx context.Context, identity Identity, entries []SyncEntry) (*SyncResult, error) {
	defer s.observe("sync", time.Now())
	out, err := s.sync(ctx, identity, entries)
	s.count("sync", err)
	return out, err
}

func (s *service) sync(ctx context.Context, identity Identity, entries []SyncEntry) (*SyncResult, error) {
	deduped := dedupeBySKU(entries)

	ids := make([]uuid.UUID, 0, len(deduped))
	for _, entry := range deduped {
		ids = append(ids, entry.ProductID)
	}
	snapshots, _, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]LineItem, 0, len(deduped))
	syncErrors := make([]SyncError, 0)
	for _, entry := range deduped {
		snapshot, found := snapshots[entry.ProductID]
		switch {
		case !found:
			syncErrors = append(syncErrors, SyncError{
				SKU: entry.SKU, Code: apperrors.CodeProductNotFound,
				Message: "product does not exist",
			})
			continue
		case !snapshot.IsActive:
			syncErrors = append(syncErrors, SyncError{
				SKU: entry.SKU, Code: apperrors.CodeProductNotActive,
				Message: "product is not available",
			})
			continue
		case snapshot.SKU != entry.SKU:
			syncErrors = append(syncErrors, SyncError{
				SKU: entry.SKU, Code: apperrors.CodeInvalidSKU,
				Message: "sku does not match the product",
			})
			continue
		}

		quantity := entry.Quantity
		if quantity < 1 {
			quantity = 1
		}
		if quantity > s.limits.MaxQtyPerItem {
			quantity = s.limits.MaxQtyPerItem
		}
		if snapshot.Stock < quantity {
			syncErrors = append(syncErrors, SyncError{
				SKU: entry.SKU, Code: apperrors.CodeInsufficientStock,
				Message: "not enough stock available",
			})
			continue
		}
		items = append(items, newLineItem(snapshot, quantity))
	}

	if len(items) > s.limits.MaxItems {
		return nil, apperrors.New(apperrors.CodeMaxItemsExceeded, "cart item limit reached").
			WithDetails(map[string]any{"max": s.limits.MaxItems, "requested": len(items)})
	}

	replaced, err := s.repoFor(identity).ReplaceItems(ctx, identity, items)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Cart: replaced, Errors: syncErrors}, nil
}

// reconcile runs the validator over the stored cart and applies drift in a
// single store write. A clean cart performs no writes.
func (s *service) reconcile(ctx context.Context, identity Identity) (*View, error) {
	repo := s.repoFor(identity)
	current, err := repo.Get(ctx, identity)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return &View{Cart: current}, nil
	}

	ids := make([]uuid.UUID, 0, len(current.Items))
	for _, item := range current.Items {
		ids = append(ids, item.ProductID)
	}
	snapshots, _, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := Validate(current.Items, snapshots)
	if !result.Dirty() {
		return &View{Cart: current, Statuses: result.Statuses, Warnings: result.Warnings}, nil
	}

	healed, err := repo.ApplyDrift(ctx, identity, result.Remove, result.Update)
	if err != nil {
		return nil, err
	}
	return &View{Cart: healed, Statuses: result.Statuses, Warnings: result.Warnings}, nil
}

func (s *service) repoFor(identity Identity) Repository {
	if identity.IsGuest() {
		return s.guests
	}
	return s.users
}

func (s *service) checkQuantity(quantity int) error {
	if quantity < 1 {
		return apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	}
	if quantity > s.limits.MaxQtyPerItem {
		return apperrors.New(apperrors.CodeMaxQuantityExceeded, "item quantity limit reached").
			WithDetails(map[string]any{"max": s.limits.MaxQtyPerItem})
	}
	return nil
}

func (s *service) observe(op string, started time.Time) {
	s.metrics.ObserveOp(op, time.Since(started))
}

func (s *service) count(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.IncOpResult(op, result)
}

func dedupeBySKU(entries []SyncEntry) []SyncEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]SyncEntry, 0, len(entries))
	for _, entry := range entries {
		sku := strings.TrimSpace(entry.SKU)
		if sku == "" {
			continue
		}
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		entry.SKU = sku
		out = append(out, entry)
	}
	return out
}
