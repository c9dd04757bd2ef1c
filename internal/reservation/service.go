package reservation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasrioja/storefront-backend/internal/catalog"
	"github.com/lucasrioja/storefront-backend/pkg/config"
	"github.com/lucasrioja/storefront-backend/pkg/db"
	"github.com/lucasrioja/storefront-backend/pkg/db/models"
	apperrors "github.com/lucasrioja/storefront-backend/pkg/errors"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
	"github.com/lucasrioja/storefront-backend/pkg/metrics"
	"github.com/lucasrioja/storefront-backend/pkg/redis"
)

// reserveScript is the atomic check-and-lock step. It prunes expired locks,
// sums the live ones, and writes the new lock only if the requested quantity
// still fits under the available stock. Running server-side makes the whole
// read-aggregate-write indivisible; two concurrent callers cannot both pass
// the check before either writes.
//
// KEYS[1] reservation hash for the sku
// ARGV[1] now (unix seconds)
// ARGV[2] requested quantity
// ARGV[3] available stock
// ARGV[4] lock id
// ARGV[5] lock expiry (unix seconds)
// ARGV[6] key ttl (seconds)
//
// Returns the remaining quantity after the new lock, or -1 when it does not
// fit.
const reserveScript = `
local now = tonumber(ARGV[1])
local qty = tonumber(ARGV[2])
local stock = tonumber(ARGV[3])
local locked = 0
local fields = redis.call('HGETALL', KEYS[1])
for i = 1, #fields, 2 do
  local sep = string.find(fields[i+1], ':', 1, true)
  local amount = tonumber(string.sub(fields[i+1], 1, sep-1))
  local expires = tonumber(string.sub(fields[i+1], sep+1))
  if expires <= now then
    redis.call('HDEL', KEYS[1], fields[i])
  else
    locked = locked + amount
  end
end
local remaining = stock - locked
if remaining < qty then
  return -1
end
redis.call('HSET', KEYS[1], ARGV[4], ARGV[2] .. ':' .. ARGV[5])
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[6]))
return remaining - qty
`

// Reservation is one granted stock lock for an in-flight checkout attempt.
type Reservation struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service hands out short-lived per-SKU stock locks at checkout time.
type Service interface {
	// Reserve attempts to lock quantity units of the sku. On success it
	// returns the reservation and the quantity still available afterwards.
	Reserve(ctx context.Context, sku string, quantity int) (*Reservation, int, error)
	// Release drops a lock. Releasing an expired or unknown lock is a no-op.
	Release(ctx context.Context, sku, reservationID string) error
	// Commit converts a lock into a real stock decrement and deletes it.
	Commit(ctx context.Context, sku, reservationID string) error
}

// ServiceParams groups dependencies for the reservation service.
type ServiceParams struct {
	Redis   *redis.Client
	DB      *db.Client
	Catalog catalog.Reader
	Config  config.ReservationConfig
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
}

type service struct {
	redis   *redis.Client
	db      *db.Client
	catalog catalog.Reader
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.CartMetrics
	now     func() time.Time
}

// NewService builds the reservation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Redis == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "redis client is required")
	}
	if params.DB == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "db client is required")
	}
	if params.Catalog == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "catalog reader is required")
	}
	if params.Config.TTL <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "reservation ttl must be positive")
	}
	return &service{
		redis:   params.Redis,
		db:      params.DB,
		catalog: params.Catalog,
		ttl:     params.Config.TTL,
		log:     params.Logger,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

func (s *service) Reserve(ctx context.Context, sku string, quantity int) (*Reservation, int, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, 0, apperrors.New(apperrors.CodeValidation, "sku is required")
	}
	if quantity < 1 {
		return nil, 0, apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	}

	snapshot, err := s.catalog.GetBySKU(ctx, sku)
	if err != nil {
		s.metrics.IncReservation("error")
		return nil, 0, err
	}
	if snapshot == nil {
		return nil, 0, apperrors.New(apperrors.CodeProductNotFound, "product does not exist")
	}
	if !snapshot.IsActive {
		return nil, 0, apperrors.New(apperrors.CodeProductNotActive, "product is not available")
	}

	now := s.now()
	lockID := uuid.NewString()
	expiresAt := now.Add(s.ttl)

	result, err := s.redis.Eval(ctx, reserveScript,
		[]string{s.redis.ReservationKey(sku)},
		now.Unix(), quantity, snapshot.Stock, lockID, expiresAt.Unix(), int(s.ttl.Seconds()),
	)
	if err != nil {
		// Fail closed: an unreachable lock store must never be read as
		// "no conflict".
		s.metrics.IncReservation("error")
		return nil, 0, apperrors.Wrap(apperrors.CodeDependency, err, "reserving stock")
	}

	remaining, ok := result.(int64)
	if !ok {
		s.metrics.IncReservation("error")
		return nil, 0, apperrors.New(apperrors.CodeDependency, "unexpected reservation script result")
	}
	if remaining < 0 {
		s.metrics.IncReservation("rejected")
		return nil, 0, apperrors.New(apperrors.CodeInsufficientStock, "not enough stock available").
			WithDetails(map[string]any{"sku": sku})
	}

	s.metrics.IncReservation("granted")
	return &Reservation{
		ID:        lockID,
		SKU:       sku,
		Quantity:  quantity,
		ExpiresAt: expiresAt,
	}, int(remaining), nil
}

func (s *service) Release(ctx context.Context, sku, reservationID string) error {
	if sku == "" || reservationID == "" {
		return apperrors.New(apperrors.CodeValidation, "sku and reservation id are required")
	}
	if err := s.redis.HDel(ctx, s.redis.ReservationKey(sku), reservationID); err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "releasing stock reservation")
	}
	s.metrics.IncReservation("released")
	return nil
}

// Commit decrements real stock by the locked quantity, then deletes the
// lock. The decrement is conditional on stock coverage, so an oversold row
// fails loudly instead of going negative. A crash between the decrement and
// the lock deletion leaves the lock to expire by TTL, which only makes the
// window conservative.
func (s *service) Commit(ctx context.Context, sku, reservationID string) error {
	if sku == "" || reservationID == "" {
		return apperrors.New(apperrors.CodeValidation, "sku and reservation id are required")
	}
	key := s.redis.ReservationKey(sku)

	raw, err := s.redis.HGet(ctx, key, reservationID)
	if err != nil {
		if redis.IsNil(err) {
			return apperrors.New(apperrors.CodeNotFound, "reservation expired or already settled")
		}
		return apperrors.Wrap(apperrors.CodeDependency, err, "loading stock reservation")
	}
	quantity, lockExpiry, err := parseLockValue(raw)
	if err != nil {
		return err
	}
	if lockExpiry.Before(s.now()) {
		// Expired but not yet pruned. Treat like an expired lock.
		_ = s.redis.HDel(ctx, key, reservationID)
		return apperrors.New(apperrors.CodeNotFound, "reservation expired or already settled")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.Product{}).
			Where("sku = ? AND stock >= ?", sku, quantity).
			Update("stock", gorm.Expr("stock - ?", quantity))
		if result.Error != nil {
			return apperrors.Wrap(apperrors.CodeDependency, result.Error, "decrementing stock")
		}
		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.CodeInsufficientStock, "stock no longer covers the reservation").
				WithDetails(map[string]any{"sku": sku})
		}
		return nil
	})
	if err != nil {
		s.metrics.IncReservation("commit_failed")
		return err
	}

	if err := s.redis.HDel(ctx, key, reservationID); err != nil {
		// Stock is already decremented; the dangling lock expires by TTL.
		if s.log != nil {
			s.log.Error(s.log.WithField(ctx, "sku", sku), "failed to delete committed reservation lock", err)
		}
	}
	s.metrics.IncReservation("committed")
	return nil
}

func parseLockValue(raw string) (int, time.Time, error) {
	sep := strings.IndexByte(raw, ':')
	if sep <= 0 {
		return 0, time.Time{}, apperrors.New(apperrors.CodeInternal, "malformed reservation lock")
	}
	quantity, err := strconv.Atoi(raw[:sep])
	if err != nil {
		return 0, time.Time{}, apperrors.Wrap(apperrors.CodeInternal, err, "malformed reservation quantity")
	}
	expiry, err := strconv.ParseInt(raw[sep+1:], 10, 64)
	if err != nil {
		return 0, time.Time{}, apperrors.Wrap(apperrors.CodeInternal, err, "malformed reservation expiry")
	}
	return quantity, time.Unix(expiry, 0), nil
}
