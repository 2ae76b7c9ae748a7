package testutil

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/samber/lo"
)

// ErrStoreDown is the cause attached to StoreUnavailableError while the fake is marked unavailable.
var ErrStoreDown = stderrors.New("in-memory store is down")

// InMemoryCouponRepository implements repositories.CouponRepository. The mutex stands in for
// the row lock or script atomicity of a real store.
type InMemoryCouponRepository struct {
	mu          sync.Mutex
	coupons     map[uuid.UUID]*models.Coupon
	order       []uuid.UUID
	redemptions map[uuid.UUID][]models.CouponRedemption
	unavailable bool

	// BeforeRedeem, when set, runs before the atomic decrement. Tests use it to interleave
	// a delete between validation and redemption.
	BeforeRedeem func(couponID uuid.UUID)
}

func NewInMemoryCouponRepository() *InMemoryCouponRepository {
	return &InMemoryCouponRepository{
		coupons:     make(map[uuid.UUID]*models.Coupon),
		redemptions: make(map[uuid.UUID][]models.CouponRedemption),
	}
}

// SetUnavailable makes every subsequent call fail with StoreUnavailableError.
func (r *InMemoryCouponRepository) SetUnavailable(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable = down
}

func (r *InMemoryCouponRepository) down() error {
	if r.unavailable {
		return errors.NewStoreUnavailableError(ErrStoreDown, "Store unavailable")
	}
	return nil
}

func copyCoupon(c *models.Coupon) *models.Coupon {
	copied := *c
	return &copied
}

func (r *InMemoryCouponRepository) Create(_ context.Context, coupon *models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.down(); err != nil {
		return err
	}

	for _, existing := range r.coupons {
		if existing.Code == coupon.Code {
			return errors.NewConflictError("Coupon code already exists")
		}
	}

	r.coupons[coupon.ID] = copyCoupon(coupon)
	r.order = append(r.order, coupon.ID)
	return nil
}

func (r *InMemoryCouponRepository) List(_ context.Context) ([]models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.down(); err != nil {
		return nil, err
	}

	coupons := make([]models.Coupon, 0, len(r.order))
	for _, id := range r.order {
		if coupon, ok := r.coupons[id]; ok {
			coupons = append(coupons, *coupon)
		}
	}
	return coupons, nil
}

func (r *InMemoryCouponRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.down(); err != nil {
		return nil, err
	}

	coupon, ok := r.coupons[id]
	if !ok {
		return nil, errors.NewNotFoundError("Coupon not found")
	}
	return copyCoupon(coupon), nil
}

func (r *InMemoryCouponRepository) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.down(); err != nil {
		return nil, err
	}

	coupon, ok := lo.Find(lo.Values(r.coupons), func(c *models.Coupon) bool {
		return c.Code == code
	})
	if !ok {
		return nil, errors.NewNotFoundError("Coupon not found")
	}
	return copyCoupon(coupon), nil
}

func (r *InMemoryCouponRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.down(); err != nil {
		return err
	}

	if _, ok := r.coupons[id]; !ok {
		return errors.NewNotFoundError("Coupon not found")
	}
	delete(r.coupons, id)
	r.order = lo.Without(r.order, id)
	return nil
}

func (r *InMemoryCouponRepository) Redeem(_ context.Context, params models.RedeemParams) (*models.RedeemResult, error) {
	if r.BeforeRedeem != nil {
		r.BeforeRedeem(params.CouponID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.down(); err != nil {
		return nil, err
	}

	redemption := params.Redemption
	if redemption.IdempotencyKey != nil {
		if prior, ok := r.findByKey(redemption.RequesterID, *redemption.IdempotencyKey); ok {
			if prior.CouponID != params.CouponID {
				return nil, errors.NewConflictError("Idempotency key was already used for another coupon")
			}
			return &models.RedeemResult{Redemption: &prior, Replayed: true}, nil
		}
	}

	coupon, ok := r.coupons[params.CouponID]
	if !ok {
		return nil, errors.NewConflictError("Coupon was removed during redemption")
	}
	if coupon.Remaining <= 0 {
		return nil, errors.NewExhaustedError("Coupon has no remaining redemptions")
	}

	coupon.Remaining--
	r.redemptions[params.CouponID] = append(r.redemptions[params.CouponID], *redemption)
	return &models.RedeemResult{Redemption: redemption}, nil
}

func (r *InMemoryCouponRepository) findByKey(requesterID, key string) (models.CouponRedemption, bool) {
	for _, list := range r.redemptions {
		for _, redemption := range list {
			if redemption.RequesterID == requesterID && redemption.IdempotencyKey != nil && *redemption.IdempotencyKey == key {
				return redemption, true
			}
		}
	}
	return models.CouponRedemption{}, false
}

func (r *InMemoryCouponRepository) ListRedemptions(_ context.Context, couponID uuid.UUID) ([]models.CouponRedemption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.down(); err != nil {
		return nil, err
	}

	redemptions := append([]models.CouponRedemption{}, r.redemptions[couponID]...)
	sort.SliceStable(redemptions, func(i, j int) bool {
		return redemptions[i].RedeemedAt.Before(redemptions[j].RedeemedAt)
	})
	return redemptions, nil
}

// RedemptionCount is the number of redemptions logged for a coupon, including after deletion.
func (r *InMemoryCouponRepository) RedemptionCount(couponID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.redemptions[couponID])
}

// InMemoryAuditRepository implements repositories.AuditRepository.
type InMemoryAuditRepository struct {
	mu      sync.Mutex
	entries []models.AuditLog
	Err     error
}

func NewInMemoryAuditRepository() *InMemoryAuditRepository {
	return &InMemoryAuditRepository{}
}

func (r *InMemoryAuditRepository) Create(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *InMemoryAuditRepository) Entries() []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditLog{}, r.entries...)
}
