package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/infrastructures"
	"gorm.io/gorm"
)

type PostgresCouponRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewPostgresCouponRepository(db *gorm.DB, config *infrastructures.AppConfig) *PostgresCouponRepository {
	return &PostgresCouponRepository{
		db:      db,
		timeout: config.STORE_TIMEOUT,
	}
}

func (r *PostgresCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.NewConflictError("Coupon code already exists")
		}
		return storeError(err, "Failed to create coupon")
	}

	return nil
}

func (r *PostgresCouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var coupons []models.Coupon
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&coupons).Error; err != nil {
		return nil, storeError(err, "Failed to list coupons")
	}

	return coupons, nil
}

func (r *PostgresCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("Coupon not found")
		}
		return nil, storeError(err, "Failed to get coupon")
	}

	return &coupon, nil
}

func (r *PostgresCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("Coupon not found")
		}
		return nil, storeError(err, "Failed to get coupon")
	}

	return &coupon, nil
}

func (r *PostgresCouponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Coupon{})
	if result.Error != nil {
		return storeError(result.Error, "Failed to delete coupon")
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("Coupon not found")
	}

	return nil
}

func (r *PostgresCouponRepository) Redeem(ctx context.Context, params models.RedeemParams) (*models.RedeemResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	redemption := params.Redemption
	var result *models.RedeemResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if redemption.IdempotencyKey != nil {
			prior, err := findRedemptionByKey(tx, redemption.RequesterID, *redemption.IdempotencyKey)
			if err != nil {
				return err
			}
			if prior != nil {
				replay, err := replayRedemption(prior, params.CouponID)
				if err != nil {
					return err
				}
				result = replay
				return nil
			}
		}

		update := tx.Model(&models.Coupon{}).
			Where("id = ? AND remaining > ?", params.CouponID, 0).
			Update("remaining", gorm.Expr("remaining - ?", 1))
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Coupon{}).Where("id = ?", params.CouponID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return errors.NewConflictError("Coupon was removed during redemption")
			}
			return errors.NewExhaustedError("Coupon has no remaining redemptions")
		}

		if err := tx.Create(redemption).Error; err != nil {
			return err
		}

		result = &models.RedeemResult{Redemption: redemption}
		return nil
	})
	if err != nil {
		// A concurrent request with the same idempotency key committed first.
		if stderrors.Is(err, gorm.ErrDuplicatedKey) && redemption.IdempotencyKey != nil {
			prior, lookupErr := findRedemptionByKey(r.db.WithContext(ctx), redemption.RequesterID, *redemption.IdempotencyKey)
			if lookupErr == nil && prior != nil {
				return replayRedemption(prior, params.CouponID)
			}
		}
		return nil, storeError(err, "Failed to redeem coupon")
	}

	return result, nil
}

func (r *PostgresCouponRepository) ListRedemptions(ctx context.Context, couponID uuid.UUID) ([]models.CouponRedemption, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var redemptions []models.CouponRedemption
	err := r.db.WithContext(ctx).
		Where("coupon_id = ?", couponID).
		Order("redeemed_at ASC").
		Find(&redemptions).Error
	if err != nil {
		return nil, storeError(err, "Failed to list coupon redemptions")
	}

	return redemptions, nil
}

func findRedemptionByKey(tx *gorm.DB, requesterID, key string) (*models.CouponRedemption, error) {
	var prior models.CouponRedemption
	err := tx.Where("requester_id = ? AND idempotency_key = ?", requesterID, key).First(&prior).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prior, nil
}

func replayRedemption(prior *models.CouponRedemption, couponID uuid.UUID) (*models.RedeemResult, error) {
	if prior.CouponID != couponID {
		return nil, errors.NewConflictError("Idempotency key was already used for another coupon")
	}
	return &models.RedeemResult{Redemption: prior, Replayed: true}, nil
}

type PostgresAuditRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewPostgresAuditRepository(db *gorm.DB, config *infrastructures.AppConfig) *PostgresAuditRepository {
	return &PostgresAuditRepository{
		db:      db,
		timeout: config.STORE_TIMEOUT,
	}
}

func (r *PostgresAuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return storeError(err, "Failed to create audit log")
	}
	return nil
}
