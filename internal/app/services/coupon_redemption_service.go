package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/app/repositories"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// CouponRedemptionService redeems coupons. It holds no locks: the store's conditional
// decrement is the only thing standing between concurrent callers and the capacity.
type CouponRedemptionService struct {
	repo              repositories.CouponRepository
	validationService *CouponValidationService
}

func NewCouponRedemptionService(repo repositories.CouponRepository, validationService *CouponValidationService) *CouponRedemptionService {
	return &CouponRedemptionService{
		repo:              repo,
		validationService: validationService,
	}
}

func (s *CouponRedemptionService) RedeemCoupon(ctx context.Context, code string, rc models.RedemptionContext) (*models.RedemptionReceipt, error) {
	if rc.RequesterID == "" {
		return nil, errors.NewUnauthorizedError("Requester is required to redeem a coupon")
	}

	coupon, err := s.validationService.resolveCoupon(ctx, code, rc)
	if err != nil {
		return nil, err
	}
	// A keyed retry of a redemption that took the last slot must still reach the store to be replayed.
	if coupon.IsExhausted() && rc.IdempotencyKey == "" {
		return nil, errors.NewExhaustedError("Coupon has no remaining redemptions")
	}

	redemption := &models.CouponRedemption{
		ID:              uuid.New(),
		CouponID:        coupon.ID,
		CouponCode:      coupon.Code,
		RequesterID:     rc.RequesterID,
		DiscountPercent: coupon.DiscountPercent,
		CourseID:        rc.CourseID,
		BundleID:        rc.BundleID,
		RedeemedAt:      time.Now().UTC(),
	}
	if rc.IdempotencyKey != "" {
		redemption.IdempotencyKey = lo.ToPtr(rc.IdempotencyKey)
	}

	log := logrus.WithFields(logrus.Fields{
		"coupon_id":    coupon.ID,
		"code":         coupon.Code,
		"requester_id": rc.RequesterID,
	})

	result, err := s.repo.Redeem(ctx, models.RedeemParams{
		CouponID:   coupon.ID,
		Redemption: redemption,
	})
	if err != nil {
		switch errors.KindOf(err) {
		case errors.KindExhausted, errors.KindConflict:
			log.WithError(err).Warn("coupon redemption rejected")
		case errors.KindStoreUnavailable:
			log.WithError(err).Error("coupon redemption failed")
		}
		return nil, err
	}

	if result.Replayed {
		log.WithField("redemption_id", result.Redemption.ID).Info("coupon redemption replayed")
	} else {
		log.WithField("redemption_id", result.Redemption.ID).Info("coupon redeemed")
	}

	return newRedemptionReceipt(result, rc), nil
}

func newRedemptionReceipt(result *models.RedeemResult, rc models.RedemptionContext) *models.RedemptionReceipt {
	redemption := result.Redemption
	receipt := &models.RedemptionReceipt{
		RedemptionID:    redemption.ID,
		CouponID:        redemption.CouponID,
		Code:            redemption.CouponCode,
		DiscountPercent: redemption.DiscountPercent,
		RequesterID:     redemption.RequesterID,
		RedeemedAt:      redemption.RedeemedAt,
		Replayed:        result.Replayed,
	}

	if rc.OriginalPrice != nil {
		// Priced with the percentage captured at redemption time
		snapshot := models.Coupon{DiscountPercent: redemption.DiscountPercent}
		discount, final := snapshot.PricePreview(*rc.OriginalPrice)
		receipt.DiscountAmount = &discount
		receipt.FinalPrice = &final
	}

	return receipt
}
