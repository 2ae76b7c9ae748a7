package services

import (
	"context"

	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/app/repositories"
)

// CouponValidationService answers whether a code could be redeemed right now. It never writes.
type CouponValidationService struct {
	repo repositories.CouponRepository
}

func NewCouponValidationService(repo repositories.CouponRepository) *CouponValidationService {
	return &CouponValidationService{
		repo: repo,
	}
}

func (s *CouponValidationService) ValidateCoupon(ctx context.Context, code string, rc models.RedemptionContext) (*models.ValidatedCoupon, error) {
	coupon, err := s.resolveCoupon(ctx, code, rc)
	if err != nil {
		return nil, err
	}

	if coupon.IsExhausted() {
		return nil, errors.NewExhaustedError("Coupon has no remaining redemptions")
	}

	validated := &models.ValidatedCoupon{
		Coupon: coupon,
		Valid:  true,
	}
	if rc.OriginalPrice != nil {
		discount, final := coupon.PricePreview(*rc.OriginalPrice)
		validated.DiscountAmount = &discount
		validated.FinalPrice = &final
	}

	return validated, nil
}

// resolveCoupon finds the coupon for code and checks it applies to rc. Capacity is not checked.
func (s *CouponValidationService) resolveCoupon(ctx context.Context, code string, rc models.RedemptionContext) (*models.Coupon, error) {
	normalized := models.NormalizeCouponCode(code)
	if normalized == "" {
		return nil, errors.NewNotFoundError("Coupon not found")
	}

	coupon, err := s.repo.GetByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if !coupon.MatchesScope(rc) {
		return nil, errors.NewScopeMismatchError("Coupon is not applicable to this purchase")
	}

	return coupon, nil
}
