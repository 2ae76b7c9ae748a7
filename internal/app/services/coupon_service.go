package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/app/repositories"
	"github.com/safatanc/coupon-core/internal/infrastructures"
	"github.com/sirupsen/logrus"
)

const couponTable = "coupons"

type CouponService struct {
	repo         repositories.CouponRepository
	validator    *infrastructures.Validator
	auditService *AuditService
}

func NewCouponService(repo repositories.CouponRepository, validator *infrastructures.Validator, auditService *AuditService) *CouponService {
	return &CouponService{
		repo:         repo,
		validator:    validator,
		auditService: auditService,
	}
}

func (s *CouponService) CreateCoupon(ctx context.Context, req *models.CouponCreateRequest, createdBy *string) (*models.Coupon, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	code := models.NormalizeCouponCode(req.Code)
	if code == "" {
		return nil, errors.NewValidationError("Coupon code is required")
	}
	if utf8.RuneCountInString(code) > models.MaxCouponCodeLength {
		return nil, errors.NewValidationError("Coupon code is too long")
	}
	if req.CourseID != nil && req.BundleID != nil {
		return nil, errors.NewValidationError("A coupon can be scoped to a course or a bundle, not both")
	}

	// Check if code already exists. The unique index still decides between concurrent creators.
	_, err := s.repo.GetByCode(ctx, code)
	if err == nil {
		return nil, errors.NewConflictError("Coupon code already exists")
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	coupon := &models.Coupon{
		ID:              uuid.New(),
		Code:            code,
		DiscountPercent: *req.DiscountPercent,
		Capacity:        req.Capacity,
		Remaining:       req.Capacity,
		CourseID:        req.CourseID,
		BundleID:        req.BundleID,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"coupon_id": coupon.ID,
		"code":      coupon.Code,
		"capacity":  coupon.Capacity,
	}).Info("coupon created")

	if err := s.auditService.LogAudit(ctx, couponTable, coupon.ID, models.AuditActionCreate, nil, coupon, createdBy); err != nil {
		logrus.WithError(err).WithField("coupon_id", coupon.ID).Error("failed to write coupon audit log")
	}

	return coupon, nil
}

func (s *CouponService) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	return s.repo.List(ctx)
}

func (s *CouponService) GetCoupon(ctx context.Context, couponID string) (*models.Coupon, error) {
	id, err := uuid.Parse(couponID)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid coupon ID format")
	}

	return s.repo.GetByID(ctx, id)
}

// DeleteCoupon removes the coupon. Its redemption log is kept.
func (s *CouponService) DeleteCoupon(ctx context.Context, couponID string, deletedBy *string) error {
	id, err := uuid.Parse(couponID)
	if err != nil {
		return errors.NewBadRequestError("Invalid coupon ID format")
	}

	// Snapshot for the audit trail only
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"coupon_id": id,
		"code":      existing.Code,
		"remaining": existing.Remaining,
	}).Info("coupon deleted")

	if err := s.auditService.LogAudit(ctx, couponTable, id, models.AuditActionDelete, existing, nil, deletedBy); err != nil {
		logrus.WithError(err).WithField("coupon_id", id).Error("failed to write coupon audit log")
	}

	return nil
}

func (s *CouponService) ListRedemptions(ctx context.Context, couponID string) ([]models.CouponRedemption, error) {
	id, err := uuid.Parse(couponID)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid coupon ID format")
	}

	return s.repo.ListRedemptions(ctx, id)
}
