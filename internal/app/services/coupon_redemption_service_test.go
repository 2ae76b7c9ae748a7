package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/infrastructures"
	"github.com/safatanc/coupon-core/internal/testutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/suite"
)

type CouponRedemptionServiceSuite struct {
	suite.Suite
	ctx        context.Context
	repo       *testutil.InMemoryCouponRepository
	coupons    *CouponService
	validation *CouponValidationService
	redemption *CouponRedemptionService
}

func TestCouponRedemptionService(t *testing.T) {
	suite.Run(t, new(CouponRedemptionServiceSuite))
}

func (s *CouponRedemptionServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = testutil.NewInMemoryCouponRepository()
	s.coupons = NewCouponService(s.repo, infrastructures.NewValidator(), NewAuditService(testutil.NewInMemoryAuditRepository()))
	s.validation = NewCouponValidationService(s.repo)
	s.redemption = NewCouponRedemptionService(s.repo, s.validation)
}

func (s *CouponRedemptionServiceSuite) create(req *models.CouponCreateRequest) *models.Coupon {
	coupon, err := s.coupons.CreateCoupon(s.ctx, req, nil)
	s.Require().NoError(err)
	return coupon
}

func (s *CouponRedemptionServiceSuite) remaining(id uuid.UUID) int {
	coupon, err := s.repo.GetByID(s.ctx, id)
	s.Require().NoError(err)
	return coupon.Remaining
}

func student(id string) models.RedemptionContext {
	return models.RedemptionContext{RequesterID: id}
}

func (s *CouponRedemptionServiceSuite) TestRedeemReturnsReceipt() {
	coupon := s.create(createRequest("WELCOME", 25, 3))

	rc := student("student-1")
	rc.OriginalPrice = lo.ToPtr(decimal.NewFromInt(200))

	receipt, err := s.redemption.RedeemCoupon(s.ctx, "welcome", rc)
	s.Require().NoError(err)
	s.Equal(coupon.ID, receipt.CouponID)
	s.Equal("WELCOME", receipt.Code)
	s.Equal(25, receipt.DiscountPercent)
	s.Equal("student-1", receipt.RequesterID)
	s.False(receipt.Replayed)
	s.True(decimal.NewFromInt(50).Equal(*receipt.DiscountAmount))
	s.True(decimal.NewFromInt(150).Equal(*receipt.FinalPrice))

	s.Equal(2, s.remaining(coupon.ID))
	s.Equal(1, s.repo.RedemptionCount(coupon.ID))
}

func (s *CouponRedemptionServiceSuite) TestCapacityInvariantUnderConcurrency() {
	const capacity, attempts = 7, 50
	coupon := s.create(createRequest("BURST", 10, capacity))

	var observedNegative atomic.Bool
	stop := make(chan struct{})
	var watcher conc.WaitGroup
	watcher.Go(func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if c, err := s.repo.GetByID(s.ctx, coupon.ID); err == nil && c.Remaining < 0 {
				observedNegative.Store(true)
			}
		}
	})

	p := pool.NewWithResults[error]()
	for i := 0; i < attempts; i++ {
		p.Go(func() error {
			_, err := s.redemption.RedeemCoupon(s.ctx, "BURST", student(uuid.NewString()))
			return err
		})
	}
	results := p.Wait()
	close(stop)
	watcher.Wait()

	s.Equal(capacity, lo.CountBy(results, func(err error) bool { return err == nil }))
	s.Equal(attempts-capacity, lo.CountBy(results, errors.IsExhausted))
	s.False(observedNegative.Load())
	s.Equal(0, s.remaining(coupon.ID))
	s.Equal(capacity, s.repo.RedemptionCount(coupon.ID))
}

func (s *CouponRedemptionServiceSuite) TestFest10Scenario() {
	coupon := s.create(createRequest("FEST10", 10, 1))

	p := pool.NewWithResults[*models.RedemptionReceipt]().WithErrors()
	for i := 0; i < 2; i++ {
		p.Go(func() (*models.RedemptionReceipt, error) {
			return s.redemption.RedeemCoupon(s.ctx, "FEST10", student(uuid.NewString()))
		})
	}
	receipts, err := p.Wait()

	// conc drops results of failed tasks unless configured otherwise.
	s.Require().Len(receipts, 1)
	s.Equal(10, receipts[0].DiscountPercent)
	s.True(errors.IsExhausted(err), "got %v", err)

	_, err = s.validation.ValidateCoupon(s.ctx, "FEST10", models.RedemptionContext{})
	s.True(errors.IsExhausted(err))
	s.Equal(0, s.remaining(coupon.ID))
}

func (s *CouponRedemptionServiceSuite) TestScopeEnforcement() {
	course := s.create(&models.CouponCreateRequest{
		Code:            "COURSE",
		DiscountPercent: lo.ToPtr(20),
		Capacity:        5,
		CourseID:        lo.ToPtr("C1"),
	})
	bundle := s.create(&models.CouponCreateRequest{
		Code:            "BUNDLE",
		DiscountPercent: lo.ToPtr(20),
		Capacity:        5,
		BundleID:        lo.ToPtr("B1"),
	})

	rc := student("student-1")
	rc.CourseID = lo.ToPtr("C2")
	_, err := s.redemption.RedeemCoupon(s.ctx, "COURSE", rc)
	s.True(errors.IsScopeMismatch(err))

	_, err = s.redemption.RedeemCoupon(s.ctx, "COURSE", student("student-1"))
	s.True(errors.IsScopeMismatch(err))

	rc.CourseID = lo.ToPtr("C1")
	_, err = s.redemption.RedeemCoupon(s.ctx, "BUNDLE", rc)
	s.True(errors.IsScopeMismatch(err))

	s.Equal(5, s.remaining(course.ID))
	s.Equal(5, s.remaining(bundle.ID))

	_, err = s.redemption.RedeemCoupon(s.ctx, "COURSE", rc)
	s.NoError(err)
	s.Equal(4, s.remaining(course.ID))
}

func (s *CouponRedemptionServiceSuite) TestValidationIsReadOnly() {
	coupon := s.create(createRequest("LOOK", 15, 2))

	rc := models.RedemptionContext{OriginalPrice: lo.ToPtr(decimal.RequireFromString("499.99"))}
	for i := 0; i < 10; i++ {
		validated, err := s.validation.ValidateCoupon(s.ctx, "look", rc)
		s.Require().NoError(err)
		s.True(validated.Valid)
		s.True(decimal.RequireFromString("75").Equal(*validated.DiscountAmount))
		s.True(decimal.RequireFromString("424.99").Equal(*validated.FinalPrice))
	}

	s.Equal(2, s.remaining(coupon.ID))
}

func (s *CouponRedemptionServiceSuite) TestUnknownCode() {
	_, err := s.validation.ValidateCoupon(s.ctx, "MISSING", models.RedemptionContext{})
	s.True(errors.IsNotFound(err))

	_, err = s.validation.ValidateCoupon(s.ctx, "   ", models.RedemptionContext{})
	s.True(errors.IsNotFound(err))

	_, err = s.redemption.RedeemCoupon(s.ctx, "MISSING", student("student-1"))
	s.True(errors.IsNotFound(err))
}

func (s *CouponRedemptionServiceSuite) TestRedeemRequiresRequester() {
	s.create(createRequest("ANON", 10, 1))

	_, err := s.redemption.RedeemCoupon(s.ctx, "ANON", models.RedemptionContext{})
	s.True(errors.IsKind(err, errors.KindUnauthorized))
}

func (s *CouponRedemptionServiceSuite) TestDeletionRace() {
	coupon := s.create(createRequest("RACE", 10, 5))

	s.repo.BeforeRedeem = func(id uuid.UUID) {
		s.Require().NoError(s.repo.Delete(s.ctx, id))
	}

	receipt, err := s.redemption.RedeemCoupon(s.ctx, "RACE", student("student-1"))
	s.Nil(receipt)
	s.True(errors.IsConflict(err) || errors.IsNotFound(err), "got %v", err)
	s.Equal(0, s.repo.RedemptionCount(coupon.ID))
}

func (s *CouponRedemptionServiceSuite) TestConcurrentDeleteNeverLeaksReceipt() {
	coupon := s.create(createRequest("MIXED", 10, 100))

	p := pool.NewWithResults[*models.RedemptionReceipt]().WithErrors()
	for i := 0; i < 30; i++ {
		p.Go(func() (*models.RedemptionReceipt, error) {
			return s.redemption.RedeemCoupon(s.ctx, "MIXED", student(uuid.NewString()))
		})
	}
	p.Go(func() (*models.RedemptionReceipt, error) {
		return nil, s.coupons.DeleteCoupon(s.ctx, coupon.ID.String(), nil)
	})
	receipts, _ := p.Wait()

	issued := lo.Filter(receipts, func(r *models.RedemptionReceipt, _ int) bool { return r != nil })
	// Every receipt has a matching committed redemption row.
	s.Equal(len(issued), s.repo.RedemptionCount(coupon.ID))
}

func (s *CouponRedemptionServiceSuite) TestIdempotentRetry() {
	coupon := s.create(createRequest("RETRY", 10, 1))

	rc := student("student-1")
	rc.IdempotencyKey = "order-77"

	first, err := s.redemption.RedeemCoupon(s.ctx, "RETRY", rc)
	s.Require().NoError(err)
	s.False(first.Replayed)

	// The first call took the only slot; the retry must still be answered.
	second, err := s.redemption.RedeemCoupon(s.ctx, "RETRY", rc)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.RedemptionID, second.RedemptionID)
	s.Equal(0, s.remaining(coupon.ID))
	s.Equal(1, s.repo.RedemptionCount(coupon.ID))

	other := student("student-2")
	other.IdempotencyKey = "order-77"
	_, err = s.redemption.RedeemCoupon(s.ctx, "RETRY", other)
	s.True(errors.IsExhausted(err))
}

func (s *CouponRedemptionServiceSuite) TestIdempotencyKeyReusedForOtherCoupon() {
	s.create(createRequest("FIRST", 10, 5))
	s.create(createRequest("SECOND", 10, 5))

	rc := student("student-1")
	rc.IdempotencyKey = "order-1"

	_, err := s.redemption.RedeemCoupon(s.ctx, "FIRST", rc)
	s.Require().NoError(err)

	_, err = s.redemption.RedeemCoupon(s.ctx, "SECOND", rc)
	s.True(errors.IsConflict(err))
}

func (s *CouponRedemptionServiceSuite) TestStoreUnavailablePropagates() {
	s.create(createRequest("DOWN", 10, 5))
	s.repo.SetUnavailable(true)

	_, err := s.redemption.RedeemCoupon(s.ctx, "DOWN", student("student-1"))
	s.True(errors.IsStoreUnavailable(err))
	s.ErrorIs(err, testutil.ErrStoreDown)

	_, err = s.validation.ValidateCoupon(s.ctx, "DOWN", models.RedemptionContext{})
	s.True(errors.IsStoreUnavailable(err))
}
