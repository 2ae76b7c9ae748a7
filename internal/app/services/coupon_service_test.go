package services

import (
	"context"
	"strings"
	"testing"

	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/infrastructures"
	"github.com/safatanc/coupon-core/internal/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type CouponServiceSuite struct {
	suite.Suite
	ctx     context.Context
	repo    *testutil.InMemoryCouponRepository
	audits  *testutil.InMemoryAuditRepository
	service *CouponService
}

func TestCouponService(t *testing.T) {
	suite.Run(t, new(CouponServiceSuite))
}

func (s *CouponServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = testutil.NewInMemoryCouponRepository()
	s.audits = testutil.NewInMemoryAuditRepository()
	s.service = NewCouponService(s.repo, infrastructures.NewValidator(), NewAuditService(s.audits))
}

func createRequest(code string, discount, capacity int) *models.CouponCreateRequest {
	return &models.CouponCreateRequest{
		Code:            code,
		DiscountPercent: lo.ToPtr(discount),
		Capacity:        capacity,
	}
}

func (s *CouponServiceSuite) TestCreateCoupon() {
	coupon, err := s.service.CreateCoupon(s.ctx, createRequest("  fest10 ", 10, 5), lo.ToPtr("admin-1"))
	s.Require().NoError(err)

	s.Equal("FEST10", coupon.Code)
	s.Equal(10, coupon.DiscountPercent)
	s.Equal(5, coupon.Capacity)
	s.Equal(5, coupon.Remaining)
	s.Equal("admin-1", *coupon.CreatedBy)

	entries := s.audits.Entries()
	s.Require().Len(entries, 1)
	s.Equal(models.AuditActionCreate, entries[0].Action)
	s.Equal(coupon.ID, entries[0].RecordID)
}

func (s *CouponServiceSuite) TestCreateCouponValidation() {
	tests := []struct {
		name string
		req  *models.CouponCreateRequest
	}{
		{"empty code", createRequest("", 10, 1)},
		{"whitespace code", createRequest("   ", 10, 1)},
		{"code too long", createRequest(string(make([]byte, 65)), 10, 1)},
		{"negative discount", createRequest("A", -1, 1)},
		{"discount above 100", createRequest("A", 101, 1)},
		{"zero capacity", createRequest("A", 10, 0)},
		{"missing discount", &models.CouponCreateRequest{Code: "A", Capacity: 1}},
		{"course and bundle", &models.CouponCreateRequest{
			Code:            "A",
			DiscountPercent: lo.ToPtr(10),
			Capacity:        1,
			CourseID:        lo.ToPtr("C1"),
			BundleID:        lo.ToPtr("B1"),
		}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateCoupon(s.ctx, tt.req, nil)
			s.True(errors.IsValidation(err), "got %v", err)
		})
	}

	coupons, err := s.service.ListCoupons(s.ctx)
	s.Require().NoError(err)
	s.Empty(coupons)
}

func (s *CouponServiceSuite) TestCreateCouponNonASCIICodeCountsCharacters() {
	code := strings.Repeat("é", models.MaxCouponCodeLength)

	coupon, err := s.service.CreateCoupon(s.ctx, createRequest(code, 10, 1), nil)
	s.Require().NoError(err)
	s.Equal(strings.Repeat("É", models.MaxCouponCodeLength), coupon.Code)

	_, err = s.service.CreateCoupon(s.ctx, createRequest(code+"é", 10, 1), nil)
	s.True(errors.IsValidation(err), "got %v", err)
}

func (s *CouponServiceSuite) TestCreateCouponBoundaryDiscounts() {
	free, err := s.service.CreateCoupon(s.ctx, createRequest("FREE", 100, 1), nil)
	s.Require().NoError(err)
	s.Equal(100, free.DiscountPercent)

	zero, err := s.service.CreateCoupon(s.ctx, createRequest("ZERO", 0, 1), nil)
	s.Require().NoError(err)
	s.Equal(0, zero.DiscountPercent)
}

func (s *CouponServiceSuite) TestDuplicateCodeAnyCase() {
	_, err := s.service.CreateCoupon(s.ctx, createRequest("FEST10", 10, 1), nil)
	s.Require().NoError(err)

	for _, code := range []string{"FEST10", "fest10", " Fest10 "} {
		_, err := s.service.CreateCoupon(s.ctx, createRequest(code, 20, 3), nil)
		s.True(errors.IsConflict(err), "code %q: got %v", code, err)
	}

	coupons, err := s.service.ListCoupons(s.ctx)
	s.Require().NoError(err)
	s.Len(coupons, 1)
}

func (s *CouponServiceSuite) TestListCouponsInCreationOrder() {
	for _, code := range []string{"A", "B", "C"} {
		_, err := s.service.CreateCoupon(s.ctx, createRequest(code, 10, 1), nil)
		s.Require().NoError(err)
	}

	coupons, err := s.service.ListCoupons(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"A", "B", "C"}, lo.Map(coupons, func(c models.Coupon, _ int) string { return c.Code }))
}

func (s *CouponServiceSuite) TestGetCoupon() {
	created, err := s.service.CreateCoupon(s.ctx, createRequest("GET", 10, 1), nil)
	s.Require().NoError(err)

	found, err := s.service.GetCoupon(s.ctx, created.ID.String())
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)

	_, err = s.service.GetCoupon(s.ctx, "not-a-uuid")
	s.True(errors.IsValidation(err))
}

func (s *CouponServiceSuite) TestDeleteCoupon() {
	created, err := s.service.CreateCoupon(s.ctx, createRequest("BYE", 10, 1), nil)
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteCoupon(s.ctx, created.ID.String(), lo.ToPtr("admin-1")))

	_, err = s.service.GetCoupon(s.ctx, created.ID.String())
	s.True(errors.IsNotFound(err))

	err = s.service.DeleteCoupon(s.ctx, created.ID.String(), nil)
	s.True(errors.IsNotFound(err))

	err = s.service.DeleteCoupon(s.ctx, "nope", nil)
	s.True(errors.IsValidation(err))

	entries := s.audits.Entries()
	s.Require().Len(entries, 2)
	s.Equal(models.AuditActionDelete, entries[1].Action)
	s.NotNil(entries[1].OldData)
	s.Nil(entries[1].NewData)
}

func (s *CouponServiceSuite) TestAuditFailureDoesNotFailCreate() {
	s.audits.Err = errors.NewInternalServerError(nil, "audit down")

	coupon, err := s.service.CreateCoupon(s.ctx, createRequest("AUDIT", 10, 1), nil)
	s.Require().NoError(err)

	_, err = s.service.GetCoupon(s.ctx, coupon.ID.String())
	s.NoError(err)
}

func (s *CouponServiceSuite) TestStoreUnavailable() {
	s.repo.SetUnavailable(true)

	_, err := s.service.CreateCoupon(s.ctx, createRequest("DOWN", 10, 1), nil)
	s.True(errors.IsStoreUnavailable(err))

	_, err = s.service.ListCoupons(s.ctx)
	s.True(errors.IsStoreUnavailable(err))
}
