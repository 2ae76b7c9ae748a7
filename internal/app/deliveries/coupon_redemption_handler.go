package deliveries

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/middlewares"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/app/pkg"
	"github.com/safatanc/coupon-core/internal/app/services"
	"github.com/safatanc/coupon-core/internal/infrastructures"
)

const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

type CouponRedemptionHandler struct {
	validationService   *services.CouponValidationService
	redemptionService   *services.CouponRedemptionService
	validator           *infrastructures.Validator
	authMiddleware      *middlewares.AuthMiddleware
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

func NewCouponRedemptionHandler(
	validationService *services.CouponValidationService,
	redemptionService *services.CouponRedemptionService,
	validator *infrastructures.Validator,
	authMiddleware *middlewares.AuthMiddleware,
	rateLimitMiddleware *middlewares.RateLimitMiddleware,
) *CouponRedemptionHandler {
	return &CouponRedemptionHandler{
		validationService:   validationService,
		redemptionService:   redemptionService,
		validator:           validator,
		authMiddleware:      authMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *CouponRedemptionHandler) RegisterRoutes(router fiber.Router) {
	couponGroup := router.Group("/coupons")

	couponGroup.Post("/verify",
		h.authMiddleware.AuthRequester,
		h.rateLimitMiddleware.LimitByUser("verify", middlewares.VerifyLimit),
		h.VerifyCoupon,
	)
	couponGroup.Post("/redeem",
		h.authMiddleware.AuthRequester,
		h.rateLimitMiddleware.LimitByUser("redeem", middlewares.RedeemLimit),
		h.RedeemCoupon,
	)
}

func (h *CouponRedemptionHandler) parseRequest(c *fiber.Ctx) (*models.CouponCodeRequest, error) {
	var req models.CouponCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.NewBadRequestError("Invalid request body")
	}
	if err := h.validator.Validate(&req); err != nil {
		return nil, err
	}
	if req.OriginalPrice != nil && req.OriginalPrice.IsNegative() {
		return nil, errors.NewBadRequestError("Original price cannot be negative")
	}
	return &req, nil
}

func redemptionContext(c *fiber.Ctx, req *models.CouponCodeRequest) models.RedemptionContext {
	rc := models.RedemptionContext{
		CourseID:      req.CourseID,
		BundleID:      req.BundleID,
		OriginalPrice: req.OriginalPrice,
	}
	if requester := middlewares.GetRequester(c); requester != nil {
		rc.RequesterID = requester.ID
	}
	return rc
}

func (h *CouponRedemptionHandler) VerifyCoupon(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	validated, err := h.validationService.ValidateCoupon(c.UserContext(), req.Code, redemptionContext(c, req))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, validated)
}

func (h *CouponRedemptionHandler) RedeemCoupon(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	rc := redemptionContext(c, req)
	rc.IdempotencyKey = strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	if len(rc.IdempotencyKey) > maxIdempotencyKeyLength {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Idempotency key is too long"))
	}

	receipt, err := h.redemptionService.RedeemCoupon(c.UserContext(), req.Code, rc)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	if receipt.Replayed {
		return pkg.SuccessResponse(c, receipt)
	}
	return pkg.CreatedResponse(c, receipt)
}
