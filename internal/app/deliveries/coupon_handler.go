package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/middlewares"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/app/pkg"
	"github.com/safatanc/coupon-core/internal/app/services"
)

type CouponHandler struct {
	couponService  *services.CouponService
	authMiddleware *middlewares.AuthMiddleware
}

func NewCouponHandler(couponService *services.CouponService, authMiddleware *middlewares.AuthMiddleware) *CouponHandler {
	return &CouponHandler{
		couponService:  couponService,
		authMiddleware: authMiddleware,
	}
}

func (h *CouponHandler) RegisterRoutes(router fiber.Router) {
	couponGroup := router.Group("/coupons")

	couponGroup.Get("/", h.authMiddleware.AuthRequester, h.ListCoupons)

	// Admin endpoints
	couponGroup.Post("/", h.authMiddleware.AuthRequester, h.authMiddleware.RequireAdmin, h.CreateCoupon)
	couponGroup.Get("/:id", h.authMiddleware.AuthRequester, h.authMiddleware.RequireAdmin, h.GetCoupon)
	couponGroup.Get("/:id/redemptions", h.authMiddleware.AuthRequester, h.authMiddleware.RequireAdmin, h.ListRedemptions)
	couponGroup.Delete("/:id", h.authMiddleware.AuthRequester, h.authMiddleware.RequireAdmin, h.DeleteCoupon)
}

func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req models.CouponCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
	}

	requester := middlewares.GetRequester(c)
	coupon, err := h.couponService.CreateCoupon(c.UserContext(), &req, &requester.ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, coupon)
}

func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	coupons, err := h.couponService.ListCoupons(c.UserContext())
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, coupons)
}

func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	coupon, err := h.couponService.GetCoupon(c.UserContext(), c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, coupon)
}

func (h *CouponHandler) ListRedemptions(c *fiber.Ctx) error {
	redemptions, err := h.couponService.ListRedemptions(c.UserContext(), c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, redemptions)
}

func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	requester := middlewares.GetRequester(c)
	if err := h.couponService.DeleteCoupon(c.UserContext(), c.Params("id"), &requester.ID); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse[any](c, nil)
}
