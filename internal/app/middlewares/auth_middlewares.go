package middlewares

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/app/pkg"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	LocalRequester = "requester"
	LocalUserID    = "user_id"
)

// AuthMiddleware trusts the identity headers set by the API gateway in front of this service.
type AuthMiddleware struct{}

func NewAuthMiddleware() *AuthMiddleware {
	return &AuthMiddleware{}
}

func (m *AuthMiddleware) AuthRequester(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Get(HeaderUserID))
	if userID == "" {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("User is not authenticated"))
	}
	if utf8.RuneCountInString(userID) > models.MaxRequesterIDLength {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("User id is too long"))
	}

	role := strings.ToLower(strings.TrimSpace(c.Get(HeaderUserRole)))
	if role == "" {
		role = models.RequesterRoleStudent
	}

	c.Locals(LocalRequester, &models.Requester{ID: userID, Role: role})
	c.Locals(LocalUserID, userID)

	return c.Next()
}

// RequireAdmin must run after AuthRequester.
func (m *AuthMiddleware) RequireAdmin(c *fiber.Ctx) error {
	requester := GetRequester(c)
	if requester == nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("User is not authenticated"))
	}

	if !requester.IsAdmin() {
		return pkg.ErrorResponse(c, errors.NewForbiddenError("Admin role required"))
	}

	return c.Next()
}

func GetRequester(c *fiber.Ctx) *models.Requester {
	requester, _ := c.Locals(LocalRequester).(*models.Requester)
	return requester
}
