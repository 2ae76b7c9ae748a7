package deliveries

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/pkg"
)

// StorePinger is satisfied by repositories.Store.
type StorePinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store StorePinger
}

func NewHealthHandler(store StorePinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.GetHealth)
}

func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return pkg.ErrorResponse(c, errors.NewStoreUnavailableError(err, "Coupon store is unreachable"))
	}

	return pkg.SuccessResponse(c, "coupon-core")
}
