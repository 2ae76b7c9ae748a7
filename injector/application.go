package injector

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/safatanc/coupon-core/internal/app/deliveries"
	"github.com/safatanc/coupon-core/internal/app/middlewares"
	"github.com/safatanc/coupon-core/internal/app/repositories"
	"github.com/sirupsen/logrus"
)

// Application represents the main application container for coupon-core
type Application struct {
	Logger                  *logrus.Logger
	Redis                   *redis.Client
	Store                   *repositories.Store
	HealthHandler           *deliveries.HealthHandler
	CouponHandler           *deliveries.CouponHandler
	CouponRedemptionHandler *deliveries.CouponRedemptionHandler
	RateLimitMiddleware     *middlewares.RateLimitMiddleware
}

// RegisterRoutes registers all application routes using a Fiber router
func (app *Application) RegisterRoutes(router fiber.Router) {
	router.Use(middlewares.RequestLogger(app.Logger))

	app.HealthHandler.RegisterRoutes(router)

	api := router.Group("/api")
	api.Use(app.RateLimitMiddleware.LimitByIP(middlewares.PublicAPILimit))

	app.CouponRedemptionHandler.RegisterRoutes(api)
	app.CouponHandler.RegisterRoutes(api)
}

// Close releases the store connections.
func (app *Application) Close() error {
	if err := app.Store.Close(); err != nil {
		app.Logger.WithError(err).Warn("failed to close coupon store")
	}
	return app.Redis.Close()
}
