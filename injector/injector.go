//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/safatanc/coupon-core/internal/app/deliveries"
	"github.com/safatanc/coupon-core/internal/app/middlewares"
	"github.com/safatanc/coupon-core/internal/app/repositories"
	"github.com/safatanc/coupon-core/internal/app/services"
	"github.com/safatanc/coupon-core/internal/infrastructures"
)

// Infrastructure providers
var infrastructureSet = wire.NewSet(
	infrastructures.ProvideConfig,
	infrastructures.ConfigureLogger,
	infrastructures.NewRedisClient,
	infrastructures.NewValidator,
)

// Repository providers
var repositorySet = wire.NewSet(
	repositories.NewStore,
	repositories.ProvideCouponRepository,
	repositories.ProvideAuditRepository,
	wire.Bind(new(deliveries.StorePinger), new(*repositories.Store)),
)

// Service providers
var serviceSet = wire.NewSet(
	services.NewAuditService,
	services.NewCouponService,
	services.NewCouponValidationService,
	services.NewCouponRedemptionService,
)

// Middleware providers
var middlewareSet = wire.NewSet(
	middlewares.NewRedisRateLimiter,
	wire.Bind(new(middlewares.RateLimiter), new(*middlewares.RedisRateLimiter)),
	middlewares.NewAuthMiddleware,
	middlewares.NewRateLimitMiddleware,
)

// Handler providers
var handlerSet = wire.NewSet(
	deliveries.NewHealthHandler,
	deliveries.NewCouponHandler,
	deliveries.NewCouponRedemptionHandler,
	wire.Struct(new(Application), "*"),
)

// InitializeApplication initializes the application with all its dependencies
func InitializeApplication() (*Application, error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		serviceSet,
		middlewareSet,
		handlerSet,
	)
	return &Application{}, nil
}
