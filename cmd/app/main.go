package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/safatanc/coupon-core/injector"
	"github.com/safatanc/coupon-core/internal/app/pkg"
	"github.com/safatanc/coupon-core/internal/infrastructures"
	"github.com/sirupsen/logrus"
)

func main() {
	config := infrastructures.LoadConfig()

	app, err := injector.InitializeApplication()
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	// Fiber configuration
	router := fiber.New(fiber.Config{
		ReadTimeout:  time.Second * 60,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: pkg.ErrorResponse,
	})

	router.Use(recover.New())

	// Add CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-User-ID, X-User-Role, Idempotency-Key",
		AllowMethods:  "GET, POST, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		MaxAge:        300,
	}))

	app.RegisterRoutes(router)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logrus.Info("shutting down")
		if err := router.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("graceful shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":         config.APP_PORT,
		"store_driver": app.Store.Driver,
	}).Info("coupon-core listening")

	if err := router.Listen(":" + config.APP_PORT); err != nil {
		logrus.Fatalf("Server stopped: %v", err)
	}

	if err := app.Close(); err != nil {
		logrus.WithError(err).Warn("failed to close redis client")
	}
}
