package pkg

import (
	"errors"
	"reflect"

	"github.com/gofiber/fiber/v2"
	appError "github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/sirupsen/logrus"
)

func SuccessResponse[T any](c *fiber.Ctx, data T) error {
	return c.JSON(models.WebResponse[T]{
		Success: true,
		Data:    data,
	})
}

func CreatedResponse[T any](c *fiber.Ctx, data T) error {
	return c.Status(fiber.StatusCreated).JSON(models.WebResponse[T]{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *fiber.Ctx, err error) error {
	var appErr *appError.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == appError.KindStoreUnavailable {
			c.Set(fiber.HeaderRetryAfter, "1")
		}
		return c.Status(appErr.StatusCode).JSON(models.WebResponse[any]{
			Success:   false,
			Message:   appErr.Message,
			ErrorCode: string(appErr.Kind),
			Data:      appErr.Details,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.WebResponse[any]{
			Success: false,
			Message: fiberErr.Message,
		})
	}

	logrus.Errorf("[%s] %s", reflect.TypeOf(err).String(), err)

	return c.Status(fiber.StatusInternalServerError).JSON(models.WebResponse[any]{
		Success:   false,
		Message:   "Internal Server Error",
		ErrorCode: string(appError.KindInternal),
	})
}
