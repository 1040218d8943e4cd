package handlers

import (
	"errors"

	"watchlist/pkg/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindInvalid, services.KindConflict:
		return fiber.StatusBadRequest
	case services.KindUnauthorized:
		return fiber.StatusUnauthorized
	case services.KindForbidden:
		return fiber.StatusForbidden
	case services.KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// NewErrorHandler renders every error as {"detail": message}.
func NewErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := err.Error()

		var se *services.Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &se):
			status = statusFor(se.Kind)
			detail = se.Error()
			if se.Kind == services.KindUnauthorized {
				c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			}
		case errors.As(err, &fe):
			status = fe.Code
			detail = fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).Error("request failed")
		}

		return c.Status(status).JSON(fiber.Map{"detail": detail})
	}
}
