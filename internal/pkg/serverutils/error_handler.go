package serverutils

import (
	"errors"

	"meal-subscription-be/internal/entity"

	"github.com/gofiber/fiber/v2"
)

type errorMapping struct {
	target error
	status int
}

var errorMappings = []errorMapping{
	{entity.ErrAddOnRollbackFailed, fiber.StatusInternalServerError},

	{entity.ErrSubscriptionNotFound, fiber.StatusNotFound},
	{entity.ErrWalletNotFound, fiber.StatusNotFound},
	{entity.ErrNotificationNotFound, fiber.StatusNotFound},

	{entity.ErrForbidden, fiber.StatusForbidden},
	{entity.ErrNotAssignee, fiber.StatusForbidden},

	{entity.ErrNotADeliveryDay, fiber.StatusUnprocessableEntity},
	{entity.ErrDateNotServiceable, fiber.StatusUnprocessableEntity},
	{entity.ErrUnknownAddOn, fiber.StatusUnprocessableEntity},
	{entity.ErrInvalidDeliveryStatus, fiber.StatusUnprocessableEntity},
	{entity.ErrDeliveryNotCompleted, fiber.StatusUnprocessableEntity},
	{entity.ErrCutoffPassed, fiber.StatusUnprocessableEntity},
	{entity.ErrInvalidDateRange, fiber.StatusUnprocessableEntity},
	{entity.ErrUnknownNotificationType, fiber.StatusUnprocessableEntity},

	{entity.ErrAlreadySkipped, fiber.StatusConflict},
	{entity.ErrSubscriptionInactive, fiber.StatusConflict},
	{entity.ErrInvalidTransition, fiber.StatusConflict},
	{entity.ErrConcurrentUpdate, fiber.StatusConflict},
	{entity.ErrSubscriptionLocked, fiber.StatusConflict},

	{entity.ErrPaymentDeclined, fiber.StatusPaymentRequired},
	{entity.ErrInsufficientBalance, fiber.StatusPaymentRequired},

	{entity.ErrCutoffUnavailable, fiber.StatusServiceUnavailable},
}

// StatusFor resolves the HTTP status and client message of err. Unknown
// errors become a generic 500 so internals never leak.
func StatusFor(err error) (int, string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest, verr.Error()
	}
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code, ferr.Message
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status == fiber.StatusServiceUnavailable {
				return m.status, "feature temporarily unavailable"
			}
			return m.status, err.Error()
		}
	}
	return fiber.StatusInternalServerError, "internal server error"
}

// ErrorHandlerMiddleware turns errors returned by handlers into the
// standard envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		status, message := StatusFor(err)
		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}
