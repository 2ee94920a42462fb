package handlers

import (
	"errors"

	"lapak/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps the engine's sentinel errors to HTTP statuses.
// RequiresManualRefund deliberately has no mapping here: it is an operator
// condition carried on the order and the notification channel, never a
// payer-facing error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrCartNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrEmptyOrder),
		errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrSignatureMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrProviderUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
