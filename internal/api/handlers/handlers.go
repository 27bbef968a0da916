package handlers

import (
	"errors"
	"log"

	"backend/internal/apperr"
	"backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusForKind maps the error taxonomy to HTTP status codes
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindAuthenticationRequired:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindValidationFailed:
		return fiber.StatusBadRequest
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders a classified error. Expected kinds carry their
// message to the caller; internal errors are logged with full detail and
// surfaced as a generic failure without leaking internals.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)

	if kind == apperr.KindInternal {
		log.Printf("internal error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   kind.String(),
			Message: "something went wrong",
		})
	}

	message := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) {
		message = ae.Message
	}

	return c.Status(statusForKind(kind)).JSON(models.ErrorResponse{
		Error:   kind.String(),
		Message: message,
	})
}
