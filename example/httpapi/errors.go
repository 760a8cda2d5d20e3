package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

var (
	ErrEditNotFound   = errors.New("edit session not found or expired")
	ErrInvalidEditID  = errors.New("invalid edit session id")
	ErrInvalidPayload = errors.New("invalid request payload")
	ErrInvalidQuery   = errors.New("either month or from and to must be given")
)

// statusOf maps an error to the HTTP status code of the response.
// Conflicts are checked before persistence failures, they are joined with ErrPersistenceFailed.
func statusOf(err error) int {
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidEditID):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrEditNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, availability.ErrConcurrencyConflict):
		return fiber.StatusConflict
	case errors.Is(err, availability.ErrValidationFailed):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, availability.ErrFetchFailed):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, availability.ErrPersistenceFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// messageOf returns the message shown to the client. Internal failures are not detailed.
func messageOf(status int, err error) string {
	switch status {
	case fiber.StatusInternalServerError:
		return "internal error"
	case fiber.StatusConflict:
		return availability.ErrConcurrencyConflict.Error()
	case fiber.StatusServiceUnavailable:
		return availability.ErrFetchFailed.Error()
	case fiber.StatusBadGateway:
		return availability.ErrPersistenceFailed.Error()
	default:
		return err.Error()
	}
}
