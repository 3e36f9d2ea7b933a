package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
)

// translateError maps domain sentinels onto HTTP statuses. Anything
// unrecognized falls through to the 500 path in ErrorHandler.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "resource not found")
	case errors.Is(err, apperrors.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
