package serverutils

import (
	"errors"

	"video-segmentation-be/internal/service"
	"video-segmentation-be/pkg/mask"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps the service error taxonomy onto HTTP
// statuses. Streaming responses never reach this path — a propagation
// stream surfaces its terminal error as the last chunk instead.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError

		var validation *ValidationError
		var fiberErr *fiber.Error
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, service.ErrAlreadyRunning):
			status = fiber.StatusConflict
		case errors.Is(err, service.ErrInvalidArgument):
			status = fiber.StatusBadRequest
		case errors.As(err, &validation):
			status = fiber.StatusBadRequest
		case errors.Is(err, service.ErrInferenceFailure):
			status = fiber.StatusBadGateway
		case errors.Is(err, mask.ErrInvalidMask):
			// Codec invariant broken: a bug upstream, surfaced loudly.
			status = fiber.StatusInternalServerError
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
		}

		return ctx.Status(status).JSON(ErrorResponse(err.Error()))
	}
}
