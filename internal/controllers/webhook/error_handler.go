package webhook

import (
	"errors"

	"github.com/DIMO-Network/server-garage/pkg/fibercommon"
	"github.com/DIMO-Network/server-garage/pkg/richerrors"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ErrorHandler renders rich errors as their plain-text external message.
// Fiber errors fall through to the common handler; anything else is a generic 500.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if richErr, ok := richerrors.AsRichError(err); ok && richErr.ExternalMsg != "" {
			code := richErr.Code
			if code < fiber.StatusBadRequest || code > 599 {
				code = fiber.StatusInternalServerError
			}
			event := logger.Warn()
			if code >= fiber.StatusInternalServerError {
				event = logger.Error()
			}
			event.Err(richErr.Err).Int("status", code).Str("path", c.Path()).Msg("Request failed")
			return c.Status(code).SendString(richErr.ExternalMsg)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return fibercommon.ErrorHandler(c, err)
		}

		logger.Error().Err(err).Str("path", c.Path()).Msg("Unexpected error")
		return c.Status(fiber.StatusInternalServerError).SendString(msgInternalServerError)
	}
}
