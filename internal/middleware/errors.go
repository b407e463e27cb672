package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
)

// ErrorHandler renders errors returned by handlers. Application errors use their own
// status and body; Fiber errors become {"detail": message}; anything else is a 500
// whose cause is logged but never sent to the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := apperrors.As(err); ok {
			if appErr.Kind == apperrors.KindInternal {
				logger.ErrorContext(c.UserContext(), "internal error",
					slog.String("request_id", RequestIDFrom(c)),
					slog.String("path", c.Path()),
					slog.Any("error", appErr.Err))
			}
			return c.Status(appErr.Status()).JSON(appErr.Body())
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"detail": fe.Message})
		}

		logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("request_id", RequestIDFrom(c)),
			slog.String("path", c.Path()),
			slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(apperrors.Internal(err).Body())
	}
}
