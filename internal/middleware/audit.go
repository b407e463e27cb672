package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
)

// Audit emits one structured log line per request. Client errors log at warn,
// server errors at error.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID := RequestIDFrom(c); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if user, ok := identity.Current(c); ok {
			attrs = append(attrs, slog.Int64("user_id", user.ID))
		}

		ctx := c.UserContext()
		switch {
		case status >= fiber.StatusInternalServerError:
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.ErrorContext(ctx, "request completed", attrs...)
		case status >= fiber.StatusBadRequest:
			logger.WarnContext(ctx, "request completed", attrs...)
		default:
			logger.InfoContext(ctx, "request completed", attrs...)
		}
		return err
	}
}

func statusOf(err error) int {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Status()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
