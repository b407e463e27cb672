package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
	"github.com/nikonekti/nikonekti_backend/internal/permission"
)

var errNotAuthenticated = apperrors.Unauthenticated("")

// Require lets the request through only when the current user satisfies every predicate.
// It must run after TokenAuth or OptionalAuth.
func Require(preds ...permission.Predicate) fiber.Handler {
	check := permission.All(preds...)
	return func(c *fiber.Ctx) error {
		user, ok := identity.Current(c)
		if !ok {
			return unauthenticated(c)
		}
		if !check(user) {
			return apperrors.Forbidden()
		}
		return c.Next()
	}
}
