package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/auth"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
)

// TokenAuth rejects requests without a valid token and stores the resolved user on the request.
func TokenAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, ok := auth.ExtractKey(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthenticated(c)
		}
		user, err := svc.Resolve(c.UserContext(), key)
		if err != nil {
			return err
		}
		identity.SetCurrent(c, user)
		auth.SetCurrentToken(c, key)
		return c.Next()
	}
}

// OptionalAuth resolves a token when one is presented but lets anonymous requests through.
// A presented token that fails to resolve is still rejected.
func OptionalAuth(svc *auth.Service) fiber.Handler {
	strict := TokenAuth(svc)
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return strict(c)
	}
}

func unauthenticated(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Token realm="api"`)
	return errNotAuthenticated
}
