package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/identity"
	"github.com/nikonekti/nikonekti_backend/internal/middleware"
	"github.com/nikonekti/nikonekti_backend/internal/permission"
	"github.com/nikonekti/nikonekti_backend/internal/property"
)

// RegisterTenantRoutes wires the tenant-only dashboard.
func RegisterTenantRoutes(r fiber.Router, properties *property.Service, requireToken fiber.Handler) {
	r.Get("/tenant/dashboard", requireToken, middleware.Require(permission.IsTenant), func(c *fiber.Ctx) error {
		user, _ := identity.Current(c)
		available, err := properties.CountAvailable(c.UserContext())
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"message":              "Welcome, " + user.ShortName(),
			"user":                 identity.NewUserResponse(user),
			"available_properties": available,
		})
	})
}
