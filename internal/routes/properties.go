package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/middleware"
	"github.com/nikonekti/nikonekti_backend/internal/permission"
	"github.com/nikonekti/nikonekti_backend/internal/property"
)

// RegisterPropertyRoutes wires listing endpoints. listAuth guards the public list and is
// either the strict token check or the optional one, depending on configuration.
// idempotent runs after the permission check on every write.
func RegisterPropertyRoutes(r fiber.Router, h *property.Handler, requireToken, listAuth, idempotent fiber.Handler) {
	group := r.Group("/properties")

	group.Get("/list", listAuth, h.List)

	landlordOnly := middleware.Require(permission.IsLandlord)
	group.Post("/create", requireToken, landlordOnly, idempotent, h.Create)
	group.Get("/my-properties", requireToken, landlordOnly, h.Mine)

	adminOnly := middleware.Require(permission.IsAdmin)
	group.Get("/:id", requireToken, h.Detail)
	group.Put("/:id", requireToken, adminOnly, idempotent, h.Update)
	group.Patch("/:id", requireToken, adminOnly, idempotent, h.Patch)
	group.Delete("/:id", requireToken, adminOnly, idempotent, h.Delete)
}
