package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/identity"
	"github.com/nikonekti/nikonekti_backend/internal/middleware"
	"github.com/nikonekti/nikonekti_backend/internal/permission"
)

// RegisterUserRoutes wires the caller's profile and the staff-only user administration.
func RegisterUserRoutes(r fiber.Router, h *identity.Handler, requireToken, idempotent fiber.Handler) {
	me := r.Group("/users", requireToken, idempotent)
	me.Get("/me", h.Me)
	me.Patch("/me", h.UpdateMe)

	admin := r.Group("/admin", requireToken, middleware.Require(permission.IsAdmin), idempotent)
	admin.Get("/users", h.List)
	admin.Get("/users/:id", h.Detail)
	admin.Patch("/users/:id/kyc", h.ReviewKYC)
	admin.Patch("/users/:id/status", h.SetStatus)
}
