package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/auth"
)

// RegisterAuthRoutes wires registration, login and logout.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, requireToken, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/logout", requireToken, h.Logout)
}
