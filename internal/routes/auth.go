package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/auth"
)

// RegisterAuthRoutes wires the public authentication endpoints.
func RegisterAuthRoutes(router fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	grp := router.Group("/auth")
	grp.Post("/register", h.Register)
	grp.Post("/login", rateLimiter, h.Login)
	grp.Post("/refresh", h.Refresh)
}
