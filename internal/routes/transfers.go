package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/transfer"
)

// RegisterTransferRoutes wires money movement endpoints.
func RegisterTransferRoutes(router fiber.Router, h *transfer.Handler) {
	grp := router.Group("/transfers")
	grp.Post("/internal", h.Internal)
	grp.Post("/external", h.External)

	router.Get("/transactions", h.History)
}
