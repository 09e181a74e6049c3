package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/funding"
)

// RegisterFundingRoutes wires deposit and withdrawal endpoints.
func RegisterFundingRoutes(router fiber.Router, h *funding.Handler) {
	grp := router.Group("/funding")
	grp.Post("/deposit", h.Deposit)
	grp.Post("/withdraw", h.Withdraw)
}
