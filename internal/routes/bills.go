package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/billpay"
)

// RegisterBillRoutes wires bill payment endpoints.
func RegisterBillRoutes(router fiber.Router, h *billpay.Handler) {
	grp := router.Group("/bills")
	grp.Post("/", h.Pay)
	grp.Get("/", h.List)
}
