package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/adminops"
	"github.com/aurora-bank/aurora_bank/internal/approval"
)

// RegisterApprovalRoutes wires the pending review queue.
func RegisterApprovalRoutes(router fiber.Router, h *approval.Handler) {
	grp := router.Group("/approvals")
	grp.Get("/", h.Pending)
	grp.Post("/:entryId/approve", h.Approve)
	grp.Post("/:entryId/reject", h.Reject)
}

// RegisterAdminRoutes wires manual ledger adjustment endpoints.
func RegisterAdminRoutes(router fiber.Router, h *adminops.Handler) {
	grp := router.Group("/adjustments")
	grp.Post("/", h.Add)
	grp.Patch("/:entryId", h.Edit)
	grp.Delete("/:entryId", h.Delete)

	router.Put("/users/:userId/balances", h.SetBalance)
	router.Get("/users/:userId/entries", h.Entries)
}
