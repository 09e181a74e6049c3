package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/identity"
	"github.com/aurora-bank/aurora_bank/internal/ledger"
)

// RegisterAccountRoutes wires account listing for the authenticated user.
func RegisterAccountRoutes(router fiber.Router, l ledger.Ledger, users identity.Repository) {
	router.Get("/accounts", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		accounts, total, err := l.AccountsFor(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		user, err := users.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"owner_id":      uid,
			"full_name":     user.FullName,
			"accounts":      accounts,
			"total_balance": total,
		})
	})
}
