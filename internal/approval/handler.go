package approval

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
)

// Handler exposes the admin review queue.
type Handler struct {
	service *Service
}

// NewHandler constructs an approval handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Pending lists entries awaiting review.
func (h *Handler) Pending(c *fiber.Ctx) error {
	entries, err := h.service.Pending(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"pending": entries})
}

// Approve completes a pending entry.
func (h *Handler) Approve(c *fiber.Ctx) error {
	entry, err := h.service.Approve(c.UserContext(), c.Params("entryId"))
	if err != nil {
		return mapDecisionError(err)
	}
	return c.JSON(decisionResponse(entry))
}

// Reject cancels a pending entry.
func (h *Handler) Reject(c *fiber.Ctx) error {
	entry, err := h.service.Reject(c.UserContext(), c.Params("entryId"))
	if err != nil {
		return mapDecisionError(err)
	}
	return c.JSON(decisionResponse(entry))
}

func decisionResponse(entry ledger.Entry) fiber.Map {
	return fiber.Map{
		"entry_id":  entry.ID,
		"status":    entry.Status,
		"reference": entry.Reference,
		"amount":    entry.Amount,
	}
}

func mapDecisionError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotPending):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
