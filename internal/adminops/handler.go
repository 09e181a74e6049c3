package adminops

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
)

// Handler exposes admin adjustment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an admin adjustment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type addRequest struct {
	UserID      string `json:"user_id"`
	AccountType string `json:"account_type"`
	Amount      int64  `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Note        string `json:"note"`
}

type editRequest struct {
	Amount      *int64  `json:"amount"`
	AccountType *string `json:"account_type"`
}

type setBalanceRequest struct {
	Checking int64 `json:"checking"`
	Savings  int64 `json:"savings"`
}

// Add records a manual transaction, optionally backdated.
func (h *Handler) Add(c *fiber.Ctx) error {
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountType, err := ledger.ParseAccountType(req.AccountType)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var date time.Time
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "date must be RFC3339 or YYYY-MM-DD")
		}
	}

	entry, err := h.service.Add(c.UserContext(), AddInput{
		UserID:      req.UserID,
		AccountType: accountType,
		Amount:      req.Amount,
		Date:        date,
		Description: req.Description,
		Note:        req.Note,
	})
	if err != nil {
		return mapAdminError(err)
	}
	return c.Status(http.StatusCreated).JSON(entryResponse(entry))
}

// Edit rewrites an existing entry.
func (h *Handler) Edit(c *fiber.Ctx) error {
	var req editRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	in := EditInput{Amount: req.Amount}
	if req.AccountType != nil {
		accountType, err := ledger.ParseAccountType(*req.AccountType)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		in.AccountType = &accountType
	}

	entry, err := h.service.Edit(c.UserContext(), c.Params("entryId"), in)
	if err != nil {
		return mapAdminError(err)
	}
	return c.JSON(entryResponse(entry))
}

// Delete removes an entry and reverses its effect.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("entryId")); err != nil {
		return mapAdminError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetBalance overwrites a user's account balances.
func (h *Handler) SetBalance(c *fiber.Ctx) error {
	var req setBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	total, err := h.service.SetBalance(c.UserContext(), c.Params("userId"), req.Checking, req.Savings)
	if err != nil {
		return mapAdminError(err)
	}
	return c.JSON(fiber.Map{"checking": req.Checking, "savings": req.Savings, "total": total})
}

// Entries lists a user's ledger entries.
func (h *Handler) Entries(c *fiber.Ctx) error {
	entries, err := h.service.Entries(c.UserContext(), c.Params("userId"))
	if err != nil {
		return mapAdminError(err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

func entryResponse(entry ledger.Entry) fiber.Map {
	return fiber.Map{
		"entry_id":     entry.ID,
		"user_id":      entry.OwnerID,
		"account_type": entry.AccountType,
		"amount":       entry.Amount,
		"status":       entry.Status,
		"kind":         entry.Kind,
		"posted_at":    entry.PostedAt,
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func mapAdminError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
