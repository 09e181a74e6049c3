package funding

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
)

// Handler exposes deposit and withdrawal endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type fundingRequest struct {
	AccountType string `json:"account_type"`
	Amount      int64  `json:"amount"`
	Note        string `json:"note"`
	ClientTxID  string `json:"client_tx_id"`
}

// Deposit processes a deposit request.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.post(c, h.service.Deposit)
}

// Withdraw processes a withdrawal request.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.post(c, h.service.Withdraw)
}

func (h *Handler) post(c *fiber.Ctx, op func(context.Context, Input) (Result, error)) error {
	var req fundingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	accountType, err := ledger.ParseAccountType(req.AccountType)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := op(c.UserContext(), Input{
		OwnerID:     uid,
		AccountType: accountType,
		Amount:      req.Amount,
		Note:        req.Note,
		ClientTxID:  req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, "duplicate funding transaction")
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"entry_id":          res.EntryID,
		"status":            res.Status,
		"reference":         res.Reference,
		"network_reference": res.NetworkReference,
		"completed_at":      res.CompletedAt,
	})
}
