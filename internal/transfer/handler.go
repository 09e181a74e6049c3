package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type internalRequest struct {
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      int64  `json:"amount"`
	Note        string `json:"note"`
	ClientTxID  string `json:"client_tx_id"`
}

type externalRequest struct {
	FromAccount            string `json:"from_account"`
	Amount                 int64  `json:"amount"`
	Note                   string `json:"note"`
	ClientTxID             string `json:"client_tx_id"`
	RecipientEmail         string `json:"recipient_email"`
	RecipientAccountNumber string `json:"recipient_account_number"`
	RecipientRoutingNumber string `json:"recipient_routing_number"`
}

// Internal processes a transfer between the caller's own accounts.
func (h *Handler) Internal(c *fiber.Ctx) error {
	var req internalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	from, err := ledger.ParseAccountType(req.FromAccount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	to, err := ledger.ParseAccountType(req.ToAccount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Internal(c.UserContext(), InternalInput{
		OwnerID:    uid,
		From:       from,
		To:         to,
		Amount:     req.Amount,
		Note:       req.Note,
		ClientTxID: req.ClientTxID,
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return mapTransferError(err)
	}

	status := http.StatusCreated
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		status = http.StatusOK
	}
	return c.Status(status).JSON(transferResponse(res))
}

// External processes a transfer to another customer.
func (h *Handler) External(c *fiber.Ctx) error {
	var req externalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	from, err := ledger.ParseAccountType(req.FromAccount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.External(c.UserContext(), ExternalInput{
		SenderID:               uid,
		From:                   from,
		Amount:                 req.Amount,
		Note:                   req.Note,
		ClientTxID:             req.ClientTxID,
		RecipientEmail:         req.RecipientEmail,
		RecipientAccountNumber: req.RecipientAccountNumber,
		RecipientRoutingNumber: req.RecipientRoutingNumber,
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return mapTransferError(err)
	}

	status := http.StatusCreated
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		status = http.StatusOK
	}
	return c.Status(status).JSON(transferResponse(res))
}

// History returns the caller's ledger entries.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	entries, err := h.service.History(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"entries": entries})
}

func transferResponse(res ledger.TransferResult) fiber.Map {
	return fiber.Map{
		"reference":       res.Reference,
		"debit_entry_id":  res.Debit.ID,
		"credit_entry_id": res.Credit.ID,
		"status":          res.Debit.Status,
		"from_balance":    res.FromBalance,
	}
}

func mapTransferError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSameAccount),
		errors.Is(err, ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRecipientNotFound), errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
