package billpay

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
)

// Handler exposes bill payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a bill payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type payRequest struct {
	Payee       string `json:"payee"`
	Amount      int64  `json:"amount"`
	FromAccount string `json:"from_account"`
	Category    string `json:"category"`
	Note        string `json:"note"`
	ClientTxID  string `json:"client_tx_id"`
}

// Pay processes a bill payment.
func (h *Handler) Pay(c *fiber.Ctx) error {
	var req payRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	from, err := ledger.ParseAccountType(req.FromAccount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	bill, err := h.service.Pay(c.UserContext(), PayInput{
		OwnerID:    uid,
		Payee:      req.Payee,
		Amount:     req.Amount,
		From:       from,
		Category:   req.Category,
		Note:       req.Note,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, "duplicate bill payment")
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"bill_id":  bill.ID,
		"entry_id": bill.EntryID,
		"payee":    bill.Payee,
		"amount":   bill.Amount,
		"status":   bill.Status,
	})
}

// List returns the caller's bill payments.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	bills, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"bills": bills})
}
