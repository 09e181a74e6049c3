package billpay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
	"github.com/aurora-bank/aurora_bank/internal/notification"
)

// Service records bill payments as completed ledger debits plus a bill record.
// Bills complete immediately regardless of amount; only deposits and
// withdrawals carry a review threshold.
type Service struct {
	ledger   ledger.Ledger
	repo     Repository
	notifier notification.Notifier
}

// NewService constructs a bill payment service.
func NewService(l ledger.Ledger, repo Repository, notifier notification.Notifier) *Service {
	return &Service{ledger: l, repo: repo, notifier: notifier}
}

// PayInput captures the data needed to pay a bill.
type PayInput struct {
	OwnerID    string
	Payee      string
	Amount     int64
	From       ledger.AccountType
	Category   string
	Note       string
	ClientTxID string
}

// Pay debits the account and records the bill.
func (s *Service) Pay(ctx context.Context, in PayInput) (BillPayment, error) {
	if in.Payee == "" {
		return BillPayment{}, fmt.Errorf("payee is required")
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	entry, err := s.ledger.PostDebit(ctx, ledger.DebitInput{
		OwnerID:      in.OwnerID,
		AccountType:  in.From,
		Amount:       in.Amount,
		Kind:         ledger.KindBillPayment,
		Counterparty: ledger.Counterparty{Name: in.Payee},
		Description:  fmt.Sprintf("Bill payment to %s", in.Payee),
		Note:         in.Note,
		ClientTxID:   in.ClientTxID,
	})
	if err != nil {
		return BillPayment{}, err
	}

	bill := BillPayment{
		ID:        uuid.NewString(),
		OwnerID:   in.OwnerID,
		EntryID:   entry.ID,
		Payee:     in.Payee,
		Category:  in.Category,
		Amount:    in.Amount,
		Status:    string(entry.Status),
		CreatedAt: entry.PostedAt,
	}
	if err := s.repo.Create(ctx, bill); err != nil {
		// The debit must not stand without its bill record; reverse it.
		if rbErr := s.ledger.RemoveEntry(ctx, entry.ID); rbErr != nil {
			return BillPayment{}, fmt.Errorf("record bill: %v (reverse debit: %w)", err, rbErr)
		}
		return BillPayment{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindBillPaid,
			Destination: in.OwnerID,
			Body:        fmt.Sprintf("Paid %d to %s", in.Amount, in.Payee),
		})
	}
	return bill, nil
}

// List returns the owner's bill payments.
func (s *Service) List(ctx context.Context, ownerID string) ([]BillPayment, error) {
	return s.repo.ListFor(ctx, ownerID)
}
