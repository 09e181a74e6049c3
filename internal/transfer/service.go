package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aurora-bank/aurora_bank/internal/identity"
	"github.com/aurora-bank/aurora_bank/internal/ledger"
	"github.com/aurora-bank/aurora_bank/internal/notification"
)

var (
	// ErrRecipientNotFound indicates no registered customer matched the lookup.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrSelfTransfer indicates the resolved recipient is the sender.
	ErrSelfTransfer = errors.New("cannot send an external transfer to yourself")
)

// Service orchestrates internal and external money movement over the ledger.
type Service struct {
	ledger   ledger.Ledger
	users    identity.Repository
	notifier notification.Notifier
}

// NewService constructs a transfer service.
func NewService(l ledger.Ledger, users identity.Repository, notifier notification.Notifier) *Service {
	return &Service{ledger: l, users: users, notifier: notifier}
}

// InternalInput captures a transfer between the caller's own accounts.
type InternalInput struct {
	OwnerID    string
	From       ledger.AccountType
	To         ledger.AccountType
	Amount     int64
	Note       string
	ClientTxID string
}

// ExternalInput captures a transfer to another customer, resolved by email or
// by account and routing number.
type ExternalInput struct {
	SenderID               string
	From                   ledger.AccountType
	Amount                 int64
	Note                   string
	ClientTxID             string
	RecipientEmail         string
	RecipientAccountNumber string
	RecipientRoutingNumber string
}

// Internal applies both legs immediately.
func (s *Service) Internal(ctx context.Context, in InternalInput) (ledger.TransferResult, error) {
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}
	return s.ledger.InternalTransfer(ctx, ledger.InternalTransferInput{
		OwnerID:    in.OwnerID,
		From:       in.From,
		To:         in.To,
		Amount:     in.Amount,
		Note:       in.Note,
		ClientTxID: in.ClientTxID,
	})
}

// External debits the sender now and leaves both legs pending review. The
// recipient is credited only when an administrator approves the credit leg.
func (s *Service) External(ctx context.Context, in ExternalInput) (ledger.TransferResult, error) {
	recipientID, counterparty, err := s.resolveRecipient(ctx, in)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	if recipientID == in.SenderID {
		return ledger.TransferResult{}, ErrSelfTransfer
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	res, err := s.ledger.ExternalTransfer(ctx, ledger.ExternalTransferInput{
		SenderID:     in.SenderID,
		From:         in.From,
		RecipientID:  recipientID,
		Amount:       in.Amount,
		Counterparty: counterparty,
		Note:         in.Note,
		ClientTxID:   in.ClientTxID,
	})
	if err != nil {
		return res, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferSubmitted,
			Destination: recipientID,
			Body:        fmt.Sprintf("Incoming transfer of %d pending review, reference %s", in.Amount, res.Reference),
		})
	}
	return res, nil
}

func (s *Service) resolveRecipient(ctx context.Context, in ExternalInput) (string, ledger.Counterparty, error) {
	if in.RecipientEmail != "" {
		user, err := s.users.FindByEmail(ctx, in.RecipientEmail)
		if err != nil {
			return "", ledger.Counterparty{}, ErrRecipientNotFound
		}
		return user.ID, ledger.Counterparty{Name: user.FullName, Email: user.Email}, nil
	}
	if in.RecipientAccountNumber != "" {
		acct, err := s.ledger.FindByNumber(ctx, in.RecipientAccountNumber, in.RecipientRoutingNumber)
		if err != nil {
			return "", ledger.Counterparty{}, ErrRecipientNotFound
		}
		return acct.OwnerID, ledger.Counterparty{
			AccountNumber: acct.Number,
			RoutingNumber: acct.Routing,
		}, nil
	}
	return "", ledger.Counterparty{}, ErrRecipientNotFound
}

// History lists the caller's ledger entries, newest first.
func (s *Service) History(ctx context.Context, ownerID string) ([]ledger.Entry, error) {
	return s.ledger.EntriesFor(ctx, ownerID)
}
