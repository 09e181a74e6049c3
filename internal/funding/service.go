package funding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
	"github.com/aurora-bank/aurora_bank/internal/notification"
)

// Service coordinates deposits and withdrawals through the settlement network.
// Amounts at or above the review threshold are posted pending and must be
// approved by an administrator; the threshold is enforced here, server-side,
// never by the client.
type Service struct {
	ledger    ledger.Ledger
	network   SettlementNetwork
	notifier  notification.Notifier
	threshold int64
}

// NewService prepares a funding service. A nil network falls back to the
// static stub connector.
func NewService(l ledger.Ledger, network SettlementNetwork, notifier notification.Notifier, threshold int64) *Service {
	if network == nil {
		network = StaticNetwork{}
	}
	return &Service{ledger: l, network: network, notifier: notifier, threshold: threshold}
}

// Input captures the data for a deposit or withdrawal.
type Input struct {
	OwnerID     string
	AccountType ledger.AccountType
	Amount      int64
	Note        string
	ClientTxID  string
}

// Result represents the domain outcome of a funding operation.
type Result struct {
	EntryID          string
	Status           ledger.Status
	Reference        string
	NetworkReference string
	CompletedAt      time.Time
}

// Deposit moves money into the account. Large deposits wait for review; the
// credit is applied on approval.
func (s *Service) Deposit(ctx context.Context, in Input) (Result, error) {
	return s.post(ctx, in, ledger.KindDeposit)
}

// Withdraw moves money out of the account. The debit is held immediately even
// when the withdrawal waits for review.
func (s *Service) Withdraw(ctx context.Context, in Input) (Result, error) {
	return s.post(ctx, in, ledger.KindWithdrawal)
}

func (s *Service) post(ctx context.Context, in Input, kind ledger.Kind) (Result, error) {
	if in.Amount <= 0 {
		return Result{}, ledger.ErrInvalidAmount
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	acct, err := s.ledger.AccountFor(ctx, in.OwnerID, in.AccountType)
	if err != nil {
		return Result{}, err
	}

	authz := Authorization{AccountNumber: acct.Number, RoutingNumber: acct.Routing, Amount: in.Amount}
	var decision Decision
	if kind == ledger.KindDeposit {
		decision, err = s.network.AuthorizeDeposit(ctx, authz)
	} else {
		decision, err = s.network.AuthorizeWithdrawal(ctx, authz)
	}
	if err != nil {
		return Result{}, fmt.Errorf("settlement network: %w", err)
	}

	status := ledger.StatusCompleted
	if s.threshold > 0 && in.Amount >= s.threshold {
		status = ledger.StatusPending
	}

	entry, err := s.ledger.PostFunding(ctx, ledger.FundingInput{
		OwnerID:     in.OwnerID,
		AccountType: in.AccountType,
		Amount:      in.Amount,
		Kind:        kind,
		Status:      status,
		Description: fmt.Sprintf("%s via settlement network", kind),
		Note:        in.Note,
		ClientTxID:  in.ClientTxID,
	})
	if err != nil {
		return Result{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindFunding,
			Destination: in.OwnerID,
			Body:        fmt.Sprintf("%s of %d is %s", kind, in.Amount, entry.Status),
		})
	}

	return Result{
		EntryID:          entry.ID,
		Status:           entry.Status,
		Reference:        entry.Reference,
		NetworkReference: decision.Reference,
		CompletedAt:      entry.PostedAt,
	}, nil
}
