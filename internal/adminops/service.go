package adminops

import (
	"context"
	"time"

	"github.com/aurora-bank/aurora_bank/internal/identity"
	"github.com/aurora-bank/aurora_bank/internal/ledger"
)

// Service performs direct balance adjustments on behalf of administrators.
// None of these operations check funds; the ledger still reverses and
// reapplies effects atomically so totals stay consistent.
type Service struct {
	ledger ledger.Ledger
	users  identity.Repository
}

// NewService constructs an admin adjustment service.
func NewService(l ledger.Ledger, users identity.Repository) *Service {
	return &Service{ledger: l, users: users}
}

// AddInput captures a manual, possibly backdated, transaction.
type AddInput struct {
	UserID      string
	AccountType ledger.AccountType
	Amount      int64
	Date        time.Time
	Description string
	Note        string
}

// Add records a completed adjustment against the user's account.
func (s *Service) Add(ctx context.Context, in AddInput) (ledger.Entry, error) {
	if _, err := s.users.FindByID(ctx, in.UserID); err != nil {
		return ledger.Entry{}, ledger.ErrNotFound
	}
	return s.ledger.AdminPost(ctx, ledger.AdminPostInput{
		OwnerID:     in.UserID,
		AccountType: in.AccountType,
		Amount:      in.Amount,
		PostedAt:    in.Date,
		Description: in.Description,
		Note:        in.Note,
	})
}

// EditInput carries the optional replacement fields for an entry.
type EditInput struct {
	Amount      *int64
	AccountType *ledger.AccountType
}

// Edit rewrites an entry's amount and/or account. The old effect is reversed
// and the new one applied in a single step; editing back to the original
// values restores the original balances exactly.
func (s *Service) Edit(ctx context.Context, entryID string, in EditInput) (ledger.Entry, error) {
	entry, err := s.ledger.EntryByID(ctx, entryID)
	if err != nil {
		return ledger.Entry{}, err
	}
	amount := entry.Amount
	if in.Amount != nil {
		amount = *in.Amount
	}
	accountType := entry.AccountType
	if in.AccountType != nil {
		accountType = *in.AccountType
	}
	return s.ledger.AmendEntry(ctx, entryID, amount, accountType)
}

// Delete removes an entry and reverses its balance effect.
func (s *Service) Delete(ctx context.Context, entryID string) error {
	return s.ledger.RemoveEntry(ctx, entryID)
}

// SetBalance overwrites a user's checking and savings balances with absolute
// values and returns the resynced total.
func (s *Service) SetBalance(ctx context.Context, userID string, checking, savings int64) (int64, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return 0, ledger.ErrNotFound
	}
	return s.ledger.SetBalances(ctx, userID, checking, savings)
}

// Entries lists a user's ledger entries for the admin detail view.
func (s *Service) Entries(ctx context.Context, userID string) ([]ledger.Entry, error) {
	return s.ledger.EntriesFor(ctx, userID)
}
