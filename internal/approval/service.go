package approval

import (
	"context"
	"fmt"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
	"github.com/aurora-bank/aurora_bank/internal/notification"
)

// Service drives the review queue for pending ledger entries. Approving a
// credit leg is the only path that applies it to a balance; rejecting a held
// debit refunds it.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService constructs an approval service.
func NewService(l ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: l, notifier: notifier}
}

// Pending lists entries awaiting review, oldest first.
func (s *Service) Pending(ctx context.Context) ([]ledger.Entry, error) {
	return s.ledger.PendingEntries(ctx)
}

// Approve completes a pending entry and applies its deferred balance effect.
func (s *Service) Approve(ctx context.Context, entryID string) (ledger.Entry, error) {
	entry, err := s.ledger.Approve(ctx, entryID)
	if err != nil {
		return ledger.Entry{}, err
	}
	s.notify(ctx, entry, "approved")
	return entry, nil
}

// Reject cancels a pending entry, refunding any held debit. Both legs of a
// transfer reach a terminal state together.
func (s *Service) Reject(ctx context.Context, entryID string) (ledger.Entry, error) {
	entry, err := s.ledger.Reject(ctx, entryID)
	if err != nil {
		return ledger.Entry{}, err
	}
	s.notify(ctx, entry, "rejected")
	return entry, nil
}

func (s *Service) notify(ctx context.Context, entry ledger.Entry, decision string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTransferSettled,
		Destination: entry.OwnerID,
		Body:        fmt.Sprintf("Entry %s (%s) was %s", entry.ID, entry.Kind, decision),
	})
}
