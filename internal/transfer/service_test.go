package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/aurora-bank/aurora_bank/internal/identity"
	"github.com/aurora-bank/aurora_bank/internal/ledger"
	"github.com/aurora-bank/aurora_bank/internal/notification"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

func register(t *testing.T, users *identity.Service, email string) identity.User {
	t.Helper()
	user, err := users.Register(context.Background(), identity.Credentials{
		Email: email, Password: "correct-horse", FullName: "Test Customer",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func TestInternalTransfer(t *testing.T) {
	led := ledger.NewInMemory()
	repo := identity.NewMemoryRepository()
	users := identity.NewService(repo, led)
	svc := NewService(led, repo, nil)

	ctx := context.Background()
	alice := register(t, users, "alice@example.com")
	ledger.SeedBalance(led, alice.ID, ledger.Checking, 10_000)

	res, err := svc.Internal(ctx, InternalInput{
		OwnerID: alice.ID, From: ledger.Checking, To: ledger.Savings, Amount: 4_000,
	})
	if err != nil {
		t.Fatalf("internal transfer failed: %v", err)
	}
	if res.FromBalance != 6_000 || res.ToBalance != 4_000 {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if res.Debit.Status != ledger.StatusCompleted {
		t.Fatalf("internal legs should settle immediately, got %s", res.Debit.Status)
	}
}

func TestExternalTransfer_ByEmail(t *testing.T) {
	led := ledger.NewInMemory()
	repo := identity.NewMemoryRepository()
	users := identity.NewService(repo, led)
	notifier := &testNotifier{}
	svc := NewService(led, repo, notifier)

	ctx := context.Background()
	alice := register(t, users, "alice@example.com")
	bob := register(t, users, "bob@example.com")
	ledger.SeedBalance(led, alice.ID, ledger.Checking, 50_000)

	res, err := svc.External(ctx, ExternalInput{
		SenderID: alice.ID, From: ledger.Checking, Amount: 20_000,
		RecipientEmail: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("external transfer failed: %v", err)
	}
	if res.FromBalance != 30_000 {
		t.Fatalf("sender not debited immediately: %d", res.FromBalance)
	}
	if res.Credit.OwnerID != bob.ID || res.Credit.Status != ledger.StatusPending {
		t.Fatalf("credit leg wrong: %+v", res.Credit)
	}
	if res.Debit.Counterparty.Email != "bob@example.com" {
		t.Fatalf("counterparty not recorded: %+v", res.Debit.Counterparty)
	}
	if notifier.last.Kind != notification.KindTransferSubmitted {
		t.Fatalf("expected submission notification, got %q", notifier.last.Kind)
	}
	if notifier.last.Destination != bob.ID {
		t.Fatalf("notification sent to %s", notifier.last.Destination)
	}
}

func TestExternalTransfer_ByAccountNumber(t *testing.T) {
	led := ledger.NewInMemory()
	repo := identity.NewMemoryRepository()
	users := identity.NewService(repo, led)
	svc := NewService(led, repo, nil)

	ctx := context.Background()
	alice := register(t, users, "alice@example.com")
	bob := register(t, users, "bob@example.com")
	ledger.SeedBalance(led, alice.ID, ledger.Checking, 10_000)

	bobChecking, err := led.AccountFor(ctx, bob.ID, ledger.Checking)
	if err != nil {
		t.Fatalf("account: %v", err)
	}

	res, err := svc.External(ctx, ExternalInput{
		SenderID: alice.ID, From: ledger.Checking, Amount: 1_000,
		RecipientAccountNumber: bobChecking.Number,
		RecipientRoutingNumber: ledger.RoutingNumber,
	})
	if err != nil {
		t.Fatalf("external transfer failed: %v", err)
	}
	if res.Credit.OwnerID != bob.ID {
		t.Fatalf("resolved wrong recipient: %s", res.Credit.OwnerID)
	}
}

func TestExternalTransfer_RecipientErrors(t *testing.T) {
	led := ledger.NewInMemory()
	repo := identity.NewMemoryRepository()
	users := identity.NewService(repo, led)
	svc := NewService(led, repo, nil)

	ctx := context.Background()
	alice := register(t, users, "alice@example.com")
	ledger.SeedBalance(led, alice.ID, ledger.Checking, 10_000)

	_, err := svc.External(ctx, ExternalInput{
		SenderID: alice.ID, From: ledger.Checking, Amount: 1_000,
		RecipientEmail: "nobody@example.com",
	})
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected recipient not found, got %v", err)
	}

	_, err = svc.External(ctx, ExternalInput{
		SenderID: alice.ID, From: ledger.Checking, Amount: 1_000,
		RecipientEmail: "alice@example.com",
	})
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self transfer error, got %v", err)
	}

	_, err = svc.External(ctx, ExternalInput{SenderID: alice.ID, From: ledger.Checking, Amount: 1_000})
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected recipient not found without lookup fields, got %v", err)
	}
}
