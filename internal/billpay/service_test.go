package billpay

import (
	"context"
	"errors"
	"testing"

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

func TestPay(t *testing.T) {
	led := ledger.NewInMemory()
	repo := NewMemoryRepository()
	notifier := &testNotifier{}
	svc := NewService(led, repo, notifier)

	ctx := context.Background()
	if _, err := led.OpenAccount(ctx, "alice", ledger.Checking); err != nil {
		t.Fatalf("open account: %v", err)
	}
	ledger.SeedBalance(led, "alice", ledger.Checking, 10_000)

	bill, err := svc.Pay(ctx, PayInput{
		OwnerID: "alice", Payee: "City Utilities", Amount: 7_500,
		From: ledger.Checking, Category: "utilities",
	})
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}

	if bill.Status != string(ledger.StatusCompleted) {
		t.Fatalf("bills settle immediately, got %s", bill.Status)
	}
	acct, err := led.AccountFor(ctx, "alice", ledger.Checking)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if acct.Balance != 2_500 {
		t.Fatalf("expected balance 2500, got %d", acct.Balance)
	}

	entry, err := led.EntryByID(ctx, bill.EntryID)
	if err != nil {
		t.Fatalf("linked entry missing: %v", err)
	}
	if entry.Amount != -7_500 || entry.Kind != ledger.KindBillPayment {
		t.Fatalf("unexpected linked entry: %+v", entry)
	}
	if entry.Counterparty.Name != "City Utilities" {
		t.Fatalf("payee not recorded on entry: %+v", entry.Counterparty)
	}
	if notifier.last.Kind != notification.KindBillPaid {
		t.Fatalf("expected bill notification, got %q", notifier.last.Kind)
	}

	bills, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bills) != 1 || bills[0].Payee != "City Utilities" {
		t.Fatalf("unexpected bill list: %+v", bills)
	}
}

func TestPay_Validation(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, NewMemoryRepository(), nil)

	ctx := context.Background()
	if _, err := led.OpenAccount(ctx, "alice", ledger.Checking); err != nil {
		t.Fatalf("open account: %v", err)
	}
	ledger.SeedBalance(led, "alice", ledger.Checking, 1_000)

	if _, err := svc.Pay(ctx, PayInput{OwnerID: "alice", Amount: 100, From: ledger.Checking}); err == nil {
		t.Fatal("expected error for missing payee")
	}
	_, err := svc.Pay(ctx, PayInput{OwnerID: "alice", Payee: "Acme", Amount: 5_000, From: ledger.Checking})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	_, err = svc.Pay(ctx, PayInput{OwnerID: "alice", Payee: "Acme", Amount: 0, From: ledger.Checking})
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

type failingRepository struct{}

func (failingRepository) Create(context.Context, BillPayment) error {
	return errors.New("store unavailable")
}

func (failingRepository) ListFor(context.Context, string) ([]BillPayment, error) {
	return nil, nil
}

func TestPay_ReversesDebitWhenRecordFails(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, failingRepository{}, nil)

	ctx := context.Background()
	if _, err := led.OpenAccount(ctx, "alice", ledger.Checking); err != nil {
		t.Fatalf("open account: %v", err)
	}
	ledger.SeedBalance(led, "alice", ledger.Checking, 10_000)

	in := PayInput{OwnerID: "alice", Payee: "Acme", Amount: 2_000, From: ledger.Checking, ClientTxID: "bill-rb"}
	if _, err := svc.Pay(ctx, in); err == nil {
		t.Fatal("expected error when the bill record cannot be written")
	}

	// The debit was compensated: no balance effect, no lingering entry.
	acct, err := led.AccountFor(ctx, "alice", ledger.Checking)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if acct.Balance != 10_000 {
		t.Fatalf("debit not reversed, balance %d", acct.Balance)
	}
	entries, err := led.EntriesFor(ctx, "alice")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("orphaned debit left behind: %+v", entries)
	}

	// A later retry with the same client transaction id can still succeed.
	working := NewService(led, NewMemoryRepository(), nil)
	if _, err := working.Pay(ctx, in); err != nil {
		t.Fatalf("retry after rollback failed: %v", err)
	}
}

func TestPay_DuplicateClientTxID(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, NewMemoryRepository(), nil)

	ctx := context.Background()
	if _, err := led.OpenAccount(ctx, "alice", ledger.Checking); err != nil {
		t.Fatalf("open account: %v", err)
	}
	ledger.SeedBalance(led, "alice", ledger.Checking, 10_000)

	in := PayInput{OwnerID: "alice", Payee: "Acme", Amount: 2_000, From: ledger.Checking, ClientTxID: "bill-dup"}
	if _, err := svc.Pay(ctx, in); err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	if _, err := svc.Pay(ctx, in); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	acct, err := led.AccountFor(ctx, "alice", ledger.Checking)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if acct.Balance != 8_000 {
		t.Fatalf("duplicate must not debit twice, balance %d", acct.Balance)
	}
}
