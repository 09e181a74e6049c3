package funding

import (
	"context"
	"errors"
	"testing"

	"github.com/aurora-bank/aurora_bank/internal/ledger"
	"github.com/aurora-bank/aurora_bank/internal/notification"
)

const reviewThreshold = 100_000

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

func newFixture(t *testing.T) (*Service, ledger.Ledger, *testNotifier) {
	t.Helper()
	led := ledger.NewInMemory()
	if _, err := led.OpenAccount(context.Background(), "alice", ledger.Checking); err != nil {
		t.Fatalf("open account: %v", err)
	}
	notifier := &testNotifier{}
	return NewService(led, nil, notifier, reviewThreshold), led, notifier
}

func TestDeposit_BelowThresholdCompletes(t *testing.T) {
	svc, led, notifier := newFixture(t)
	ctx := context.Background()

	res, err := svc.Deposit(ctx, Input{OwnerID: "alice", AccountType: ledger.Checking, Amount: 50_000})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if res.Status != ledger.StatusCompleted {
		t.Fatalf("small deposit should complete, got %s", res.Status)
	}
	if res.NetworkReference == "" {
		t.Fatalf("missing network reference")
	}
	if got := ledger.Total(led, "alice"); got != 50_000 {
		t.Fatalf("deposit not credited: %d", got)
	}
	if notifier.last.Kind != notification.KindFunding {
		t.Fatalf("expected funding notification, got %q", notifier.last.Kind)
	}
}

func TestDeposit_AtThresholdWaitsForReview(t *testing.T) {
	svc, led, _ := newFixture(t)
	ctx := context.Background()

	res, err := svc.Deposit(ctx, Input{OwnerID: "alice", AccountType: ledger.Checking, Amount: reviewThreshold})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if res.Status != ledger.StatusPending {
		t.Fatalf("threshold deposit should wait for review, got %s", res.Status)
	}
	if got := ledger.Total(led, "alice"); got != 0 {
		t.Fatalf("pending deposit credited early: %d", got)
	}

	if _, err := led.Approve(ctx, res.EntryID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := ledger.Total(led, "alice"); got != reviewThreshold {
		t.Fatalf("approved deposit not credited: %d", got)
	}
}

func TestWithdraw_HoldsFundsWhilePending(t *testing.T) {
	svc, led, _ := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(led, "alice", ledger.Checking, 200_000)

	res, err := svc.Withdraw(ctx, Input{OwnerID: "alice", AccountType: ledger.Checking, Amount: 150_000})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if res.Status != ledger.StatusPending {
		t.Fatalf("large withdrawal should wait for review, got %s", res.Status)
	}
	if got := ledger.Total(led, "alice"); got != 50_000 {
		t.Fatalf("pending withdrawal must hold funds: %d", got)
	}

	if _, err := led.Reject(ctx, res.EntryID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := ledger.Total(led, "alice"); got != 200_000 {
		t.Fatalf("rejected withdrawal must refund: %d", got)
	}
}

func TestWithdraw_SmallAmountCompletes(t *testing.T) {
	svc, led, _ := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(led, "alice", ledger.Checking, 10_000)

	res, err := svc.Withdraw(ctx, Input{OwnerID: "alice", AccountType: ledger.Checking, Amount: 4_000})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if res.Status != ledger.StatusCompleted {
		t.Fatalf("small withdrawal should complete, got %s", res.Status)
	}
	if got := ledger.Total(led, "alice"); got != 6_000 {
		t.Fatalf("expected total 6000, got %d", got)
	}
}

func TestFunding_Validation(t *testing.T) {
	svc, led, _ := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(led, "alice", ledger.Checking, 1_000)

	if _, err := svc.Deposit(ctx, Input{OwnerID: "alice", AccountType: ledger.Checking, Amount: 0}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := svc.Withdraw(ctx, Input{OwnerID: "alice", AccountType: ledger.Checking, Amount: 5_000}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := svc.Deposit(ctx, Input{OwnerID: "alice", AccountType: ledger.Savings, Amount: 100}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found for missing account, got %v", err)
	}
}

func TestFunding_DuplicateClientTxID(t *testing.T) {
	svc, led, _ := newFixture(t)
	ctx := context.Background()

	in := Input{OwnerID: "alice", AccountType: ledger.Checking, Amount: 3_000, ClientTxID: "dep-dup"}
	if _, err := svc.Deposit(ctx, in); err != nil {
		t.Fatalf("first deposit failed: %v", err)
	}
	if _, err := svc.Deposit(ctx, in); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if got := ledger.Total(led, "alice"); got != 3_000 {
		t.Fatalf("duplicate must not credit twice: %d", got)
	}
}
