package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func openCustomer(t *testing.T, l Ledger, ownerID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := l.OpenAccount(ctx, ownerID, Checking); err != nil {
		t.Fatalf("open checking: %v", err)
	}
	if _, err := l.OpenAccount(ctx, ownerID, Savings); err != nil {
		t.Fatalf("open savings: %v", err)
	}
}

func TestInternalTransfer_MovesFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	SeedBalance(l, "alice", Checking, 10_000)

	res, err := l.InternalTransfer(ctx, InternalTransferInput{
		OwnerID: "alice", From: Checking, To: Savings, Amount: 4_000, ClientTxID: "tx-1",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if res.FromBalance != 6_000 {
		t.Fatalf("expected from balance 6000, got %d", res.FromBalance)
	}
	if res.ToBalance != 4_000 {
		t.Fatalf("expected to balance 4000, got %d", res.ToBalance)
	}
	if res.Debit.Amount != -4_000 || res.Credit.Amount != 4_000 {
		t.Fatalf("unexpected leg amounts: %d / %d", res.Debit.Amount, res.Credit.Amount)
	}
	if res.Debit.Reference != res.Credit.Reference {
		t.Fatalf("legs do not share a reference")
	}
	if got := Total(l, "alice"); got != 10_000 {
		t.Fatalf("owner total changed by internal transfer: %d", got)
	}
}

func TestInternalTransfer_Validation(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	SeedBalance(l, "alice", Checking, 1_000)

	if _, err := l.InternalTransfer(ctx, InternalTransferInput{OwnerID: "alice", From: Checking, To: Savings, Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.InternalTransfer(ctx, InternalTransferInput{OwnerID: "alice", From: Checking, To: Checking, Amount: 100}); !errors.Is(err, ErrSameAccount) {
		t.Fatalf("expected same account error, got %v", err)
	}
	if _, err := l.InternalTransfer(ctx, InternalTransferInput{OwnerID: "alice", From: Checking, To: Savings, Amount: 5_000}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	// Failed attempts leave no trace.
	entries, err := l.EntriesFor(ctx, "alice")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries after failed transfers, got %d", len(entries))
	}
}

func TestInternalTransfer_DuplicateClientTxID(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	SeedBalance(l, "alice", Checking, 10_000)

	in := InternalTransferInput{OwnerID: "alice", From: Checking, To: Savings, Amount: 1_500, ClientTxID: "dup"}
	first, err := l.InternalTransfer(ctx, in)
	if err != nil {
		t.Fatalf("initial transfer failed: %v", err)
	}

	replay, err := l.InternalTransfer(ctx, in)
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if replay.Reference != first.Reference {
		t.Fatalf("replay returned a different posting: %s vs %s", replay.Reference, first.Reference)
	}
	if replay.FromBalance != 8_500 {
		t.Fatalf("duplicate must not move funds twice, balance %d", replay.FromBalance)
	}
}

func TestExternalTransfer_HoldsUntilApproved(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	openCustomer(t, l, "bob")
	SeedBalance(l, "alice", Checking, 50_000)

	res, err := l.ExternalTransfer(ctx, ExternalTransferInput{
		SenderID: "alice", From: Checking, RecipientID: "bob", Amount: 20_000, ClientTxID: "ext-1",
	})
	if err != nil {
		t.Fatalf("external transfer failed: %v", err)
	}

	// Sender funds held immediately, recipient untouched.
	if res.FromBalance != 30_000 {
		t.Fatalf("expected sender balance 30000, got %d", res.FromBalance)
	}
	if got := Total(l, "bob"); got != 0 {
		t.Fatalf("recipient credited before approval: %d", got)
	}
	if res.Debit.Status != StatusPending || res.Credit.Status != StatusPending {
		t.Fatalf("expected both legs pending, got %s / %s", res.Debit.Status, res.Credit.Status)
	}

	// Approving the credit leg releases the funds to the recipient.
	if _, err := l.Approve(ctx, res.Credit.ID); err != nil {
		t.Fatalf("approve credit: %v", err)
	}
	if got := Total(l, "bob"); got != 20_000 {
		t.Fatalf("expected recipient total 20000 after approval, got %d", got)
	}

	// Approving the held debit leg completes it without moving funds again.
	if _, err := l.Approve(ctx, res.Debit.ID); err != nil {
		t.Fatalf("approve debit: %v", err)
	}
	if got := Total(l, "alice"); got != 30_000 {
		t.Fatalf("expected sender total 30000 after approval, got %d", got)
	}
}

func TestExternalTransfer_RejectRefundsSender(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	openCustomer(t, l, "bob")
	SeedBalance(l, "alice", Checking, 50_000)

	res, err := l.ExternalTransfer(ctx, ExternalTransferInput{
		SenderID: "alice", From: Checking, RecipientID: "bob", Amount: 20_000, ClientTxID: "ext-2",
	})
	if err != nil {
		t.Fatalf("external transfer failed: %v", err)
	}

	if _, err := l.Reject(ctx, res.Credit.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// Held debit refunded, recipient never credited, both legs rejected.
	if got := Total(l, "alice"); got != 50_000 {
		t.Fatalf("expected sender refunded to 50000, got %d", got)
	}
	if got := Total(l, "bob"); got != 0 {
		t.Fatalf("recipient credited on reject: %d", got)
	}
	debit, err := l.EntryByID(ctx, res.Debit.ID)
	if err != nil {
		t.Fatalf("entry lookup: %v", err)
	}
	if debit.Status != StatusRejected {
		t.Fatalf("expected paired debit rejected, got %s", debit.Status)
	}

	// A decided entry cannot be decided again.
	if _, err := l.Approve(ctx, res.Credit.ID); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected not pending on approve, got %v", err)
	}
	if _, err := l.Reject(ctx, res.Debit.ID); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected not pending on reject, got %v", err)
	}
}

func TestPostFunding_WithdrawalHeldWhilePending(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	SeedBalance(l, "alice", Checking, 200_000)

	entry, err := l.PostFunding(ctx, FundingInput{
		OwnerID: "alice", AccountType: Checking, Amount: 150_000,
		Kind: KindWithdrawal, Status: StatusPending, ClientTxID: "wd-1",
	})
	if err != nil {
		t.Fatalf("withdrawal failed: %v", err)
	}
	if got := Total(l, "alice"); got != 50_000 {
		t.Fatalf("pending withdrawal must hold funds, total %d", got)
	}

	if _, err := l.Reject(ctx, entry.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := Total(l, "alice"); got != 200_000 {
		t.Fatalf("rejected withdrawal must refund, total %d", got)
	}
}

func TestPostFunding_DepositDeferredWhilePending(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")

	entry, err := l.PostFunding(ctx, FundingInput{
		OwnerID: "alice", AccountType: Checking, Amount: 150_000,
		Kind: KindDeposit, Status: StatusPending, ClientTxID: "dep-1",
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if got := Total(l, "alice"); got != 0 {
		t.Fatalf("pending deposit must not credit, total %d", got)
	}

	if _, err := l.Approve(ctx, entry.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := Total(l, "alice"); got != 150_000 {
		t.Fatalf("approved deposit must credit, total %d", got)
	}
}

func TestAdminPost_EditRoundTrip(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")

	entry, err := l.AdminPost(ctx, AdminPostInput{OwnerID: "alice", AccountType: Checking, Amount: 10_000, Description: "correction"})
	if err != nil {
		t.Fatalf("admin post: %v", err)
	}
	if got := Total(l, "alice"); got != 10_000 {
		t.Fatalf("expected total 10000, got %d", got)
	}

	// Move the entry to savings with a new amount; the old effect reverses.
	amended, err := l.AmendEntry(ctx, entry.ID, 25_000, Savings)
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if amended.Amount != 25_000 || amended.AccountType != Savings {
		t.Fatalf("amend did not rewrite entry: %+v", amended)
	}
	checking, err := l.AccountFor(ctx, "alice", Checking)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if checking.Balance != 0 {
		t.Fatalf("old account keeps stale delta: %d", checking.Balance)
	}
	if got := Total(l, "alice"); got != 25_000 {
		t.Fatalf("expected total 25000 after amend, got %d", got)
	}

	// Removing the entry reverses everything.
	if err := l.RemoveEntry(ctx, entry.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := Total(l, "alice"); got != 0 {
		t.Fatalf("expected total 0 after remove, got %d", got)
	}
	if _, err := l.EntryByID(ctx, entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected entry gone, got %v", err)
	}
}

func TestRemoveEntry_AllowsClientTxIDReuse(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	SeedBalance(l, "alice", Checking, 10_000)

	in := DebitInput{OwnerID: "alice", AccountType: Checking, Amount: 3_000, Kind: KindBillPayment, ClientTxID: "bill-1"}
	entry, err := l.PostDebit(ctx, in)
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if err := l.RemoveEntry(ctx, entry.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// With the entry gone its client transaction id is free again; a retry
	// posts a fresh debit instead of replaying the deleted one.
	replayed, err := l.PostDebit(ctx, in)
	if err != nil {
		t.Fatalf("debit after remove: %v", err)
	}
	if replayed.ID == entry.ID {
		t.Fatalf("replay resurrected the removed entry")
	}
	if got := Total(l, "alice"); got != 7_000 {
		t.Fatalf("expected total 7000, got %d", got)
	}
}

func TestAmendEntry_KeepsClientTxIDIndex(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	SeedBalance(l, "alice", Checking, 10_000)

	in := InternalTransferInput{OwnerID: "alice", From: Checking, To: Savings, Amount: 2_000, ClientTxID: "amend-dup"}
	res, err := l.InternalTransfer(ctx, in)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := l.AmendEntry(ctx, res.Debit.ID, -1_000, Checking); err != nil {
		t.Fatalf("amend: %v", err)
	}

	// The amended debit still dedupes a retry of the original request.
	if _, err := l.InternalTransfer(ctx, in); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate after amend, got %v", err)
	}
}

func TestSetBalances_OverwritesAndResyncs(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	SeedBalance(l, "alice", Checking, 1)

	total, err := l.SetBalances(ctx, "alice", 7_500, 2_500)
	if err != nil {
		t.Fatalf("set balances: %v", err)
	}
	if total != 10_000 {
		t.Fatalf("expected total 10000, got %d", total)
	}
	if got := Total(l, "alice"); got != 10_000 {
		t.Fatalf("denormalized total out of sync: %d", got)
	}
}

func TestFindByNumber(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	acct, err := l.OpenAccount(ctx, "alice", Checking)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	found, err := l.FindByNumber(ctx, acct.Number, RoutingNumber)
	if err != nil {
		t.Fatalf("find by number: %v", err)
	}
	if found.OwnerID != "alice" {
		t.Fatalf("unexpected owner %s", found.OwnerID)
	}
	if _, err := l.FindByNumber(ctx, acct.Number, "999999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for wrong routing, got %v", err)
	}
}

func TestOpenAccount_OnePerType(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	first, err := l.OpenAccount(ctx, "alice", Checking)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	second, err := l.OpenAccount(ctx, "alice", Checking)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second open created a new account")
	}
}

func TestConcurrentTransfers_ConserveFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	openCustomer(t, l, "alice")
	SeedBalance(l, "alice", Checking, 100_000)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := InternalTransferInput{
				OwnerID: "alice", From: Checking, To: Savings,
				Amount: 500, ClientTxID: fmt.Sprintf("tx-%d", i),
			}
			if _, err := l.InternalTransfer(ctx, in); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := Total(l, "alice"); got != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", got)
	}
	savings, err := l.AccountFor(ctx, "alice", Savings)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if savings.Balance != workers*500 {
		t.Fatalf("expected savings %d, got %d", workers*500, savings.Balance)
	}
}
