package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAmount occurs when a requested amount is zero or negative.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSameAccount occurs when a transfer names the same account on both sides.
	ErrSameAccount = errors.New("source and destination accounts are the same")

	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotPending occurs when a review decision targets an entry that has
	// already left the pending state.
	ErrNotPending = errors.New("entry is not pending")

	// ErrNotFound occurs when a referenced user, account or entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// AccountType names one of the two accounts every customer holds.
type AccountType string

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
)

// ParseAccountType validates a wire-format account type.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case Checking, Savings:
		return AccountType(s), nil
	default:
		return "", fmt.Errorf("unknown account type %q", s)
	}
}

// Status tracks the settlement state of a ledger entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Kind classifies what produced a ledger entry.
type Kind string

const (
	KindInternal        Kind = "internal"
	KindExternal        Kind = "external"
	KindBillPayment     Kind = "bill_payment"
	KindDeposit         Kind = "deposit"
	KindWithdrawal      Kind = "withdrawal"
	KindAdminAdjustment Kind = "admin_adjustment"
	KindWire            Kind = "wire"
)

// RoutingNumber identifies this bank on external transfers. Single-institution
// deployment, so one constant.
const RoutingNumber = "021000021"

// Leg labels used to keep the two halves of a paired posting distinct under
// the client-transaction uniqueness constraint.
const (
	legDebit  = "debit"
	legCredit = "credit"
	legSingle = "single"
)

// Account is one customer account. A customer holds at most one account per
// AccountType; the stores enforce this structurally.
type Account struct {
	ID        string
	OwnerID   string
	Type      AccountType
	Number    string
	Routing   string
	Balance   int64
	CreatedAt time.Time
}

// Counterparty carries free-form detail about the other side of a posting.
type Counterparty struct {
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
}

// Entry is one signed balance movement on one account. Paired postings share
// a Reference; amounts are minor units, negative for debits.
type Entry struct {
	ID           string
	OwnerID      string
	AccountType  AccountType
	Amount       int64
	Status       Status
	Kind         Kind
	Reference    string
	ClientTxID   string
	Counterparty Counterparty
	Description  string
	Note         string
	PostedAt     time.Time
}

// TransferResult captures the outcome of a two-leg posting.
type TransferResult struct {
	Reference   string
	Debit       Entry
	Credit      Entry
	FromBalance int64
	ToBalance   int64
}

// InternalTransferInput moves funds between two accounts of one owner.
type InternalTransferInput struct {
	OwnerID    string
	From       AccountType
	To         AccountType
	Amount     int64
	Note       string
	ClientTxID string
}

// ExternalTransferInput moves funds to another customer. The sender is debited
// immediately; the recipient credit waits for review.
type ExternalTransferInput struct {
	SenderID     string
	From         AccountType
	RecipientID  string
	Amount       int64
	Counterparty Counterparty
	Note         string
	ClientTxID   string
}

// DebitInput records a single completed debit (bill payments).
type DebitInput struct {
	OwnerID      string
	AccountType  AccountType
	Amount       int64
	Kind         Kind
	Counterparty Counterparty
	Description  string
	Note         string
	ClientTxID   string
}

// FundingInput records money entering or leaving the bank. Withdrawals hold
// the funds immediately even while pending; deposit credits apply only once
// completed.
type FundingInput struct {
	OwnerID     string
	AccountType AccountType
	Amount      int64
	Kind        Kind
	Status      Status
	Description string
	Note        string
	ClientTxID  string
}

// AdminPostInput creates a completed adjustment with an arbitrary date and no
// funds check.
type AdminPostInput struct {
	OwnerID     string
	AccountType AccountType
	Amount      int64
	PostedAt    time.Time
	Description string
	Note        string
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
// Every mutating operation is atomic: either all of its legs and balance
// effects are visible, or none are, and the owner's denormalized total is
// resynced before the operation returns.
type Ledger interface {
	OpenAccount(ctx context.Context, ownerID string, t AccountType) (Account, error)
	AccountsFor(ctx context.Context, ownerID string) ([]Account, int64, error)
	AccountFor(ctx context.Context, ownerID string, t AccountType) (Account, error)
	FindByNumber(ctx context.Context, number, routing string) (Account, error)

	InternalTransfer(ctx context.Context, in InternalTransferInput) (TransferResult, error)
	ExternalTransfer(ctx context.Context, in ExternalTransferInput) (TransferResult, error)
	PostDebit(ctx context.Context, in DebitInput) (Entry, error)
	PostFunding(ctx context.Context, in FundingInput) (Entry, error)

	Approve(ctx context.Context, entryID string) (Entry, error)
	Reject(ctx context.Context, entryID string) (Entry, error)

	AdminPost(ctx context.Context, in AdminPostInput) (Entry, error)
	AmendEntry(ctx context.Context, entryID string, newAmount int64, newType AccountType) (Entry, error)
	RemoveEntry(ctx context.Context, entryID string) error
	SetBalances(ctx context.Context, ownerID string, checking, savings int64) (int64, error)

	EntriesFor(ctx context.Context, ownerID string) ([]Entry, error)
	PendingEntries(ctx context.Context) ([]Entry, error)
	EntryByID(ctx context.Context, id string) (Entry, error)
}

// appliedDelta reports how much of an entry's amount is reflected in its
// account balance. Pending debits are held (already applied); pending credits
// wait for approval; rejected entries contribute nothing.
func appliedDelta(status Status, amount int64) int64 {
	switch status {
	case StatusCompleted:
		return amount
	case StatusPending:
		if amount < 0 {
			return amount
		}
		return 0
	default:
		return 0
	}
}

// NewAccountNumber derives a 12-digit account number from a fresh UUID. The
// stores additionally enforce uniqueness.
func NewAccountNumber() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8])
	return fmt.Sprintf("%012d", n%1_000_000_000_000)
}

// NewReference mints a correlation identifier shared by the legs of one transfer.
func NewReference() string {
	return uuid.NewString()
}

// legFor labels an entry's half of a paired posting by amount sign.
func legFor(kind Kind, amount int64) string {
	switch kind {
	case KindInternal, KindExternal:
		if amount < 0 {
			return legDebit
		}
		return legCredit
	default:
		return legSingle
	}
}
