package billpay

import "time"

// BillPayment is the bill-specific record layered over one ledger entry. The
// linked entry is the balance-bearing source of truth; this row carries payee
// and category detail and is removed with the entry.
type BillPayment struct {
	ID        string
	OwnerID   string
	EntryID   string
	Payee     string
	Category  string
	Amount    int64
	Status    string
	CreatedAt time.Time
}
