package ledger

// SeedBalance is a test helper that sets an account balance directly when
// using the in-memory ledger, keeping the owner total in sync.
func SeedBalance(l Ledger, ownerID string, t AccountType, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if acct, err := mem.accountLocked(ownerID, t); err == nil {
			acct.Balance = amount
			mem.syncTotalLocked(ownerID)
		}
	}
}

// Total is a test helper exposing the denormalized owner total of the
// in-memory ledger.
func Total(l Ledger, ownerID string) int64 {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		return mem.totals[ownerID]
	}
	return 0
}
