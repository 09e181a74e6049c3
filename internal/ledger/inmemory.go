package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu       sync.Mutex
	accounts map[string]map[AccountType]*Account
	byNumber map[string]*Account
	entries  map[string]*Entry
	order    []string
	dupes    map[string]string
	totals   map[string]int64
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and development mode. One mutex spans each whole operation, so the
// funds check and the mutation are atomic with respect to each other.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		accounts: make(map[string]map[AccountType]*Account),
		byNumber: make(map[string]*Account),
		entries:  make(map[string]*Entry),
		dupes:    make(map[string]string),
		totals:   make(map[string]int64),
	}
}

func dupeKey(kind Kind, clientTxID, leg string) string {
	return string(kind) + ":" + clientTxID + ":" + leg
}

func (l *inMemoryLedger) OpenAccount(_ context.Context, ownerID string, t AccountType) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if byType, ok := l.accounts[ownerID]; ok {
		if acct, ok := byType[t]; ok {
			return *acct, nil
		}
	} else {
		l.accounts[ownerID] = make(map[AccountType]*Account)
	}

	acct := &Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Type:      t,
		Number:    NewAccountNumber(),
		Routing:   RoutingNumber,
		CreatedAt: time.Now().UTC(),
	}
	l.accounts[ownerID][t] = acct
	l.byNumber[acct.Number] = acct
	l.syncTotalLocked(ownerID)
	return *acct, nil
}

func (l *inMemoryLedger) AccountFor(_ context.Context, ownerID string, t AccountType) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := l.accountLocked(ownerID, t)
	if err != nil {
		return Account{}, err
	}
	return *acct, nil
}

func (l *inMemoryLedger) AccountsFor(_ context.Context, ownerID string) ([]Account, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byType, ok := l.accounts[ownerID]
	if !ok {
		return nil, 0, ErrNotFound
	}
	accounts := make([]Account, 0, len(byType))
	for _, acct := range byType {
		accounts = append(accounts, *acct)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Type < accounts[j].Type })
	return accounts, l.totals[ownerID], nil
}

func (l *inMemoryLedger) FindByNumber(_ context.Context, number, routing string) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.byNumber[number]
	if !ok || acct.Routing != routing {
		return Account{}, ErrNotFound
	}
	return *acct, nil
}

func (l *inMemoryLedger) InternalTransfer(_ context.Context, in InternalTransferInput) (TransferResult, error) {
	if in.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if in.From == in.To {
		return TransferResult{}, ErrSameAccount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if in.ClientTxID != "" {
		if id, ok := l.dupes[dupeKey(KindInternal, in.ClientTxID, legDebit)]; ok {
			res, err := l.transferResultLocked(l.entries[id].Reference)
			if err != nil {
				return TransferResult{}, err
			}
			return res, ErrDuplicateTransaction
		}
	}

	from, err := l.accountLocked(in.OwnerID, in.From)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := l.accountLocked(in.OwnerID, in.To)
	if err != nil {
		return TransferResult{}, err
	}
	if from.Balance < in.Amount {
		return TransferResult{}, fmt.Errorf("%w: available %d", ErrInsufficientFunds, from.Balance)
	}

	now := time.Now().UTC()
	ref := NewReference()
	debit := Entry{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		AccountType: in.From,
		Amount:      -in.Amount,
		Status:      StatusCompleted,
		Kind:        KindInternal,
		Reference:   ref,
		ClientTxID:  in.ClientTxID,
		Description: fmt.Sprintf("Transfer to %s", in.To),
		Note:        in.Note,
		PostedAt:    now,
	}
	credit := Entry{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		AccountType: in.To,
		Amount:      in.Amount,
		Status:      StatusCompleted,
		Kind:        KindInternal,
		Reference:   ref,
		ClientTxID:  in.ClientTxID,
		Description: fmt.Sprintf("Transfer from %s", in.From),
		Note:        in.Note,
		PostedAt:    now,
	}
	l.insertLocked(debit)
	l.insertLocked(credit)

	from.Balance -= in.Amount
	to.Balance += in.Amount
	l.syncTotalLocked(in.OwnerID)

	return TransferResult{Reference: ref, Debit: debit, Credit: credit, FromBalance: from.Balance, ToBalance: to.Balance}, nil
}

func (l *inMemoryLedger) ExternalTransfer(_ context.Context, in ExternalTransferInput) (TransferResult, error) {
	if in.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if in.ClientTxID != "" {
		if id, ok := l.dupes[dupeKey(KindExternal, in.ClientTxID, legDebit)]; ok {
			res, err := l.transferResultLocked(l.entries[id].Reference)
			if err != nil {
				return TransferResult{}, err
			}
			return res, ErrDuplicateTransaction
		}
	}

	from, err := l.accountLocked(in.SenderID, in.From)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := l.accountLocked(in.RecipientID, Checking)
	if err != nil {
		return TransferResult{}, err
	}
	if from.Balance < in.Amount {
		return TransferResult{}, fmt.Errorf("%w: available %d", ErrInsufficientFunds, from.Balance)
	}

	now := time.Now().UTC()
	ref := NewReference()
	debit := Entry{
		ID:           uuid.NewString(),
		OwnerID:      in.SenderID,
		AccountType:  in.From,
		Amount:       -in.Amount,
		Status:       StatusPending,
		Kind:         KindExternal,
		Reference:    ref,
		ClientTxID:   in.ClientTxID,
		Counterparty: in.Counterparty,
		Description:  "External transfer",
		Note:         in.Note,
		PostedAt:     now,
	}
	credit := Entry{
		ID:          uuid.NewString(),
		OwnerID:     in.RecipientID,
		AccountType: Checking,
		Amount:      in.Amount,
		Status:      StatusPending,
		Kind:        KindExternal,
		Reference:   ref,
		ClientTxID:  in.ClientTxID,
		Counterparty: Counterparty{
			AccountNumber: from.Number,
			RoutingNumber: RoutingNumber,
		},
		Description: "Incoming external transfer",
		Note:        in.Note,
		PostedAt:    now,
	}
	l.insertLocked(debit)
	l.insertLocked(credit)

	// Sender funds move to in-flight immediately; the recipient credit waits
	// for review.
	from.Balance -= in.Amount
	l.syncTotalLocked(in.SenderID)

	return TransferResult{Reference: ref, Debit: debit, Credit: credit, FromBalance: from.Balance, ToBalance: to.Balance}, nil
}

func (l *inMemoryLedger) PostDebit(_ context.Context, in DebitInput) (Entry, error) {
	if in.Amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if in.ClientTxID != "" {
		if id, ok := l.dupes[dupeKey(in.Kind, in.ClientTxID, legSingle)]; ok {
			return *l.entries[id], ErrDuplicateTransaction
		}
	}

	acct, err := l.accountLocked(in.OwnerID, in.AccountType)
	if err != nil {
		return Entry{}, err
	}
	if acct.Balance < in.Amount {
		return Entry{}, fmt.Errorf("%w: available %d", ErrInsufficientFunds, acct.Balance)
	}

	entry := Entry{
		ID:           uuid.NewString(),
		OwnerID:      in.OwnerID,
		AccountType:  in.AccountType,
		Amount:       -in.Amount,
		Status:       StatusCompleted,
		Kind:         in.Kind,
		Reference:    NewReference(),
		ClientTxID:   in.ClientTxID,
		Counterparty: in.Counterparty,
		Description:  in.Description,
		Note:         in.Note,
		PostedAt:     time.Now().UTC(),
	}
	l.insertLocked(entry)
	acct.Balance -= in.Amount
	l.syncTotalLocked(in.OwnerID)
	return entry, nil
}

func (l *inMemoryLedger) PostFunding(_ context.Context, in FundingInput) (Entry, error) {
	if in.Amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	if in.Status != StatusPending && in.Status != StatusCompleted {
		return Entry{}, fmt.Errorf("funding status must be pending or completed")
	}

	signed := in.Amount
	if in.Kind == KindWithdrawal {
		signed = -in.Amount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if in.ClientTxID != "" {
		if id, ok := l.dupes[dupeKey(in.Kind, in.ClientTxID, legSingle)]; ok {
			return *l.entries[id], ErrDuplicateTransaction
		}
	}

	acct, err := l.accountLocked(in.OwnerID, in.AccountType)
	if err != nil {
		return Entry{}, err
	}
	if signed < 0 && acct.Balance < in.Amount {
		return Entry{}, fmt.Errorf("%w: available %d", ErrInsufficientFunds, acct.Balance)
	}

	entry := Entry{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		AccountType: in.AccountType,
		Amount:      signed,
		Status:      in.Status,
		Kind:        in.Kind,
		Reference:   NewReference(),
		ClientTxID:  in.ClientTxID,
		Description: in.Description,
		Note:        in.Note,
		PostedAt:    time.Now().UTC(),
	}
	l.insertLocked(entry)
	if delta := appliedDelta(in.Status, signed); delta != 0 {
		acct.Balance += delta
		l.syncTotalLocked(in.OwnerID)
	}
	return entry, nil
}

func (l *inMemoryLedger) Approve(_ context.Context, entryID string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[entryID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if entry.Status != StatusPending {
		return Entry{}, ErrNotPending
	}

	if entry.Amount > 0 {
		acct, err := l.accountLocked(entry.OwnerID, entry.AccountType)
		if err != nil {
			return Entry{}, err
		}
		acct.Balance += entry.Amount
		l.syncTotalLocked(entry.OwnerID)
	}
	entry.Status = StatusCompleted
	return *entry, nil
}

func (l *inMemoryLedger) Reject(_ context.Context, entryID string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[entryID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if entry.Status != StatusPending {
		return Entry{}, ErrNotPending
	}

	if err := l.rejectLegLocked(entry); err != nil {
		return Entry{}, err
	}
	for _, id := range l.order {
		pair := l.entries[id]
		if pair.Reference == entry.Reference && pair.ID != entry.ID && pair.Status == StatusPending {
			if err := l.rejectLegLocked(pair); err != nil {
				return Entry{}, err
			}
		}
	}
	return *entry, nil
}

func (l *inMemoryLedger) rejectLegLocked(entry *Entry) error {
	if entry.Amount >= 0 {
		entry.Status = StatusRejected
		return nil
	}
	acct, err := l.accountLocked(entry.OwnerID, entry.AccountType)
	if err != nil {
		return err
	}
	acct.Balance -= entry.Amount
	l.syncTotalLocked(entry.OwnerID)
	entry.Status = StatusRejected
	return nil
}

func (l *inMemoryLedger) AdminPost(_ context.Context, in AdminPostInput) (Entry, error) {
	if in.Amount == 0 {
		return Entry{}, ErrInvalidAmount
	}
	postedAt := in.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acct, err := l.accountLocked(in.OwnerID, in.AccountType)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		AccountType: in.AccountType,
		Amount:      in.Amount,
		Status:      StatusCompleted,
		Kind:        KindAdminAdjustment,
		Reference:   NewReference(),
		Description: in.Description,
		Note:        in.Note,
		PostedAt:    postedAt,
	}
	l.insertLocked(entry)
	acct.Balance += in.Amount
	l.syncTotalLocked(in.OwnerID)
	return entry, nil
}

func (l *inMemoryLedger) AmendEntry(_ context.Context, entryID string, newAmount int64, newType AccountType) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[entryID]
	if !ok {
		return Entry{}, ErrNotFound
	}

	oldAcct, err := l.accountLocked(entry.OwnerID, entry.AccountType)
	if err != nil {
		return Entry{}, err
	}
	newAcct, err := l.accountLocked(entry.OwnerID, newType)
	if err != nil {
		return Entry{}, err
	}

	oldAcct.Balance -= appliedDelta(entry.Status, entry.Amount)
	newAcct.Balance += appliedDelta(entry.Status, newAmount)
	// An amend can flip a transfer leg's sign, which changes its leg label;
	// rekey the client-transaction index to match.
	if entry.ClientTxID != "" {
		delete(l.dupes, dupeKey(entry.Kind, entry.ClientTxID, legFor(entry.Kind, entry.Amount)))
	}
	entry.Amount = newAmount
	entry.AccountType = newType
	if entry.ClientTxID != "" {
		l.dupes[dupeKey(entry.Kind, entry.ClientTxID, legFor(entry.Kind, entry.Amount))] = entry.ID
	}
	l.syncTotalLocked(entry.OwnerID)
	return *entry, nil
}

func (l *inMemoryLedger) RemoveEntry(_ context.Context, entryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[entryID]
	if !ok {
		return ErrNotFound
	}
	if applied := appliedDelta(entry.Status, entry.Amount); applied != 0 {
		acct, err := l.accountLocked(entry.OwnerID, entry.AccountType)
		if err != nil {
			return err
		}
		acct.Balance -= applied
	}
	if entry.ClientTxID != "" {
		delete(l.dupes, dupeKey(entry.Kind, entry.ClientTxID, legFor(entry.Kind, entry.Amount)))
	}
	delete(l.entries, entryID)
	for i, id := range l.order {
		if id == entryID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.syncTotalLocked(entry.OwnerID)
	return nil
}

func (l *inMemoryLedger) SetBalances(_ context.Context, ownerID string, checking, savings int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chk, err := l.accountLocked(ownerID, Checking)
	if err != nil {
		return 0, err
	}
	sav, err := l.accountLocked(ownerID, Savings)
	if err != nil {
		return 0, err
	}
	chk.Balance = checking
	sav.Balance = savings
	l.syncTotalLocked(ownerID)
	return l.totals[ownerID], nil
}

func (l *inMemoryLedger) EntriesFor(_ context.Context, ownerID string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []Entry
	for i := len(l.order) - 1; i >= 0; i-- {
		if e := l.entries[l.order[i]]; e.OwnerID == ownerID {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (l *inMemoryLedger) PendingEntries(_ context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []Entry
	for _, id := range l.order {
		if e := l.entries[id]; e.Status == StatusPending {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (l *inMemoryLedger) EntryByID(_ context.Context, id string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *entry, nil
}

func (l *inMemoryLedger) accountLocked(ownerID string, t AccountType) (*Account, error) {
	byType, ok := l.accounts[ownerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s account for owner %s", ErrNotFound, t, ownerID)
	}
	acct, ok := byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s account for owner %s", ErrNotFound, t, ownerID)
	}
	return acct, nil
}

func (l *inMemoryLedger) insertLocked(e Entry) {
	stored := e
	l.entries[e.ID] = &stored
	l.order = append(l.order, e.ID)
	if e.ClientTxID != "" {
		l.dupes[dupeKey(e.Kind, e.ClientTxID, legFor(e.Kind, e.Amount))] = e.ID
	}
}

func (l *inMemoryLedger) syncTotalLocked(ownerID string) {
	var total int64
	for _, acct := range l.accounts[ownerID] {
		total += acct.Balance
	}
	l.totals[ownerID] = total
}

func (l *inMemoryLedger) transferResultLocked(reference string) (TransferResult, error) {
	res := TransferResult{Reference: reference}
	var found int
	for _, id := range l.order {
		e := l.entries[id]
		if e.Reference != reference {
			continue
		}
		if e.Amount < 0 {
			res.Debit = *e
		} else {
			res.Credit = *e
		}
		found++
	}
	if found != 2 {
		return TransferResult{}, fmt.Errorf("reference %s has %d legs", reference, found)
	}
	if from, err := l.accountLocked(res.Debit.OwnerID, res.Debit.AccountType); err == nil {
		res.FromBalance = from.Balance
	}
	if to, err := l.accountLocked(res.Credit.OwnerID, res.Credit.AccountType); err == nil {
		res.ToBalance = to.Balance
	}
	return res, nil
}
