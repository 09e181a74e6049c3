package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists accounts and entries in PostgreSQL. Every mutation
// runs in a single transaction with row locks taken in deterministic order, so
// the funds check and the balance write are never separated by a window.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const entryColumns = `id, owner_id, account_type, amount, status, kind, reference,
	client_tx_id, counterparty, description, note, posted_at`

type accountRow struct {
	id      uuid.UUID
	ownerID uuid.UUID
	typ     AccountType
	number  string
	balance int64
}

// OpenAccount provisions an account for the owner, or returns the existing one.
// At most one account per (owner, type) exists; the unique constraint backs this.
func (l *PostgresLedger) OpenAccount(ctx context.Context, ownerID string, t AccountType) (Account, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Account{}, ErrNotFound
	}
	_, err = l.db.Exec(ctx, `INSERT INTO accounts (id, owner_id, account_type, account_number, routing_number, balance)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (owner_id, account_type) DO NOTHING`,
		uuid.New(), owner, t, NewAccountNumber(), RoutingNumber)
	if err != nil {
		return Account{}, err
	}
	return l.AccountFor(ctx, ownerID, t)
}

// AccountFor fetches one account of the owner by type.
func (l *PostgresLedger) AccountFor(ctx context.Context, ownerID string, t AccountType) (Account, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := l.db.QueryRow(ctx, `SELECT id, owner_id, account_type, account_number, routing_number, balance, created_at
		FROM accounts WHERE owner_id = $1 AND account_type = $2`, owner, t)
	return scanAccount(row)
}

// AccountsFor returns all accounts of the owner plus the denormalized total.
func (l *PostgresLedger) AccountsFor(ctx context.Context, ownerID string) ([]Account, int64, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, 0, ErrNotFound
	}
	rows, err := l.db.Query(ctx, `SELECT id, owner_id, account_type, account_number, routing_number, balance, created_at
		FROM accounts WHERE owner_id = $1 ORDER BY account_type`, owner)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := l.db.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, owner).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	return accounts, total, nil
}

// FindByNumber resolves an account by number and routing number.
func (l *PostgresLedger) FindByNumber(ctx context.Context, number, routing string) (Account, error) {
	row := l.db.QueryRow(ctx, `SELECT id, owner_id, account_type, account_number, routing_number, balance, created_at
		FROM accounts WHERE account_number = $1 AND routing_number = $2`, number, routing)
	return scanAccount(row)
}

// InternalTransfer posts two completed legs between the owner's accounts.
func (l *PostgresLedger) InternalTransfer(ctx context.Context, in InternalTransferInput) (TransferResult, error) {
	if in.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if in.From == in.To {
		return TransferResult{}, ErrSameAccount
	}
	owner, err := uuid.Parse(in.OwnerID)
	if err != nil {
		return TransferResult{}, ErrNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if in.ClientTxID != "" {
		dup, found, err := findDuplicate(ctx, tx, KindInternal, in.ClientTxID, legDebit)
		if err != nil {
			return TransferResult{}, err
		}
		if found {
			res, err := transferResultFor(ctx, tx, dup.Reference)
			if err != nil {
				return TransferResult{}, err
			}
			return res, ErrDuplicateTransaction
		}
	}

	// Lock both accounts in account-type order to avoid deadlocks.
	first, second := in.From, in.To
	if second < first {
		first, second = second, first
	}
	a1, err := lockAccount(ctx, tx, owner, first)
	if err != nil {
		return TransferResult{}, err
	}
	a2, err := lockAccount(ctx, tx, owner, second)
	if err != nil {
		return TransferResult{}, err
	}
	from, to := a1, a2
	if from.typ != in.From {
		from, to = a2, a1
	}

	if from.balance < in.Amount {
		return TransferResult{}, fmt.Errorf("%w: available %d", ErrInsufficientFunds, from.balance)
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
	if err := insertEntry(ctx, tx, debit); err != nil {
		return TransferResult{}, err
	}
	if err := insertEntry(ctx, tx, credit); err != nil {
		return TransferResult{}, err
	}

	fromBal, err := addToAccount(ctx, tx, from.id, -in.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	toBal, err := addToAccount(ctx, tx, to.id, in.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	if _, err := syncOwnerTotal(ctx, tx, owner); err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}
	return TransferResult{Reference: ref, Debit: debit, Credit: credit, FromBalance: fromBal, ToBalance: toBal}, nil
}

// ExternalTransfer debits the sender immediately and records both legs as
// pending. The recipient credit is applied only by Approve; between submission
// and review the funds are held in flight.
func (l *PostgresLedger) ExternalTransfer(ctx context.Context, in ExternalTransferInput) (TransferResult, error) {
	if in.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	sender, err := uuid.Parse(in.SenderID)
	if err != nil {
		return TransferResult{}, ErrNotFound
	}
	recipient, err := uuid.Parse(in.RecipientID)
	if err != nil {
		return TransferResult{}, ErrNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if in.ClientTxID != "" {
		dup, found, err := findDuplicate(ctx, tx, KindExternal, in.ClientTxID, legDebit)
		if err != nil {
			return TransferResult{}, err
		}
		if found {
			res, err := transferResultFor(ctx, tx, dup.Reference)
			if err != nil {
				return TransferResult{}, err
			}
			return res, ErrDuplicateTransaction
		}
	}

	// Lock in owner-id order to avoid deadlocks between crossing transfers.
	type lockSpec struct {
		owner uuid.UUID
		typ   AccountType
	}
	locks := []lockSpec{{sender, in.From}, {recipient, Checking}}
	if locks[1].owner.String() < locks[0].owner.String() {
		locks[0], locks[1] = locks[1], locks[0]
	}
	locked := make(map[lockSpec]accountRow, 2)
	for _, spec := range locks {
		row, err := lockAccount(ctx, tx, spec.owner, spec.typ)
		if err != nil {
			return TransferResult{}, err
		}
		locked[spec] = row
	}
	fromAcct := locked[lockSpec{sender, in.From}]
	toAcct := locked[lockSpec{recipient, Checking}]

	if fromAcct.balance < in.Amount {
		return TransferResult{}, fmt.Errorf("%w: available %d", ErrInsufficientFunds, fromAcct.balance)
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
			AccountNumber: fromAcct.number,
			RoutingNumber: RoutingNumber,
		},
		Description: "Incoming external transfer",
		Note:        in.Note,
		PostedAt:    now,
	}
	if err := insertEntry(ctx, tx, debit); err != nil {
		return TransferResult{}, err
	}
	if err := insertEntry(ctx, tx, credit); err != nil {
		return TransferResult{}, err
	}

	fromBal, err := addToAccount(ctx, tx, fromAcct.id, -in.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	if _, err := syncOwnerTotal(ctx, tx, sender); err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}
	return TransferResult{Reference: ref, Debit: debit, Credit: credit, FromBalance: fromBal, ToBalance: toAcct.balance}, nil
}

// PostDebit records one completed debit leg, e.g. a bill payment.
func (l *PostgresLedger) PostDebit(ctx context.Context, in DebitInput) (Entry, error) {
	if in.Amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	owner, err := uuid.Parse(in.OwnerID)
	if err != nil {
		return Entry{}, ErrNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if in.ClientTxID != "" {
		dup, found, err := findDuplicate(ctx, tx, in.Kind, in.ClientTxID, legSingle)
		if err != nil {
			return Entry{}, err
		}
		if found {
			return dup, ErrDuplicateTransaction
		}
	}

	acct, err := lockAccount(ctx, tx, owner, in.AccountType)
	if err != nil {
		return Entry{}, err
	}
	if acct.balance < in.Amount {
		return Entry{}, fmt.Errorf("%w: available %d", ErrInsufficientFunds, acct.balance)
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
	if err := insertEntry(ctx, tx, entry); err != nil {
		return Entry{}, err
	}
	if _, err := addToAccount(ctx, tx, acct.id, -in.Amount); err != nil {
		return Entry{}, err
	}
	if _, err := syncOwnerTotal(ctx, tx, owner); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// PostFunding records money entering or leaving the bank. Withdrawal debits
// are held immediately even while pending; deposit credits apply only when
// posted as completed.
func (l *PostgresLedger) PostFunding(ctx context.Context, in FundingInput) (Entry, error) {
	if in.Amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	if in.Status != StatusPending && in.Status != StatusCompleted {
		return Entry{}, fmt.Errorf("funding status must be pending or completed")
	}
	owner, err := uuid.Parse(in.OwnerID)
	if err != nil {
		return Entry{}, ErrNotFound
	}

	signed := in.Amount
	if in.Kind == KindWithdrawal {
		signed = -in.Amount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if in.ClientTxID != "" {
		dup, found, err := findDuplicate(ctx, tx, in.Kind, in.ClientTxID, legSingle)
		if err != nil {
			return Entry{}, err
		}
		if found {
			return dup, ErrDuplicateTransaction
		}
	}

	acct, err := lockAccount(ctx, tx, owner, in.AccountType)
	if err != nil {
		return Entry{}, err
	}
	if signed < 0 && acct.balance < in.Amount {
		return Entry{}, fmt.Errorf("%w: available %d", ErrInsufficientFunds, acct.balance)
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
	if err := insertEntry(ctx, tx, entry); err != nil {
		return Entry{}, err
	}
	if delta := appliedDelta(in.Status, signed); delta != 0 {
		if _, err := addToAccount(ctx, tx, acct.id, delta); err != nil {
			return Entry{}, err
		}
		if _, err := syncOwnerTotal(ctx, tx, owner); err != nil {
			return Entry{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Approve completes a pending entry. Credit legs are applied to the balance
// here; debit legs were already held at submission, so only the status flips.
func (l *PostgresLedger) Approve(ctx context.Context, entryID string) (Entry, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	entry, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPending {
		return Entry{}, ErrNotPending
	}

	if _, err := tx.Exec(ctx, `UPDATE entries SET status = $1 WHERE id = $2`, StatusCompleted, entry.ID); err != nil {
		return Entry{}, err
	}
	if entry.Amount > 0 {
		owner, err := uuid.Parse(entry.OwnerID)
		if err != nil {
			return Entry{}, ErrNotFound
		}
		acct, err := lockAccount(ctx, tx, owner, entry.AccountType)
		if err != nil {
			return Entry{}, err
		}
		if _, err := addToAccount(ctx, tx, acct.id, entry.Amount); err != nil {
			return Entry{}, err
		}
		if _, err := syncOwnerTotal(ctx, tx, owner); err != nil {
			return Entry{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	entry.Status = StatusCompleted
	return entry, nil
}

// Reject cancels a pending entry and any pending legs sharing its reference.
// Held debits are refunded so a rejected transfer leaves no money in limbo.
func (l *PostgresLedger) Reject(ctx context.Context, entryID string) (Entry, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	entry, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPending {
		return Entry{}, ErrNotPending
	}

	if err := rejectLeg(ctx, tx, entry); err != nil {
		return Entry{}, err
	}

	rows, err := tx.Query(ctx, `SELECT `+entryColumns+` FROM entries
		WHERE reference = $1 AND id <> $2 AND status = $3 FOR UPDATE`,
		entry.Reference, entry.ID, StatusPending)
	if err != nil {
		return Entry{}, err
	}
	var pairs []Entry
	for rows.Next() {
		pair, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return Entry{}, err
		}
		pairs = append(pairs, pair)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Entry{}, err
	}
	for _, pair := range pairs {
		if err := rejectLeg(ctx, tx, pair); err != nil {
			return Entry{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	entry.Status = StatusRejected
	return entry, nil
}

func rejectLeg(ctx context.Context, tx pgx.Tx, entry Entry) error {
	if _, err := tx.Exec(ctx, `UPDATE entries SET status = $1 WHERE id = $2`, StatusRejected, entry.ID); err != nil {
		return err
	}
	if entry.Amount >= 0 {
		return nil
	}
	owner, err := uuid.Parse(entry.OwnerID)
	if err != nil {
		return ErrNotFound
	}
	acct, err := lockAccount(ctx, tx, owner, entry.AccountType)
	if err != nil {
		return err
	}
	if _, err := addToAccount(ctx, tx, acct.id, -entry.Amount); err != nil {
		return err
	}
	_, err = syncOwnerTotal(ctx, tx, owner)
	return err
}

// AdminPost records a completed adjustment with an arbitrary date. No funds
// check applies; administrators may drive a balance negative.
func (l *PostgresLedger) AdminPost(ctx context.Context, in AdminPostInput) (Entry, error) {
	if in.Amount == 0 {
		return Entry{}, ErrInvalidAmount
	}
	owner, err := uuid.Parse(in.OwnerID)
	if err != nil {
		return Entry{}, ErrNotFound
	}
	postedAt := in.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	acct, err := lockAccount(ctx, tx, owner, in.AccountType)
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
	if err := insertEntry(ctx, tx, entry); err != nil {
		return Entry{}, err
	}
	if _, err := addToAccount(ctx, tx, acct.id, in.Amount); err != nil {
		return Entry{}, err
	}
	if _, err := syncOwnerTotal(ctx, tx, owner); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// AmendEntry rewrites an entry's amount and account, reversing the old applied
// effect and applying the new one in a single transaction.
func (l *PostgresLedger) AmendEntry(ctx context.Context, entryID string, newAmount int64, newType AccountType) (Entry, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	entry, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return Entry{}, err
	}
	owner, err := uuid.Parse(entry.OwnerID)
	if err != nil {
		return Entry{}, ErrNotFound
	}

	oldApplied := appliedDelta(entry.Status, entry.Amount)
	newApplied := appliedDelta(entry.Status, newAmount)

	oldAcct, err := lockAccount(ctx, tx, owner, entry.AccountType)
	if err != nil {
		return Entry{}, err
	}
	newAcct := oldAcct
	if newType != entry.AccountType {
		newAcct, err = lockAccount(ctx, tx, owner, newType)
		if err != nil {
			return Entry{}, err
		}
	}

	if oldApplied != 0 {
		if _, err := addToAccount(ctx, tx, oldAcct.id, -oldApplied); err != nil {
			return Entry{}, err
		}
	}
	if newApplied != 0 {
		if _, err := addToAccount(ctx, tx, newAcct.id, newApplied); err != nil {
			return Entry{}, err
		}
	}
	// A sign flip on a transfer leg changes its leg label; keep the
	// client-transaction uniqueness index accurate.
	if _, err := tx.Exec(ctx, `UPDATE entries SET amount = $1, account_type = $2, leg = $3 WHERE id = $4`,
		newAmount, newType, legFor(entry.Kind, newAmount), entry.ID); err != nil {
		return Entry{}, err
	}
	if _, err := syncOwnerTotal(ctx, tx, owner); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	entry.Amount = newAmount
	entry.AccountType = newType
	return entry, nil
}

// RemoveEntry deletes an entry and reverses its applied balance effect.
func (l *PostgresLedger) RemoveEntry(ctx context.Context, entryID string) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	entry, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return err
	}
	owner, err := uuid.Parse(entry.OwnerID)
	if err != nil {
		return ErrNotFound
	}

	if applied := appliedDelta(entry.Status, entry.Amount); applied != 0 {
		acct, err := lockAccount(ctx, tx, owner, entry.AccountType)
		if err != nil {
			return err
		}
		if _, err := addToAccount(ctx, tx, acct.id, -applied); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM entries WHERE id = $1`, entry.ID); err != nil {
		return err
	}
	if _, err := syncOwnerTotal(ctx, tx, owner); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetBalances overwrites both account balances with absolute values.
func (l *PostgresLedger) SetBalances(ctx context.Context, ownerID string, checking, savings int64) (int64, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return 0, ErrNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	chk, err := lockAccount(ctx, tx, owner, Checking)
	if err != nil {
		return 0, err
	}
	sav, err := lockAccount(ctx, tx, owner, Savings)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, checking, chk.id); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, savings, sav.id); err != nil {
		return 0, err
	}
	total, err := syncOwnerTotal(ctx, tx, owner)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return total, nil
}

// EntriesFor lists the owner's entries, newest first.
func (l *PostgresLedger) EntriesFor(ctx context.Context, ownerID string) ([]Entry, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := l.db.Query(ctx, `SELECT `+entryColumns+` FROM entries
		WHERE owner_id = $1 ORDER BY posted_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// PendingEntries lists all pending entries, oldest first, for the review queue.
func (l *PostgresLedger) PendingEntries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT `+entryColumns+` FROM entries
		WHERE status = $1 ORDER BY posted_at`, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// EntryByID fetches one entry.
func (l *PostgresLedger) EntryByID(ctx context.Context, id string) (Entry, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, ErrNotFound
	}
	row := l.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, owner uuid.UUID, t AccountType) (accountRow, error) {
	row := tx.QueryRow(ctx, `SELECT id, owner_id, account_type, account_number, balance
		FROM accounts WHERE owner_id = $1 AND account_type = $2 FOR UPDATE`, owner, t)
	var a accountRow
	if err := row.Scan(&a.id, &a.ownerID, &a.typ, &a.number, &a.balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accountRow{}, fmt.Errorf("%w: %s account for owner %s", ErrNotFound, t, owner)
		}
		return accountRow{}, err
	}
	return a, nil
}

func lockEntry(ctx context.Context, tx pgx.Tx, id string) (Entry, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, ErrNotFound
	}
	row := tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1 FOR UPDATE`, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

func addToAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		delta, accountID).Scan(&balance)
	return balance, err
}

// syncOwnerTotal resyncs the denormalized user total with the sum of account
// balances. Runs as the final step of every mutation so the total never drifts.
func syncOwnerTotal(ctx context.Context, tx pgx.Tx, owner uuid.UUID) (int64, error) {
	var total int64
	err := tx.QueryRow(ctx, `UPDATE users
		SET balance = (SELECT COALESCE(SUM(balance), 0) FROM accounts WHERE owner_id = $1)
		WHERE id = $1 RETURNING balance`, owner).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return total, err
}

func findDuplicate(ctx context.Context, tx pgx.Tx, kind Kind, clientTxID, leg string) (Entry, bool, error) {
	row := tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries
		WHERE kind = $1 AND client_tx_id = $2 AND leg = $3`, kind, clientTxID, leg)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return entry, true, nil
}

func transferResultFor(ctx context.Context, tx pgx.Tx, reference string) (TransferResult, error) {
	rows, err := tx.Query(ctx, `SELECT `+entryColumns+` FROM entries
		WHERE reference = $1 ORDER BY amount`, reference)
	if err != nil {
		return TransferResult{}, err
	}
	defer rows.Close()
	entries, err := collectEntries(rows)
	if err != nil {
		return TransferResult{}, err
	}
	if len(entries) != 2 {
		return TransferResult{}, fmt.Errorf("reference %s has %d legs", reference, len(entries))
	}
	res := TransferResult{Reference: reference, Debit: entries[0], Credit: entries[1]}
	res.FromBalance, err = accountBalance(ctx, tx, res.Debit.OwnerID, res.Debit.AccountType)
	if err != nil {
		return TransferResult{}, err
	}
	res.ToBalance, err = accountBalance(ctx, tx, res.Credit.OwnerID, res.Credit.AccountType)
	if err != nil {
		return TransferResult{}, err
	}
	return res, nil
}

func accountBalance(ctx context.Context, tx pgx.Tx, ownerID string, t AccountType) (int64, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return 0, ErrNotFound
	}
	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE owner_id = $1 AND account_type = $2`,
		owner, t).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

func insertEntry(ctx context.Context, tx pgx.Tx, e Entry) error {
	entryID, err := uuid.Parse(e.ID)
	if err != nil {
		return err
	}
	owner, err := uuid.Parse(e.OwnerID)
	if err != nil {
		return err
	}
	counterparty, err := json.Marshal(e.Counterparty)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO entries
		(id, owner_id, account_type, amount, status, kind, leg, reference, client_tx_id, counterparty, description, note, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entryID, owner, e.AccountType, e.Amount, e.Status, e.Kind, legFor(e.Kind, e.Amount),
		e.Reference, e.ClientTxID, counterparty, e.Description, e.Note, e.PostedAt.UTC())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		a         Account
		id, owner uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &owner, &a.Type, &a.Number, &a.Routing, &a.Balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.ID = id.String()
	a.OwnerID = owner.String()
	a.CreatedAt = createdAt.UTC()
	return a, nil
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e            Entry
		id, owner    uuid.UUID
		counterparty []byte
		postedAt     time.Time
	)
	if err := row.Scan(&id, &owner, &e.AccountType, &e.Amount, &e.Status, &e.Kind, &e.Reference,
		&e.ClientTxID, &counterparty, &e.Description, &e.Note, &postedAt); err != nil {
		return Entry{}, err
	}
	e.ID = id.String()
	e.OwnerID = owner.String()
	e.PostedAt = postedAt.UTC()
	if len(counterparty) > 0 {
		if err := json.Unmarshal(counterparty, &e.Counterparty); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
