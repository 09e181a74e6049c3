package billpay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists bill payment records.
type Repository interface {
	Create(ctx context.Context, bill BillPayment) error
	ListFor(ctx context.Context, ownerID string) ([]BillPayment, error)
}

// PostgresRepository stores bill payments in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a bill payment record.
func (r *PostgresRepository) Create(ctx context.Context, bill BillPayment) error {
	billID, err := uuid.Parse(bill.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(bill.OwnerID)
	if err != nil {
		return err
	}
	entryID, err := uuid.Parse(bill.EntryID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO bill_payments (id, owner_id, entry_id, payee, category, amount, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		billID, ownerID, entryID, bill.Payee, bill.Category, bill.Amount, bill.Status, bill.CreatedAt.UTC())
	return err
}

// ListFor returns the owner's bill payments, newest first.
func (r *PostgresRepository) ListFor(ctx context.Context, ownerID string) ([]BillPayment, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, owner_id, entry_id, payee, category, amount, status, created_at
        FROM bill_payments WHERE owner_id = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []BillPayment
	for rows.Next() {
		var (
			b                  BillPayment
			id, owner, entryID uuid.UUID
			createdAt          time.Time
		)
		if err := rows.Scan(&id, &owner, &entryID, &b.Payee, &b.Category, &b.Amount, &b.Status, &createdAt); err != nil {
			return nil, err
		}
		b.ID = id.String()
		b.OwnerID = owner.String()
		b.EntryID = entryID.String()
		b.CreatedAt = createdAt.UTC()
		bills = append(bills, b)
	}
	return bills, rows.Err()
}
