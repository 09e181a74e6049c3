package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the bootstrap DDL. Statements are idempotent so Migrate can run
// on every deploy.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		password_hash BYTEA NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		account_type TEXT NOT NULL CHECK (account_type IN ('checking', 'savings')),
		account_number TEXT NOT NULL UNIQUE,
		routing_number TEXT NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (owner_id, account_type)
	)`,
	`CREATE TABLE IF NOT EXISTS entries (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		account_type TEXT NOT NULL,
		amount BIGINT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'rejected')),
		kind TEXT NOT NULL,
		leg TEXT NOT NULL DEFAULT 'single',
		reference TEXT NOT NULL,
		client_tx_id TEXT NOT NULL DEFAULT '',
		counterparty JSONB NOT NULL DEFAULT '{}',
		description TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		posted_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS entries_owner_idx ON entries (owner_id, posted_at DESC)`,
	`CREATE INDEX IF NOT EXISTS entries_reference_idx ON entries (reference)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS entries_client_tx_idx
		ON entries (kind, client_tx_id, leg) WHERE client_tx_id <> ''`,
	`CREATE TABLE IF NOT EXISTS bill_payments (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		entry_id UUID NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		payee TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		amount BIGINT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS bill_payments_owner_idx ON bill_payments (owner_id, created_at DESC)`,
}

// Migrate applies the bootstrap schema to the connected database.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
