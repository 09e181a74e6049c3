package identity

import "time"

const (
	// RoleUser is a regular customer.
	RoleUser = "user"
	// RoleAdmin may review pending entries and adjust balances.
	RoleAdmin = "admin"
)

// User represents a registered account holder.
type User struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
	FullName string
}
