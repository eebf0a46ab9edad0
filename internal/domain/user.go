package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. PasswordHash and Salt are hex strings produced by
// the hashing engine. AccountLocked is set when FailedLoginAttempts reaches the
// configured maximum and is cleared only by a successful password reset.
type User struct {
	ID                  uuid.UUID
	Email               string
	FirstName           string
	LastName            string
	PasswordHash        string
	Salt                string
	FailedLoginAttempts int
	AccountLocked       bool
	ResetToken          *string
	ResetTokenExpiry    *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PasswordHistoryEntry records one password ever set for a user, including the
// initial one. Append-only.
type PasswordHistoryEntry struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	PasswordHash string
	Salt         string
	CreatedAt    time.Time
}
