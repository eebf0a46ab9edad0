package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client is a record owned by exactly one user. Every read, update and delete
// must filter by UserID; record ids are not secrets.
type Client struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	Package   string
	CreatedAt time.Time
}
