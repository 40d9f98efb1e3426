package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table. Optional profile fields are
// nullable; DeletedAt marks a soft-deleted account.
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Name           *string    `json:"name,omitempty"`
	Email          *string    `json:"email,omitempty"`
	PhoneNumber    *string    `json:"phone_number,omitempty"`
	PasswordDigest string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// Revocation represents a row in the revocations table: a token id that
// must no longer be accepted.
type Revocation struct {
	JTI       uuid.UUID  `json:"jti"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
