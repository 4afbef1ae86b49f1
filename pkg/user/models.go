package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the root membership entity. Email, username and phone number are
// unique across all users. PasswordHash is empty for accounts created by an
// external identity provider.
type User struct {
	ID                uuid.UUID
	Username          string
	Email             string
	PhoneNumber       string
	PasswordHash      []byte
	EmailConfirmed    bool
	FailedAccessCount int32
	LockoutEnd        *time.Time
	SecurityStamp     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLockedOut reports whether the account is inside an active lock window.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && now.Before(*u.LockoutEnd)
}

// ExternalLogin links a (provider, subject id) pair from an external identity
// provider to exactly one local user.
type ExternalLogin struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Provider  string
	SubjectID string
	CreatedAt time.Time
}

// CreateUserParams carries the attributes needed to create a user record.
type CreateUserParams struct {
	Username       string
	Email          string
	PhoneNumber    string
	PasswordHash   []byte
	EmailConfirmed bool
	SecurityStamp  string
}
