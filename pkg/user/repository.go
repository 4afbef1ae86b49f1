package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no user matches the query
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateExternalLogin is returned when the (provider, subject id)
	// pair is already linked to a user
	ErrDuplicateExternalLogin = errors.New("external login already linked")
)

// UserRepository defines the persistence operations the membership flows
// depend on. Counter updates are atomic at the store level; concurrent
// failures for the same user never lose increments.
type UserRepository interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindUserByPhone(ctx context.Context, phone string) (User, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	// Lockout bookkeeping
	IncrementFailedAccess(ctx context.Context, id uuid.UUID) (int32, error)
	ResetFailedAccess(ctx context.Context, id uuid.UUID) error
	SetLockoutEnd(ctx context.Context, id uuid.UUID, end time.Time) error

	// Credential state
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error
	UpdateSecurityStamp(ctx context.Context, id uuid.UUID, stamp string) error
	MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error

	// External login links
	FindUserByExternalLogin(ctx context.Context, provider, subjectID string) (User, error)
	AddExternalLogin(ctx context.Context, userID uuid.UUID, provider, subjectID string) (ExternalLogin, error)
}
