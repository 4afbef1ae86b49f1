package login

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when no account matches the submitted email
	ErrUserNotFound = errors.New("no account registered with this email")

	// ErrEmailNotConfirmed is returned when the account has not redeemed its
	// confirmation token yet
	ErrEmailNotConfirmed = errors.New("email address not confirmed")

	// ErrEmailNotFound is returned by InitPasswordReset when the email is not
	// registered; no token is issued and no mail is sent
	ErrEmailNotFound = errors.New("email address not registered")

	// ErrResetInvalid is the generic reset failure surfaced to users; logs
	// carry the specific cause
	ErrResetInvalid = errors.New("invalid or expired reset token")
)

// AccountLockedError is returned when a sign-in hits an active lock window.
// JustLocked distinguishes the attempt that triggered the lock from attempts
// during an already running window.
type AccountLockedError struct {
	JustLocked bool
}

func (e *AccountLockedError) Error() string {
	if e.JustLocked {
		return "account locked after repeated failed attempts"
	}
	return "account is temporarily locked"
}

// InvalidCredentialsError carries the running failed-attempt count so the
// caller can surface it.
type InvalidCredentialsError struct {
	Attempts int32
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials (%d failed attempts)", e.Attempts)
}

// IsAccountLockedError reports whether err is a lockout rejection.
func IsAccountLockedError(err error) bool {
	var locked *AccountLockedError
	return errors.As(err, &locked)
}
