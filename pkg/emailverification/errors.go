package emailverification

import "errors"

var (
	// ErrTokenNotFound is returned when a confirmation token is not found
	ErrTokenNotFound = errors.New("confirmation token not found")

	// ErrTokenExpired is returned when a confirmation token has expired
	ErrTokenExpired = errors.New("confirmation token has expired")

	// ErrTokenAlreadyUsed is returned when a confirmation token has already been redeemed
	ErrTokenAlreadyUsed = errors.New("confirmation token has already been used")

	// ErrTokenUserMismatch is returned when a token does not belong to the given user
	ErrTokenUserMismatch = errors.New("confirmation token does not belong to this user")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyConfirmed is returned when the email is already confirmed
	ErrAlreadyConfirmed = errors.New("email already confirmed")
)
