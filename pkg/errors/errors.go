package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a membership error kind. Codes are stable and safe to
// expose to API clients; localized messages are resolved at the presentation
// boundary, never inside the flow services.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	// Login errors
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAccountLocked      ErrorCode = "ACCOUNT_LOCKED"
	ErrCodeAccountLockedNow   ErrorCode = "ACCOUNT_LOCKED_NOW"
	ErrCodeEmailNotConfirmed  ErrorCode = "EMAIL_NOT_CONFIRMED"

	// Registration errors
	ErrCodeDuplicatePhone    ErrorCode = "DUPLICATE_PHONE"
	ErrCodeDuplicateEmail    ErrorCode = "DUPLICATE_EMAIL"
	ErrCodeDuplicateUsername ErrorCode = "DUPLICATE_USERNAME"
	ErrCodeInvalidUsername   ErrorCode = "INVALID_USERNAME"
	ErrCodePasswordTooShort  ErrorCode = "PASSWORD_TOO_SHORT"

	// Token errors
	ErrCodeTokenInvalid       ErrorCode = "TOKEN_INVALID"
	ErrCodeConfirmationFailed ErrorCode = "CONFIRMATION_FAILED"
	ErrCodeResetFailed        ErrorCode = "RESET_FAILED"

	// External login errors
	ErrCodeMissingEmailClaim  ErrorCode = "MISSING_EMAIL_CLAIM"
	ErrCodeExternalLinkFailed ErrorCode = "EXTERNAL_LINK_FAILED"
)

// messages is the fixed code-to-message mapping used when rendering errors to
// users. Flow services return codes; only this table knows the wording.
var messages = map[ErrorCode]string{
	ErrCodeInternal:           "An unexpected error occurred. Please try again later.",
	ErrCodeInvalidInput:       "Please check your input and try again.",
	ErrCodeNotFound:           "The requested resource was not found.",
	ErrCodeUserNotFound:       "No account is registered with this email address.",
	ErrCodeInvalidCredentials: "Email address or password is incorrect.",
	ErrCodeAccountLocked:      "Your account is temporarily locked. Please try again later.",
	ErrCodeAccountLockedNow:   "Your account has been locked after repeated failed attempts. Please try again later.",
	ErrCodeEmailNotConfirmed:  "Your email address has not been confirmed. Please check your inbox.",
	ErrCodeDuplicatePhone:     "This phone number is already registered.",
	ErrCodeDuplicateEmail:     "This email address is already in use.",
	ErrCodeDuplicateUsername:  "This username is already taken.",
	ErrCodeInvalidUsername:    "This username is not valid.",
	ErrCodePasswordTooShort:   "Your password is too short.",
	ErrCodeTokenInvalid:       "This link is invalid or has expired.",
	ErrCodeConfirmationFailed: "Your email address could not be confirmed. Please try again.",
	ErrCodeResetFailed:        "The password could not be reset. Please request a new link.",
	ErrCodeMissingEmailClaim:  "The identity provider did not share an email address.",
	ErrCodeExternalLinkFailed: "The external account could not be linked.",
}

// Message resolves the user-facing message for a code.
func Message(code ErrorCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[ErrCodeInternal]
}

// Error is a structured error carrying a code, an internal message and an
// optional wrapped cause. The Code is what crosses the HTTP boundary.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a structured error with the given code and internal message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a structured error wrapping a cause.
func Wrap(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal when err carries
// no code.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// Is and As re-export the standard helpers so callers only import this
// package.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
