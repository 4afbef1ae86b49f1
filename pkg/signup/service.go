package signup

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/ugurCengiz/membership/pkg/config"
	"github.com/ugurCengiz/membership/pkg/emailverification"
	"github.com/ugurCengiz/membership/pkg/errors"
	"github.com/ugurCengiz/membership/pkg/login"
	"github.com/ugurCengiz/membership/pkg/user"
	"github.com/ugurCengiz/membership/pkg/utils"
)

const securityStampLength = 32

// usernamePattern accepts letters, digits and the separators commonly allowed
// in account names.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9@._+-]+$`)

// RegistrationService creates new accounts and kicks off email confirmation.
type RegistrationService struct {
	users             user.UserRepository
	emailVerification *emailverification.Service
	passwordConfig    config.PasswordConfig
}

// Option configures a RegistrationService.
type Option func(*RegistrationService)

// WithPasswordConfig overrides the password policy.
func WithPasswordConfig(cfg config.PasswordConfig) Option {
	return func(s *RegistrationService) {
		s.passwordConfig = cfg
	}
}

// NewRegistrationService creates a registration service.
func NewRegistrationService(users user.UserRepository, emailVerification *emailverification.Service, opts ...Option) *RegistrationService {
	s := &RegistrationService{
		users:             users,
		emailVerification: emailVerification,
		passwordConfig:    config.DefaultPasswordConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams carries the submitted registration form.
type RegisterParams struct {
	Username    string
	Email       string
	PhoneNumber string
	Password    string
}

// Register validates the form and creates an unconfirmed account. The phone
// number is checked for uniqueness before anything is written, so a rejected
// registration leaves no record behind. On success a confirmation email is
// sent; the account stays unconfirmed until the link is followed.
func (s *RegistrationService) Register(ctx context.Context, params RegisterParams) (user.User, error) {
	if params.Username == "" || !usernamePattern.MatchString(params.Username) {
		return user.User{}, errors.New(errors.ErrCodeInvalidUsername, "username contains invalid characters")
	}

	if len(params.Password) < s.passwordConfig.MinLength {
		return user.User{}, errors.New(errors.ErrCodePasswordTooShort, "password below minimum length")
	}

	email := utils.NormalizeEmail(params.Email)

	if params.PhoneNumber != "" {
		if _, err := s.users.FindUserByPhone(ctx, params.PhoneNumber); err == nil {
			slog.Warn("Registration with already registered phone", "username", params.Username)
			return user.User{}, errors.New(errors.ErrCodeDuplicatePhone, "phone number already registered")
		}
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return user.User{}, errors.New(errors.ErrCodeDuplicateEmail, "email already registered")
	}

	if _, err := s.users.FindUserByUsername(ctx, params.Username); err == nil {
		return user.User{}, errors.New(errors.ErrCodeDuplicateUsername, "username already taken")
	}

	hash, err := login.HashPassword(params.Password)
	if err != nil {
		return user.User{}, errors.Wrap(errors.ErrCodeInternal, "failed to hash password", err)
	}

	stamp, err := utils.GenerateRandomString(securityStampLength)
	if err != nil {
		return user.User{}, errors.Wrap(errors.ErrCodeInternal, "failed to generate security stamp", err)
	}

	u, err := s.users.CreateUser(ctx, user.CreateUserParams{
		Username:      params.Username,
		Email:         email,
		PhoneNumber:   params.PhoneNumber,
		PasswordHash:  hash,
		SecurityStamp: stamp,
	})
	if err != nil {
		slog.Error("Failed to create user", "username", params.Username, "err", err)
		return user.User{}, errors.Wrap(errors.ErrCodeInternal, "failed to create user", err)
	}

	if _, err := s.emailVerification.SendConfirmationEmail(ctx, u); err != nil {
		// The account exists but is unconfirmed; a later sign-in attempt
		// tells the user to confirm, and resend covers the gap.
		slog.Error("Failed to send confirmation email", "user_id", u.ID, "err", err)
		return u, errors.Wrap(errors.ErrCodeConfirmationFailed, "failed to send confirmation email", err)
	}

	slog.Info("User registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// ResendConfirmation sends a fresh confirmation email for an unconfirmed
// account.
func (s *RegistrationService) ResendConfirmation(ctx context.Context, email string) error {
	u, err := s.users.FindUserByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return errors.Wrap(errors.ErrCodeUserNotFound, "no account for email", err)
	}
	if u.EmailConfirmed {
		return errors.New(errors.ErrCodeConfirmationFailed, "email already confirmed")
	}
	if _, err := s.emailVerification.SendConfirmationEmail(ctx, u); err != nil {
		return errors.Wrap(errors.ErrCodeConfirmationFailed, "failed to send confirmation email", err)
	}
	return nil
}
