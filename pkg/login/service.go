package login

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/ugurCengiz/membership/pkg/lockout"
	"github.com/ugurCengiz/membership/pkg/notification"
	"github.com/ugurCengiz/membership/pkg/user"
	"github.com/ugurCengiz/membership/pkg/utils"
)

const resetTokenLength = 43

// LoginService runs the credential verification state machine and the
// password reset flow.
type LoginService struct {
	users               user.UserRepository
	resetTokens         ResetTokenRepository
	notificationManager *notification.NotificationManager
	lockoutPolicy       *lockout.Policy
	resetTokenExpiry    time.Duration
	now                 func() time.Time
}

// Option configures a LoginService.
type Option func(*LoginService)

// WithResetTokenExpiry sets the reset token validity window.
func WithResetTokenExpiry(expiry time.Duration) Option {
	return func(s *LoginService) {
		s.resetTokenExpiry = expiry
	}
}

// WithClock overrides the time source; tests use it to step through lock
// windows.
func WithClock(now func() time.Time) Option {
	return func(s *LoginService) {
		s.now = now
	}
}

// NewLoginService creates a login service.
func NewLoginService(users user.UserRepository, resetTokens ResetTokenRepository, notificationManager *notification.NotificationManager, lockoutPolicy *lockout.Policy, opts ...Option) *LoginService {
	service := &LoginService{
		users:               users,
		resetTokens:         resetTokens,
		notificationManager: notificationManager,
		lockoutPolicy:       lockoutPolicy,
		resetTokenExpiry:    24 * time.Hour,
		now:                 func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// LoginParams carries the submitted sign-in form.
type LoginParams struct {
	Email    string
	Password string
}

// Login walks the sign-in state machine: lookup, lock check, confirmation
// check, credential verification. On success the failed-attempt counter is
// reset and the user is returned for session issuance. On failure the
// counter is incremented and the lockout policy consulted; attempts during
// an active lock window never touch the counter.
func (s *LoginService) Login(ctx context.Context, params LoginParams) (user.User, error) {
	u, err := s.users.FindUserByEmail(ctx, utils.NormalizeEmail(params.Email))
	if err != nil {
		slog.Warn("Login attempt for unknown email", "err", err)
		return user.User{}, ErrUserNotFound
	}

	now := s.now()
	if u.IsLockedOut(now) {
		slog.Warn("Login attempt on locked account", "user_id", u.ID, "lockout_end", u.LockoutEnd)
		return user.User{}, &AccountLockedError{}
	}

	if !u.EmailConfirmed {
		return user.User{}, ErrEmailNotConfirmed
	}

	// Accounts created through an external provider have no password hash;
	// a password sign-in against one is an ordinary credential failure.
	valid := false
	if params.Password != "" && len(u.PasswordHash) > 0 {
		valid, err = CheckPasswordHash(params.Password, u.PasswordHash)
		if err != nil {
			slog.Error("Error checking password", "user_id", u.ID, "err", err)
			return user.User{}, fmt.Errorf("error checking password: %w", err)
		}
	}

	if valid {
		if err := s.users.ResetFailedAccess(ctx, u.ID); err != nil {
			slog.Error("Failed to reset failed-access count", "user_id", u.ID, "err", err)
			return user.User{}, err
		}
		u.FailedAccessCount = 0
		u.LockoutEnd = nil
		return u, nil
	}

	count, err := s.users.IncrementFailedAccess(ctx, u.ID)
	if err != nil {
		slog.Error("Failed to record failed attempt", "user_id", u.ID, "err", err)
		return user.User{}, err
	}

	decision := s.lockoutPolicy.Evaluate(count, now)
	if decision.Outcome == lockout.Lock {
		if err := s.users.SetLockoutEnd(ctx, u.ID, decision.LockedUntil); err != nil {
			slog.Error("Failed to persist lockout end", "user_id", u.ID, "err", err)
			return user.User{}, err
		}
		slog.Warn("Account locked", "user_id", u.ID, "attempts", count, "until", decision.LockedUntil)
		return user.User{}, &AccountLockedError{JustLocked: true}
	}

	return user.User{}, &InvalidCredentialsError{Attempts: count}
}

// InitPasswordReset issues a single-use reset token for the account and
// mails the reset link. An unregistered email is reported; nothing is issued
// or sent for it.
func (s *LoginService) InitPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.FindUserByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		slog.Warn("Password reset requested for unknown email", "err", err)
		return ErrEmailNotFound
	}

	token, err := utils.GenerateRandomString(resetTokenLength)
	if err != nil {
		return err
	}

	_, err = s.resetTokens.InitPasswordResetToken(ctx, ResetTokenParams{
		UserID:        u.ID,
		Token:         token,
		SecurityStamp: u.SecurityStamp,
		ExpiresAt:     s.now().Add(s.resetTokenExpiry),
	})
	if err != nil {
		slog.Error("Failed to save reset token", "user_id", u.ID, "err", err)
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?userId=%s&token=%s",
		s.notificationManager.BaseUrl, u.ID, url.QueryEscape(token))

	return s.notificationManager.Send(notification.PasswordResetNotice, notification.NotificationData{
		To:   u.Email,
		Data: map[string]string{"Link": resetLink},
	})
}

// ConfirmPasswordReset redeems a reset token and sets the new password. On
// success the security stamp is regenerated, which invalidates every other
// outstanding token bound to the old credential state. All user-facing
// failures collapse to ErrResetInvalid.
func (s *LoginService) ConfirmPasswordReset(ctx context.Context, userID uuid.UUID, token, newPassword string) error {
	rt, err := s.resetTokens.GetPasswordResetToken(ctx, token)
	if err != nil {
		slog.Warn("Unknown reset token", "user_id", userID)
		return ErrResetInvalid
	}

	switch {
	case rt.UserID != userID:
		slog.Warn("Reset token user mismatch", "user_id", userID, "token_user_id", rt.UserID)
		return ErrResetInvalid
	case rt.UsedAt != nil:
		slog.Warn("Reset token already used", "token_id", rt.ID)
		return ErrResetInvalid
	case s.now().After(rt.ExpiresAt):
		slog.Warn("Reset token expired", "token_id", rt.ID, "expires_at", rt.ExpiresAt)
		return ErrResetInvalid
	}

	u, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		slog.Warn("Reset for missing user", "user_id", userID, "err", err)
		return ErrResetInvalid
	}

	// Stamp mismatch means the credential state changed since issuance
	if rt.SecurityStamp != u.SecurityStamp {
		slog.Warn("Reset token stamp mismatch", "token_id", rt.ID)
		return ErrResetInvalid
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.resetTokens.MarkPasswordResetTokenUsed(ctx, rt.ID); err != nil {
		return ErrResetInvalid
	}

	if err := s.users.UpdatePassword(ctx, userID, hashed); err != nil {
		slog.Error("Failed to update password", "user_id", userID, "err", err)
		return err
	}

	stamp, err := utils.GenerateRandomString(32)
	if err != nil {
		return err
	}
	if err := s.users.UpdateSecurityStamp(ctx, userID, stamp); err != nil {
		slog.Error("Failed to regenerate security stamp", "user_id", userID, "err", err)
		return err
	}

	slog.Info("Password reset completed", "user_id", userID)
	return nil
}
