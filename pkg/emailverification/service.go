// Package emailverification manages the confirmation tokens a new account
// must redeem before it can sign in.
package emailverification

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/ugurCengiz/membership/pkg/notification"
	"github.com/ugurCengiz/membership/pkg/user"
	"github.com/ugurCengiz/membership/pkg/utils"
)

const tokenLength = 43 // base64 of 32 random bytes

// Service issues and redeems email confirmation tokens.
type Service struct {
	repo                TokenRepository
	users               user.UserRepository
	notificationManager *notification.NotificationManager
	tokenExpiry         time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTokenExpiry sets the token expiration duration.
func WithTokenExpiry(expiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.tokenExpiry = expiry
	}
}

// NewService creates a new email verification service.
func NewService(repo TokenRepository, users user.UserRepository, notificationManager *notification.NotificationManager, opts ...ServiceOption) *Service {
	service := &Service{
		repo:                repo,
		users:               users,
		notificationManager: notificationManager,
		tokenExpiry:         24 * time.Hour,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// SendConfirmationEmail issues a confirmation token for the user and mails
// the confirmation link. The returned token is exposed for tests and the
// inmem demo mode.
func (s *Service) SendConfirmationEmail(ctx context.Context, u user.User) (string, error) {
	if u.EmailConfirmed {
		return "", ErrAlreadyConfirmed
	}

	token, err := utils.GenerateRandomString(tokenLength)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().UTC().Add(s.tokenExpiry)
	ct, err := s.repo.CreateToken(ctx, u.ID, token, expiresAt)
	if err != nil {
		slog.Error("Failed to create confirmation token", "user_id", u.ID, "err", err)
		return "", fmt.Errorf("failed to create confirmation token: %w", err)
	}

	link := fmt.Sprintf("%s/confirm-email?userId=%s&token=%s",
		s.notificationManager.BaseUrl, u.ID, url.QueryEscape(token))

	err = s.notificationManager.Send(notification.EmailConfirmationNotice, notification.NotificationData{
		To:   u.Email,
		Data: map[string]string{"Link": link},
	})
	if err != nil {
		slog.Error("Failed to send confirmation email", "user_id", u.ID, "err", err)
		return "", err
	}

	slog.Info("Confirmation token issued", "user_id", u.ID, "token_id", ct.ID, "expires_at", expiresAt)
	return token, nil
}

// ConfirmEmail redeems a confirmation token exactly once and marks the
// account confirmed. A failed redemption leaves all state untouched.
func (s *Service) ConfirmEmail(ctx context.Context, userID uuid.UUID, token string) error {
	ct, err := s.repo.GetToken(ctx, token)
	if err != nil {
		slog.Warn("Unknown confirmation token", "user_id", userID)
		return ErrTokenNotFound
	}

	if ct.UserID != userID {
		slog.Warn("Confirmation token user mismatch", "user_id", userID, "token_user_id", ct.UserID)
		return ErrTokenUserMismatch
	}
	if ct.ConfirmedAt != nil {
		return ErrTokenAlreadyUsed
	}
	if time.Now().UTC().After(ct.ExpiresAt) {
		return ErrTokenExpired
	}

	// Claim the token before mutating the user; a concurrent double submit
	// loses here and reports cleanly.
	if err := s.repo.MarkTokenConfirmed(ctx, ct.ID); err != nil {
		return err
	}

	if err := s.users.MarkEmailConfirmed(ctx, userID); err != nil {
		slog.Error("Failed to mark email confirmed", "user_id", userID, "err", err)
		return err
	}

	slog.Info("Email confirmed", "user_id", userID)
	return nil
}
