package externallogin

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ugurCengiz/membership/pkg/errors"
	"github.com/ugurCengiz/membership/pkg/user"
	"github.com/ugurCengiz/membership/pkg/utils"
)

const (
	securityStampLength = 32
	subjectPrefixLength = 5
)

// ExternalUserInfo is the identity asserted by an external provider after a
// completed OAuth2 exchange.
type ExternalUserInfo struct {
	Provider  string
	SubjectID string
	Email     string
	Name      string
}

// Service signs users in through external identity providers, creating and
// linking local accounts on first contact.
type Service struct {
	users user.UserRepository
}

// NewService creates an external login service.
func NewService(users user.UserRepository) *Service {
	return &Service{users: users}
}

// DeriveUsername builds a local username from the provider's name claim and
// subject id. Spaces become dashes, the result is lowercased and suffixed
// with a short subject prefix to keep usernames distinct across providers.
// When the name claim is missing the email claim is used as-is.
func DeriveUsername(info ExternalUserInfo) string {
	if info.Name == "" {
		return strings.ToLower(info.Email)
	}
	base := strings.ToLower(strings.ReplaceAll(info.Name, " ", "-"))

	suffix := info.SubjectID
	if len(suffix) > subjectPrefixLength {
		suffix = suffix[:subjectPrefixLength]
	}
	return base + suffix
}

// SignInOrLink resolves an external identity to a local account. A known
// (provider, subject) pair signs into its linked account. A first contact
// creates a passwordless account from the provider claims and links it; the
// email claim is mandatory and the address must not be taken. If linking
// fails after the account was created, the account is deleted again so no
// orphan is left behind.
func (s *Service) SignInOrLink(ctx context.Context, info ExternalUserInfo) (user.User, error) {
	if u, err := s.users.FindUserByExternalLogin(ctx, info.Provider, info.SubjectID); err == nil {
		slog.Info("External sign-in", "provider", info.Provider, "user_id", u.ID)
		return u, nil
	}

	if info.Email == "" {
		return user.User{}, errors.New(errors.ErrCodeMissingEmailClaim, "provider shared no email claim")
	}

	email := utils.NormalizeEmail(info.Email)
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return user.User{}, errors.New(errors.ErrCodeDuplicateEmail, "email already registered to a local account")
	}

	stamp, err := utils.GenerateRandomString(securityStampLength)
	if err != nil {
		return user.User{}, errors.Wrap(errors.ErrCodeInternal, "failed to generate security stamp", err)
	}

	// The provider vouches for the address, so the account starts confirmed.
	u, err := s.users.CreateUser(ctx, user.CreateUserParams{
		Username:       DeriveUsername(info),
		Email:          email,
		EmailConfirmed: true,
		SecurityStamp:  stamp,
	})
	if err != nil {
		slog.Error("Failed to create user for external login", "provider", info.Provider, "err", err)
		return user.User{}, errors.Wrap(errors.ErrCodeInternal, "failed to create user", err)
	}

	if _, err := s.users.AddExternalLogin(ctx, u.ID, info.Provider, info.SubjectID); err != nil {
		slog.Error("Failed to link external login, rolling back account",
			"provider", info.Provider, "user_id", u.ID, "err", err)
		if delErr := s.users.DeleteUser(ctx, u.ID); delErr != nil {
			slog.Error("Failed to delete orphaned account", "user_id", u.ID, "err", delErr)
		}
		return user.User{}, errors.Wrap(errors.ErrCodeExternalLinkFailed, "failed to link external login", err)
	}

	slog.Info("External account created and linked",
		"provider", info.Provider, "user_id", u.ID, "username", u.Username)
	return u, nil
}
