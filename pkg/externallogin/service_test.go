package externallogin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugurCengiz/membership/pkg/errors"
	"github.com/ugurCengiz/membership/pkg/user"
)

func googleInfo() ExternalUserInfo {
	return ExternalUserInfo{
		Provider:  "google",
		SubjectID: "abc123456789",
		Email:     "jane@example.com",
		Name:      "Jane Doe",
	}
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "jane-doeabc12", DeriveUsername(googleInfo()))

	t.Run("ShortSubject", func(t *testing.T) {
		info := googleInfo()
		info.SubjectID = "ab"
		assert.Equal(t, "jane-doeab", DeriveUsername(info))
	})

	t.Run("MissingNameFallsBackToEmail", func(t *testing.T) {
		info := googleInfo()
		info.Name = ""
		info.Email = "Jane@Example.com"
		assert.Equal(t, "jane@example.com", DeriveUsername(info))
	})
}

func TestSignInOrLink_CreatesAndLinksAccount(t *testing.T) {
	users := user.NewInMemUserRepository()
	svc := NewService(users)
	ctx := context.Background()

	u, err := svc.SignInOrLink(ctx, googleInfo())
	require.NoError(t, err)
	assert.Equal(t, "jane-doeabc12", u.Username)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.True(t, u.EmailConfirmed)
	assert.Empty(t, u.PasswordHash)
	assert.NotEmpty(t, u.SecurityStamp)

	linked, err := users.FindUserByExternalLogin(ctx, "google", "abc123456789")
	require.NoError(t, err)
	assert.Equal(t, u.ID, linked.ID)
}

func TestSignInOrLink_ExistingLinkSignsIn(t *testing.T) {
	users := user.NewInMemUserRepository()
	svc := NewService(users)
	ctx := context.Background()

	first, err := svc.SignInOrLink(ctx, googleInfo())
	require.NoError(t, err)

	// Changed claims do not matter once the link exists
	info := googleInfo()
	info.Name = "Jane Married"
	info.Email = "jane.married@example.com"

	again, err := svc.SignInOrLink(ctx, info)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "jane-doeabc12", again.Username)
}

func TestSignInOrLink_MissingEmailClaim(t *testing.T) {
	users := user.NewInMemUserRepository()
	svc := NewService(users)

	info := googleInfo()
	info.Email = ""

	_, err := svc.SignInOrLink(context.Background(), info)
	assert.Equal(t, errors.ErrCodeMissingEmailClaim, errors.CodeOf(err))
}

func TestSignInOrLink_EmailTakenByLocalAccount(t *testing.T) {
	users := user.NewInMemUserRepository()
	svc := NewService(users)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, user.CreateUserParams{
		Username: "jane-local",
		Email:    "jane@example.com",
	})
	require.NoError(t, err)

	_, err = svc.SignInOrLink(ctx, googleInfo())
	assert.Equal(t, errors.ErrCodeDuplicateEmail, errors.CodeOf(err))
}

// failingLinkRepository simulates a concurrent claim of the (provider,
// subject) pair between the lookup and the link.
type failingLinkRepository struct {
	*user.InMemUserRepository
}

func (r *failingLinkRepository) AddExternalLogin(ctx context.Context, userID uuid.UUID, provider, subjectID string) (user.ExternalLogin, error) {
	return user.ExternalLogin{}, user.ErrDuplicateExternalLogin
}

func TestSignInOrLink_LinkFailureDeletesAccount(t *testing.T) {
	users := &failingLinkRepository{user.NewInMemUserRepository()}
	svc := NewService(users)
	ctx := context.Background()

	_, err := svc.SignInOrLink(ctx, googleInfo())
	assert.Equal(t, errors.ErrCodeExternalLinkFailed, errors.CodeOf(err))

	// The half-created account was rolled back
	_, err = users.FindUserByEmail(ctx, "jane@example.com")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
