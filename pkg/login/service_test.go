package login

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugurCengiz/membership/pkg/lockout"
	"github.com/ugurCengiz/membership/pkg/notification"
	"github.com/ugurCengiz/membership/pkg/user"
)

type fixture struct {
	svc   *LoginService
	users *user.InMemUserRepository
	mock  *notification.MockNotifier
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users: user.NewInMemUserRepository(),
		mock:  &notification.MockNotifier{},
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	nm := notification.NewNotificationManager("http://localhost:4000")
	nm.RegisterNotifier(notification.EmailSystem, f.mock)
	err := nm.RegisterNotification(notification.PasswordResetNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Password Reset Request",
		Text:    "Link: {{.Link}}",
	})
	require.NoError(t, err)

	f.svc = NewLoginService(
		f.users,
		NewInMemResetTokenRepository(),
		nm,
		lockout.NewPolicy(3, 20*time.Minute),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) createUser(t *testing.T, email, password string, confirmed bool) user.User {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	u, err := f.users.CreateUser(context.Background(), user.CreateUserParams{
		Username:       "tester",
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: confirmed,
		SecurityStamp:  "stamp-1",
	})
	require.NoError(t, err)
	return u
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "correct horse", true)

	got, err := f.svc.Login(ctx, LoginParams{Email: "Jane@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), LoginParams{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_UnconfirmedEmail(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "jane@example.com", "correct horse", false)

	_, err := f.svc.Login(context.Background(), LoginParams{Email: "jane@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)
}

func TestLogin_PasswordlessAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.CreateUser(ctx, user.CreateUserParams{
		Username:       "jane-doeabc12",
		Email:          "jane@example.com",
		EmailConfirmed: true,
		SecurityStamp:  "stamp-1",
	})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "anything"})
	var invalid *InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, int32(1), invalid.Attempts)

	got, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.FailedAccessCount)
}

func TestLogin_EmptyPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "correct horse", true)

	_, err := f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: ""})
	var invalid *InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)

	got, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.FailedAccessCount)
}

func TestLogin_FailedAttemptsBelowThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "jane@example.com", "correct horse", true)

	for want := int32(1); want <= 2; want++ {
		_, err := f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "wrong"})
		var invalid *InvalidCredentialsError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, want, invalid.Attempts)
	}
}

func TestLogin_ThirdFailureLocksFor20Minutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "correct horse", true)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "wrong"})
		require.Error(t, err)
	}

	_, err := f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "wrong"})
	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.True(t, locked.JustLocked)

	stored, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LockoutEnd)
	assert.Equal(t, f.now.Add(20*time.Minute), *stored.LockoutEnd)
}

func TestLogin_LockedRejectsCorrectPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "correct horse", true)

	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "wrong"})
	}

	// Correct password inside the lock window is still rejected and the
	// counter stays put.
	_, err := f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "correct horse"})
	assert.True(t, IsAccountLockedError(err))

	stored, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), stored.FailedAccessCount)
}

func TestLogin_LockExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "jane@example.com", "correct horse", true)

	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "wrong"})
	}

	f.now = f.now.Add(21 * time.Minute)

	got, err := f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), got.FailedAccessCount)
}

func TestLogin_SuccessResetsFailedCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "correct horse", true)

	for i := 0; i < 2; i++ {
		_, _ = f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "wrong"})
	}

	_, err := f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "correct horse"})
	require.NoError(t, err)

	stored, err := f.users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), stored.FailedAccessCount)
	assert.Nil(t, stored.LockoutEnd)
}

func TestInitPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "correct horse", true)

	require.NoError(t, f.svc.InitPasswordReset(ctx, "jane@example.com"))
	require.Len(t, f.mock.SentNotifications, 1)
	assert.Equal(t, u.Email, f.mock.SentNotifications[0].To)
	assert.Contains(t, f.mock.SentNotifications[0].Data["Link"], u.ID.String())
}

func TestInitPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.InitPasswordReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrEmailNotFound)
	assert.Empty(t, f.mock.SentNotifications)
}

// resetLinkToken pulls the raw token back out of the emailed link.
func resetLinkToken(t *testing.T, f *fixture) string {
	t.Helper()
	require.NotEmpty(t, f.mock.SentNotifications)
	link := f.mock.SentNotifications[len(f.mock.SentNotifications)-1].Data["Link"]
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestConfirmPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "old password", true)

	require.NoError(t, f.svc.InitPasswordReset(ctx, "jane@example.com"))
	token := resetLinkToken(t, f)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, u.ID, token, "new password"))

	// New password works, old one does not
	_, err := f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "new password"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, LoginParams{Email: "jane@example.com", Password: "old password"})
	var invalid *InvalidCredentialsError
	assert.ErrorAs(t, err, &invalid)

	t.Run("SecondRedemptionFails", func(t *testing.T) {
		err := f.svc.ConfirmPasswordReset(ctx, u.ID, token, "another password")
		assert.ErrorIs(t, err, ErrResetInvalid)
	})

	t.Run("StampRegenerated", func(t *testing.T) {
		stored, err := f.users.FindUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.NotEqual(t, "stamp-1", stored.SecurityStamp)
	})
}

func TestConfirmPasswordReset_StampRegenerationInvalidatesOlderTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "old password", true)

	// Two outstanding tokens; redeeming the second regenerates the stamp,
	// which must kill the first.
	require.NoError(t, f.svc.InitPasswordReset(ctx, "jane@example.com"))
	first := resetLinkToken(t, f)
	require.NoError(t, f.svc.InitPasswordReset(ctx, "jane@example.com"))
	second := resetLinkToken(t, f)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, u.ID, second, "new password"))

	err := f.svc.ConfirmPasswordReset(ctx, u.ID, first, "sneaky password")
	assert.ErrorIs(t, err, ErrResetInvalid)
}

func TestConfirmPasswordReset_WrongUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "old password", true)
	other := f.createUser(t, "john@example.com", "password", true)

	require.NoError(t, f.svc.InitPasswordReset(ctx, "jane@example.com"))
	token := resetLinkToken(t, f)

	err := f.svc.ConfirmPasswordReset(ctx, other.ID, token, "new password")
	assert.ErrorIs(t, err, ErrResetInvalid)

	// Jane's token is still usable afterwards
	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, u.ID, token, "new password"))
}

func TestConfirmPasswordReset_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "jane@example.com", "old password", true)

	require.NoError(t, f.svc.InitPasswordReset(ctx, "jane@example.com"))
	token := resetLinkToken(t, f)

	f.now = f.now.Add(25 * time.Hour)

	err := f.svc.ConfirmPasswordReset(ctx, u.ID, token, "new password")
	assert.ErrorIs(t, err, ErrResetInvalid)
}
