package emailverification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugurCengiz/membership/pkg/notification"
	"github.com/ugurCengiz/membership/pkg/user"
)

func setupService(t *testing.T) (*Service, *user.InMemUserRepository, *notification.MockNotifier) {
	t.Helper()

	users := user.NewInMemUserRepository()
	mock := &notification.MockNotifier{}
	nm := notification.NewNotificationManager("http://localhost:4000")
	nm.RegisterNotifier(notification.EmailSystem, mock)
	err := nm.RegisterNotification(notification.EmailConfirmationNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Confirm Your Email Address",
		Text:    "Link: {{.Link}}",
	})
	require.NoError(t, err)

	svc := NewService(NewInMemTokenRepository(), users, nm)
	return svc, users, mock
}

func createUnconfirmedUser(t *testing.T, users *user.InMemUserRepository) user.User {
	t.Helper()
	u, err := users.CreateUser(context.Background(), user.CreateUserParams{
		Username:      "janedoe",
		Email:         "jane@example.com",
		SecurityStamp: "stamp-1",
	})
	require.NoError(t, err)
	return u
}

func TestSendConfirmationEmail(t *testing.T) {
	svc, users, mock := setupService(t)
	ctx := context.Background()
	u := createUnconfirmedUser(t, users)

	token, err := svc.SendConfirmationEmail(ctx, u)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	require.Len(t, mock.SentNotifications, 1)
	assert.Equal(t, "jane@example.com", mock.SentNotifications[0].To)
	assert.Contains(t, mock.SentNotifications[0].Data["Link"], u.ID.String())
	assert.Contains(t, mock.SentNotifications[0].Data["Link"], "confirm-email")
}

func TestSendConfirmationEmail_AlreadyConfirmed(t *testing.T) {
	svc, users, _ := setupService(t)
	ctx := context.Background()
	u := createUnconfirmedUser(t, users)
	require.NoError(t, users.MarkEmailConfirmed(ctx, u.ID))
	u, err := users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)

	_, err = svc.SendConfirmationEmail(ctx, u)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConfirmEmail(t *testing.T) {
	svc, users, _ := setupService(t)
	ctx := context.Background()
	u := createUnconfirmedUser(t, users)

	token, err := svc.SendConfirmationEmail(ctx, u)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmEmail(ctx, u.ID, token))

	confirmed, err := users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.EmailConfirmed)

	t.Run("SecondRedemptionFails", func(t *testing.T) {
		err := svc.ConfirmEmail(ctx, u.ID, token)
		assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
	})
}

func TestConfirmEmail_WrongUser(t *testing.T) {
	svc, users, _ := setupService(t)
	ctx := context.Background()
	u := createUnconfirmedUser(t, users)

	token, err := svc.SendConfirmationEmail(ctx, u)
	require.NoError(t, err)

	err = svc.ConfirmEmail(ctx, uuid.New(), token)
	assert.ErrorIs(t, err, ErrTokenUserMismatch)

	// Account stays unconfirmed
	found, err := users.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, found.EmailConfirmed)
}

func TestConfirmEmail_Expired(t *testing.T) {
	users := user.NewInMemUserRepository()
	nm := notification.NewNotificationManager("http://localhost:4000")
	nm.RegisterNotifier(notification.EmailSystem, &notification.MockNotifier{})
	require.NoError(t, nm.RegisterNotification(notification.EmailConfirmationNotice, notification.EmailSystem, notification.NoticeTemplate{Subject: "x", Text: "{{.Link}}"}))

	svc := NewService(NewInMemTokenRepository(), users, nm, WithTokenExpiry(-time.Minute))
	ctx := context.Background()
	u := createUnconfirmedUser(t, users)

	token, err := svc.SendConfirmationEmail(ctx, u)
	require.NoError(t, err)

	err = svc.ConfirmEmail(ctx, u.ID, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestConfirmEmail_UnknownToken(t *testing.T) {
	svc, users, _ := setupService(t)
	u := createUnconfirmedUser(t, users)

	err := svc.ConfirmEmail(context.Background(), u.ID, "no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
