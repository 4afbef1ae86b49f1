package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationManager_Send(t *testing.T) {
	nm := NewNotificationManager("http://localhost:4000")
	mock := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, mock)

	err := nm.RegisterNotification(PasswordResetNotice, EmailSystem, NoticeTemplate{
		Subject: "Password Reset Request",
		Text:    "Reset link: {{.Link}}",
	})
	require.NoError(t, err)

	err = nm.Send(PasswordResetNotice, NotificationData{
		To:   "jane@example.com",
		Data: map[string]string{"Link": "http://localhost:4000/reset/abc"},
	})
	require.NoError(t, err)

	require.Len(t, mock.SentNotifications, 1)
	assert.Equal(t, "jane@example.com", mock.SentNotifications[0].To)
	assert.Equal(t, PasswordResetNotice, mock.SentTypes[0])
}

func TestNotificationManager_SendUnregisteredType(t *testing.T) {
	nm := NewNotificationManager("http://localhost:4000")
	nm.RegisterNotifier(EmailSystem, &MockNotifier{})

	err := nm.Send(EmailConfirmationNotice, NotificationData{To: "jane@example.com"})
	assert.Error(t, err)
}

func TestNotificationManager_SendNoNotifier(t *testing.T) {
	nm := NewNotificationManager("http://localhost:4000")
	err := nm.RegisterNotification(PasswordResetNotice, EmailSystem, NoticeTemplate{Subject: "x"})
	require.NoError(t, err)

	err = nm.Send(PasswordResetNotice, NotificationData{To: "jane@example.com"})
	assert.Error(t, err)
}

func TestNotificationManager_RegisterValidation(t *testing.T) {
	nm := NewNotificationManager("http://localhost:4000")

	err := nm.RegisterNotification("", EmailSystem, NoticeTemplate{Subject: "x"})
	assert.Error(t, err)

	err = nm.RegisterNotification(PasswordResetNotice, EmailSystem, NoticeTemplate{})
	assert.Error(t, err)
}

func TestDefaultTemplatesLoad(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions("http://localhost:4000", WithDefaultTemplates())
	require.NoError(t, err)

	for _, noticeType := range []NoticeType{EmailConfirmationNotice, PasswordResetNotice} {
		templates, ok := nm.notificationRegistry[noticeType]
		require.True(t, ok, "missing templates for %s", noticeType)
		tmpl := templates[EmailSystem]
		assert.NotEmpty(t, tmpl.Subject)
		assert.Contains(t, tmpl.Html, "{{.Link}}")
	}
}
