package notification

// NotificationSystem represents a delivery channel (email, sms).
type NotificationSystem string

// NoticeType represents a kind of notice sent to members.
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"

	// EmailConfirmationNotice carries the confirm-your-address link sent after
	// registration.
	EmailConfirmationNotice NoticeType = "email_confirmation"

	// PasswordResetNotice carries the password reset link.
	PasswordResetNotice NoticeType = "password_reset_init"
)

// NotificationData is the per-send payload handed to a notifier.
type NotificationData struct {
	To   string            // Recipient identifier (email address, phone number)
	Data map[string]string // Template data (e.g. "Link")
}

// NoticeTemplate holds the subject and bodies registered for a notice type.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers a rendered notice over one channel.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
