package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption configures a NotificationManager.
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration.
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithEmailConfirmationTemplate registers the email confirmation template.
func WithEmailConfirmationTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(EmailConfirmationNotice, EmailSystem, NoticeTemplate{
			Subject: "Confirm Your Email Address",
			Text:    loadTemplate("templates/email/email_confirmation.txt"),
			Html:    loadTemplate("templates/email/email_confirmation.html"),
		})
	}
}

// WithPasswordResetTemplate registers the password reset template.
func WithPasswordResetTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(PasswordResetNotice, EmailSystem, NoticeTemplate{
			Subject: "Password Reset Request",
			Text:    loadTemplate("templates/email/password_reset.txt"),
			Html:    loadTemplate("templates/email/password_reset.html"),
		})
	}
}

// WithDefaultTemplates registers all built-in notice templates.
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithEmailConfirmationTemplate(),
			WithPasswordResetTemplate(),
		}
		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewNotificationManagerWithOptions creates a notification manager and
// applies the provided options.
func NewNotificationManagerWithOptions(baseUrl string, opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager(baseUrl)

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
