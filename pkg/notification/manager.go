package notification

import (
	"fmt"
)

// NotificationManager routes notices to registered notifiers using the
// template registered for the (notice type, system) pair.
type NotificationManager struct {
	BaseUrl              string
	notifiers            map[NotificationSystem]Notifier
	notificationRegistry map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager(baseUrl string) *NotificationManager {
	return &NotificationManager{
		BaseUrl:              baseUrl,
		notifiers:            make(map[NotificationSystem]Notifier),
		notificationRegistry: make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// RegisterNotification adds a notice template to the registry.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if template.Subject == "" && template.Text == "" && template.Html == "" {
		return fmt.Errorf("invalid input: template cannot be empty")
	}

	if _, exists := nm.notificationRegistry[noticeType]; !exists {
		nm.notificationRegistry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.notificationRegistry[noticeType][system] = template
	return nil
}

// Send delivers a notice through every system that has a template registered
// for it.
func (nm *NotificationManager) Send(noticeType NoticeType, notification NotificationData) error {
	systemTemplates, exists := nm.notificationRegistry[noticeType]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}

	var lastErr error
	sent := false
	for system, template := range systemTemplates {
		notifier, ok := nm.notifiers[system]
		if !ok {
			continue
		}
		if err := notifier.Send(noticeType, notification, template); err != nil {
			lastErr = err
			continue
		}
		sent = true
	}

	if !sent {
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("no notifier registered for notice type: %s", noticeType)
	}
	return nil
}
