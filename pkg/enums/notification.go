package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeSystemAnnouncement  NotificationType = "system_announcement"
	NotificationTypeSecurityAlert       NotificationType = "security_alert"
	NotificationTypeAssignmentCompleted NotificationType = "assignment_completed"
	NotificationTypeAssignmentCancelled NotificationType = "assignment_cancelled"
	NotificationTypeAssignmentOverdue   NotificationType = "assignment_overdue"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeSystemAnnouncement,
	NotificationTypeSecurityAlert,
	NotificationTypeAssignmentCompleted,
	NotificationTypeAssignmentCancelled,
	NotificationTypeAssignmentOverdue,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
