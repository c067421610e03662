package enums

import "fmt"

// NotificationType categorises in-app notifications.
type NotificationType string

const (
	NotificationTypeItemAssigned        NotificationType = "item_assigned"
	NotificationTypeApprovalRequired    NotificationType = "approval_required"
	NotificationTypeApprovalDecided     NotificationType = "approval_decided"
	NotificationTypeQuoteUpdate         NotificationType = "quote_update"
	NotificationTypeProductionUpdate    NotificationType = "production_update"
	NotificationTypeDeadlineApproaching NotificationType = "deadline_approaching"
	NotificationTypeWorkloadAlert       NotificationType = "workload_alert"
	NotificationTypeAutomation          NotificationType = "automation"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeItemAssigned,
	NotificationTypeApprovalRequired,
	NotificationTypeApprovalDecided,
	NotificationTypeQuoteUpdate,
	NotificationTypeProductionUpdate,
	NotificationTypeDeadlineApproaching,
	NotificationTypeWorkloadAlert,
	NotificationTypeAutomation,
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
