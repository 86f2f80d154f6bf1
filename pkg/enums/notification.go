package enums

import "fmt"

// NotificationType maps to the notifications.type check constraint.
type NotificationType string

const (
	NotificationTypeOrderStatusChanged   NotificationType = "order_status_changed"
	NotificationTypePaymentStatusChanged NotificationType = "payment_status_changed"
	NotificationTypeKYCStatusChanged     NotificationType = "kyc_status_changed"
	NotificationTypeOrderSyncFailed      NotificationType = "order_sync_failed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderStatusChanged,
	NotificationTypePaymentStatusChanged,
	NotificationTypeKYCStatusChanged,
	NotificationTypeOrderSyncFailed,
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
