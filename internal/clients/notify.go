package clients

import (
	"github.com/angelmondragon/greengate/internal/notifications"
	"github.com/angelmondragon/greengate/pkg/enums"
)

// StatusNotification describes a KYC or approval change to the client's user.
func StatusNotification(change *StatusChange) notifications.NotifyInput {
	client := change.Client
	message := "Your verification status has been updated."
	switch {
	case client.AdminApproval == enums.ApprovalStatusVerified && client.IsKYCVerified:
		message = "Your account has been verified. You can now place orders."
	case client.AdminApproval == enums.ApprovalStatusRejected:
		message = "Your account verification was not approved."
	case client.IsKYCVerified && !change.PreviousKYC:
		message = "Your identity check is complete. Your account is awaiting approval."
	}
	return notifications.NotifyInput{
		UserID:  client.UserID,
		Type:    enums.NotificationTypeKYCStatusChanged,
		Title:   "Verification status updated",
		Message: message,
		Link:    "/dashboard",
		Metadata: map[string]any{
			"isKycVerified":         client.IsKYCVerified,
			"adminApproval":         client.AdminApproval,
			"previousAdminApproval": change.PreviousApprove,
		},
	}
}
