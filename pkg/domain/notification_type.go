package domain

import dErrors "kindred/pkg/domain-errors"

// NotificationType labels why a notification was created. Every type traces
// back to a documented link transition or guardian data access.
type NotificationType string

const (
	NotificationGuardianRequest  NotificationType = "guardian_request"
	NotificationLinkApproved     NotificationType = "link_approved"
	NotificationLinkDenied       NotificationType = "link_denied"
	NotificationLinkRevoked      NotificationType = "link_revoked"
	NotificationPermissionChange NotificationType = "permissions_updated"
	NotificationParentViewedData NotificationType = "parent_viewed_data"
	NotificationCrisisAlert      NotificationType = "crisis_alert"
)

var validNotificationTypes = map[NotificationType]bool{
	NotificationGuardianRequest:  true,
	NotificationLinkApproved:     true,
	NotificationLinkDenied:       true,
	NotificationLinkRevoked:      true,
	NotificationPermissionChange: true,
	NotificationParentViewedData: true,
	NotificationCrisisAlert:      true,
}

// ParseNotificationType constructs a NotificationType from external input.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if !validNotificationTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid notification type")
	}
	return t, nil
}

func (t NotificationType) IsValid() bool  { return validNotificationTypes[t] }
func (t NotificationType) String() string { return string(t) }
