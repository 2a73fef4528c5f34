package notifications

import (
	"context"

	id "kindred/pkg/domain"
)

// Store persists notifications. The only mutation is MarkRead, and it is
// ownership-guarded at the store so a caller can never flip someone else's.
type Store interface {
	Create(ctx context.Context, n *Notification) error

	// ListByRecipient returns the user's notifications, newest first.
	ListByRecipient(ctx context.Context, userID id.UserID, onlyUnread bool) ([]*Notification, error)

	// CountUnread returns the number of unread notifications for the user.
	CountUnread(ctx context.Context, userID id.UserID) (int, error)

	// MarkRead flips read=true only when the notification belongs to
	// callerID. Returns sentinel.ErrNotFound both when the record is missing
	// and when it belongs to someone else.
	MarkRead(ctx context.Context, notificationID id.NotificationID, callerID id.UserID) error
}
