// Package notifications creates and serves the typed notifications both
// parties receive for every link transition and every guardian data access.
// Records are additive: created once, mutated only by the owner marking
// them read, never deleted.
package notifications

import (
	"time"

	id "kindred/pkg/domain"
)

// Notification is one inbox entry.
type Notification struct {
	ID            id.NotificationID   `json:"id"`
	RecipientID   id.UserID           `json:"recipient_id"`
	RecipientRole id.Role             `json:"recipient_role"`
	Type          id.NotificationType `json:"type"`
	Title         string              `json:"title"`
	Message       string              `json:"message"`
	Read          bool                `json:"read"`
	CreatedAt     time.Time           `json:"created_at"`
}
