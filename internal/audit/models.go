// Package audit is the append-only record of everything that happens to a
// link and of every guardian read of child data. Entries are never updated
// or deleted; history outlives the link it describes.
package audit

import (
	"time"

	id "kindred/pkg/domain"
)

// Action labels what an audit event records.
type Action string

const (
	ActionLinkRequested      Action = "link_requested"
	ActionLinkApproved       Action = "link_approved"
	ActionLinkDenied         Action = "link_denied"
	ActionLinkExpired        Action = "link_expired"
	ActionLinkRevoked        Action = "link_revoked"
	ActionPermissionsUpdated Action = "permissions_updated"

	// ActionDataAccessed is a guardian read of projected child data. These
	// entries carry the categories actually returned.
	ActionDataAccessed Action = "data_accessed"
)

// Event is one immutable audit entry, emitted from domain logic. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         id.AccessEntryID  `json:"id"`
	LinkID     id.LinkID         `json:"link_id"`
	GuardianID id.UserID         `json:"guardian_id"`
	ChildID    id.UserID         `json:"child_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Action     Action            `json:"action"`
	ActorRole  id.Role           `json:"actor_role"`
	Categories []id.DataCategory `json:"categories,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	Device     string            `json:"device,omitempty"`
}
