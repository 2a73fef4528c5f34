// Package links owns the guardian-child link state machine: request,
// approval by verification code, denial, expiry, revocation, and the
// permission set an active link carries.
package links

import (
	"time"

	id "kindred/pkg/domain"
)

// Status is the link lifecycle state. DENIED, EXPIRED, and REVOKED are
// terminal: a link never leaves them, and new requests mint a new link id.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusDenied  Status = "DENIED"
	StatusExpired Status = "EXPIRED"
	StatusRevoked Status = "REVOKED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusDenied || s == StatusExpired || s == StatusRevoked
}

func (s Status) String() string { return string(s) }

// GuardianLink is the consent relationship between one guardian and one
// child. At most one link per (guardian, child) pair may be PENDING or
// ACTIVE at a time.
//
// Invariants:
//   - Permissions is non-empty only when Status == ACTIVE
//   - CodeHash/CodeExpiresAt are set only while Status == PENDING
//   - RevokedAt/RevokedBy are set only when Status == REVOKED
type GuardianLink struct {
	ID         id.LinkID
	GuardianID id.UserID
	ChildID    id.UserID
	Status     Status

	Permissions id.PermissionSet

	// CodeHash is the bcrypt hash of the single-use verification code. The
	// plaintext is returned once from the request call and never stored.
	CodeHash      []byte
	CodeExpiresAt *time.Time

	CreatedAt  time.Time
	ApprovedAt *time.Time
	RevokedAt  *time.Time
	RevokedBy  id.Role
}

// PartyRole returns which side of the link the user occupies, or "" when the
// user is not a party at all.
func (l *GuardianLink) PartyRole(userID id.UserID) id.Role {
	switch userID {
	case l.ChildID:
		return id.RoleChild
	case l.GuardianID:
		return id.RoleGuardian
	default:
		return ""
	}
}

// CodeExpired reports whether the verification window has closed. Only
// meaningful while PENDING.
func (l *GuardianLink) CodeExpired(now time.Time) bool {
	return l.CodeExpiresAt != nil && now.After(*l.CodeExpiresAt)
}

// Clone returns an independent copy, so stores can hand out links without
// sharing mutable state.
func (l *GuardianLink) Clone() *GuardianLink {
	out := *l
	out.Permissions = l.Permissions.Clone()
	if l.CodeHash != nil {
		out.CodeHash = append([]byte(nil), l.CodeHash...)
	}
	if l.CodeExpiresAt != nil {
		t := *l.CodeExpiresAt
		out.CodeExpiresAt = &t
	}
	if l.ApprovedAt != nil {
		t := *l.ApprovedAt
		out.ApprovedAt = &t
	}
	if l.RevokedAt != nil {
		t := *l.RevokedAt
		out.RevokedAt = &t
	}
	return &out
}
