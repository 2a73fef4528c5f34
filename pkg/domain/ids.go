// Package domain holds the primitive value types shared across the service:
// typed IDs, roles, permission tags, and data categories.
//
// IDs are distinct types over uuid.UUID so a LinkID can never be passed where
// a UserID is expected. Construct them via the Parse* functions at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "kindred/pkg/domain-errors"
)

type (
	// UserID identifies a user (guardian or child) in the external directory.
	UserID uuid.UUID
	// LinkID identifies a guardian-child link.
	LinkID uuid.UUID
	// NotificationID identifies a notification record.
	NotificationID uuid.UUID
	// AccessEntryID identifies an access-log entry.
	AccessEntryID uuid.UUID
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseUserID validates external input into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

// ParseLinkID validates external input into a LinkID.
func ParseLinkID(s string) (LinkID, error) {
	u, err := parseUUID(s)
	return LinkID(u), err
}

// ParseNotificationID validates external input into a NotificationID.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s)
	return NotificationID(u), err
}

// NewLinkID mints a fresh link ID.
func NewLinkID() LinkID { return LinkID(uuid.New()) }

// NewNotificationID mints a fresh notification ID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// NewAccessEntryID mints a fresh access-log entry ID.
func NewAccessEntryID() AccessEntryID { return AccessEntryID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id LinkID) String() string         { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id AccessEntryID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id LinkID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's marshalling, so each ID spells
// out the text form explicitly; without these, JSON would carry raw bytes.

func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id LinkID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AccessEntryID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *LinkID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = LinkID(u)
	return nil
}

func (id *NotificationID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = NotificationID(u)
	return nil
}

func (id *AccessEntryID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = AccessEntryID(u)
	return nil
}
