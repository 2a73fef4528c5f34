// Package store defines the persistence contract for guardian links.
//
// Every status change goes through a compare-and-swap method: the store
// applies the write only when the current status still matches the expected
// one and returns sentinel.ErrInvalidState otherwise. Services never
// check-then-write.
package store

import (
	"context"
	"time"

	"kindred/internal/links"
	id "kindred/pkg/domain"
)

type Store interface {
	// Create inserts a new PENDING link. Returns sentinel.ErrConflict when a
	// PENDING or ACTIVE link already exists for the (guardian, child) pair.
	Create(ctx context.Context, link *links.GuardianLink) error

	// FindByID returns sentinel.ErrNotFound when no link exists.
	FindByID(ctx context.Context, linkID id.LinkID) (*links.GuardianLink, error)

	// FindCurrentByPair returns the PENDING or ACTIVE link for the pair, or
	// sentinel.ErrNotFound when only terminal links (or none) exist.
	FindCurrentByPair(ctx context.Context, guardianID, childID id.UserID) (*links.GuardianLink, error)

	// ListByParty returns all links where the user occupies the given side,
	// newest first.
	ListByParty(ctx context.Context, userID id.UserID, role id.Role) ([]*links.GuardianLink, error)

	// ListActiveByChild returns the child's ACTIVE links (crisis routing).
	ListActiveByChild(ctx context.Context, childID id.UserID) ([]*links.GuardianLink, error)

	// ListPendingExpiredBefore returns PENDING links whose code deadline has
	// passed, for the sweeper.
	ListPendingExpiredBefore(ctx context.Context, cutoff time.Time) ([]*links.GuardianLink, error)

	// Activate transitions PENDING -> ACTIVE, seeding permissions and
	// clearing the code fields.
	Activate(ctx context.Context, linkID id.LinkID, approvedAt time.Time, permissions id.PermissionSet) error

	// MarkDenied transitions PENDING -> DENIED and clears the code fields.
	MarkDenied(ctx context.Context, linkID id.LinkID) error

	// MarkExpired transitions PENDING -> EXPIRED and clears the code fields.
	MarkExpired(ctx context.Context, linkID id.LinkID) error

	// Revoke transitions ACTIVE -> REVOKED and clears permissions.
	Revoke(ctx context.Context, linkID id.LinkID, revokedAt time.Time, revokedBy id.Role) error

	// UpdatePermissions replaces the permission set while ACTIVE.
	UpdatePermissions(ctx context.Context, linkID id.LinkID, permissions id.PermissionSet) error

	// ClearCode drops the code hash so a verified code can never be replayed,
	// regardless of whether the surrounding transition succeeds.
	ClearCode(ctx context.Context, linkID id.LinkID) error
}
