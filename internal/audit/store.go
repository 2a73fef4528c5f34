package audit

import (
	"context"

	id "kindred/pkg/domain"
)

// Store persists audit events. Append-only: no update or delete methods
// exist, here or on any implementation.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListByChild returns every event concerning the child, newest first.
	ListByChild(ctx context.Context, childID id.UserID) ([]Event, error)
	// ListByLink returns every event for one link, newest first. Must keep
	// working after the link reaches a terminal state.
	ListByLink(ctx context.Context, linkID id.LinkID) ([]Event, error)
}
