package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred/internal/platform/logger"
	id "kindred/pkg/domain"
)

func newEvent(linkID id.LinkID, guardianID, childID id.UserID, action Action, at time.Time) Event {
	return Event{
		ID:         id.NewAccessEntryID(),
		LinkID:     linkID,
		GuardianID: guardianID,
		ChildID:    childID,
		Timestamp:  at,
		Action:     action,
		ActorRole:  id.RoleGuardian,
	}
}

func TestEmitAppendsToStore(t *testing.T) {
	publisher := NewPublisher(NewInMemoryStore(), nil, "", logger.New())
	ctx := context.Background()
	linkID := id.NewLinkID()
	guardianID := id.UserID(uuid.New())
	childID := id.UserID(uuid.New())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, publisher.Emit(ctx, newEvent(linkID, guardianID, childID, ActionLinkRequested, base)))
	require.NoError(t, publisher.Emit(ctx, newEvent(linkID, guardianID, childID, ActionDataAccessed, base.Add(time.Hour))))

	t.Run("child sees their full trail newest first", func(t *testing.T) {
		entries, err := publisher.ListByChild(ctx, childID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, ActionDataAccessed, entries[0].Action)
		assert.Equal(t, ActionLinkRequested, entries[1].Action)
	})

	t.Run("entries survive link termination", func(t *testing.T) {
		// Nothing in the store mutates or deletes; a later revocation leaves
		// the trail intact by construction. Listing by link still works.
		entries, err := publisher.ListByLink(ctx, linkID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("other children see nothing", func(t *testing.T) {
		entries, err := publisher.ListByChild(ctx, id.UserID(uuid.New()))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestEmitDefaultsTimestamp(t *testing.T) {
	publisher := NewPublisher(NewInMemoryStore(), nil, "", logger.New())
	ctx := context.Background()

	event := newEvent(id.NewLinkID(), id.UserID(uuid.New()), id.UserID(uuid.New()), ActionLinkApproved, time.Time{})
	require.NoError(t, publisher.Emit(ctx, event))

	entries, err := publisher.ListByLink(ctx, event.LinkID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Timestamp.IsZero())
}
