package notifications

import (
	"context"
	"sort"
	"sync"

	id "kindred/pkg/domain"
	"kindred/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[id.NotificationID]*Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.NotificationID]*Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *n
	s.byID[n.ID] = &copied
	return nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, userID id.UserID, onlyUnread bool) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Notification
	for _, n := range s.byID {
		if n.RecipientID != userID {
			continue
		}
		if onlyUnread && n.Read {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.byID {
		if n.RecipientID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, notificationID id.NotificationID, callerID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[notificationID]
	// Missing and not-owned collapse to the same answer.
	if !ok || n.RecipientID != callerID {
		return sentinel.ErrNotFound
	}
	n.Read = true
	return nil
}
