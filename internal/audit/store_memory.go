package audit

import (
	"context"
	"sort"
	"sync"

	id "kindred/pkg/domain"
)

// InMemoryStore keeps audit events in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByChild(_ context.Context, childID id.UserID) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.ChildID == childID }), nil
}

func (s *InMemoryStore) ListByLink(_ context.Context, linkID id.LinkID) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.LinkID == linkID }), nil
}

func (s *InMemoryStore) filter(keep func(Event) bool) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
