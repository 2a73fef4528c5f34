// Package memory is the in-memory link store, used by tests and local
// development. It enforces the same CAS semantics as the Postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kindred/internal/links"
	id "kindred/pkg/domain"
	"kindred/pkg/platform/sentinel"
)

type Store struct {
	mu    sync.RWMutex
	byID  map[id.LinkID]*links.GuardianLink
	order []id.LinkID
}

func New() *Store {
	return &Store{byID: make(map[id.LinkID]*links.GuardianLink)}
}

func (s *Store) Create(_ context.Context, link *links.GuardianLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.GuardianID == link.GuardianID &&
			existing.ChildID == link.ChildID &&
			!existing.Status.IsTerminal() {
			return sentinel.ErrConflict
		}
	}
	s.byID[link.ID] = link.Clone()
	s.order = append(s.order, link.ID)
	return nil
}

func (s *Store) FindByID(_ context.Context, linkID id.LinkID) (*links.GuardianLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.byID[linkID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return link.Clone(), nil
}

func (s *Store) FindCurrentByPair(_ context.Context, guardianID, childID id.UserID) (*links.GuardianLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.byID {
		if link.GuardianID == guardianID && link.ChildID == childID && !link.Status.IsTerminal() {
			return link.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Store) ListByParty(_ context.Context, userID id.UserID, role id.Role) ([]*links.GuardianLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*links.GuardianLink
	for _, linkID := range s.order {
		link := s.byID[linkID]
		if link.PartyRole(userID) == role {
			out = append(out, link.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListActiveByChild(_ context.Context, childID id.UserID) ([]*links.GuardianLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*links.GuardianLink
	for _, linkID := range s.order {
		link := s.byID[linkID]
		if link.ChildID == childID && link.Status == links.StatusActive {
			out = append(out, link.Clone())
		}
	}
	return out, nil
}

func (s *Store) ListPendingExpiredBefore(_ context.Context, cutoff time.Time) ([]*links.GuardianLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*links.GuardianLink
	for _, linkID := range s.order {
		link := s.byID[linkID]
		if link.Status == links.StatusPending &&
			link.CodeExpiresAt != nil && link.CodeExpiresAt.Before(cutoff) {
			out = append(out, link.Clone())
		}
	}
	return out, nil
}

// transition applies mutate under the lock only when the current status
// matches expected. This is the CAS all writes funnel through.
func (s *Store) transition(linkID id.LinkID, expected links.Status, mutate func(*links.GuardianLink)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.byID[linkID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if link.Status != expected {
		return sentinel.ErrInvalidState
	}
	mutate(link)
	return nil
}

func (s *Store) Activate(_ context.Context, linkID id.LinkID, approvedAt time.Time, permissions id.PermissionSet) error {
	return s.transition(linkID, links.StatusPending, func(l *links.GuardianLink) {
		l.Status = links.StatusActive
		l.ApprovedAt = &approvedAt
		l.Permissions = permissions.Clone()
		l.CodeHash = nil
		l.CodeExpiresAt = nil
	})
}

func (s *Store) MarkDenied(_ context.Context, linkID id.LinkID) error {
	return s.transition(linkID, links.StatusPending, func(l *links.GuardianLink) {
		l.Status = links.StatusDenied
		l.CodeHash = nil
		l.CodeExpiresAt = nil
	})
}

func (s *Store) MarkExpired(_ context.Context, linkID id.LinkID) error {
	return s.transition(linkID, links.StatusPending, func(l *links.GuardianLink) {
		l.Status = links.StatusExpired
		l.CodeHash = nil
		l.CodeExpiresAt = nil
	})
}

func (s *Store) Revoke(_ context.Context, linkID id.LinkID, revokedAt time.Time, revokedBy id.Role) error {
	return s.transition(linkID, links.StatusActive, func(l *links.GuardianLink) {
		l.Status = links.StatusRevoked
		l.RevokedAt = &revokedAt
		l.RevokedBy = revokedBy
		l.Permissions = nil
	})
}

func (s *Store) UpdatePermissions(_ context.Context, linkID id.LinkID, permissions id.PermissionSet) error {
	return s.transition(linkID, links.StatusActive, func(l *links.GuardianLink) {
		l.Permissions = permissions.Clone()
	})
}

func (s *Store) ClearCode(_ context.Context, linkID id.LinkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.byID[linkID]
	if !ok {
		return sentinel.ErrNotFound
	}
	link.CodeHash = nil
	return nil
}
