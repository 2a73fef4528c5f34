// Package adapters bridges the notification dispatcher to the links domain
// without the links packages importing notifications.
package adapters

import (
	"context"

	linkstore "kindred/internal/links/store"
	id "kindred/pkg/domain"
)

// LinksRoster resolves crisis-alert recipients from the link store: every
// guardian holding an ACTIVE link with RECEIVE_CRISIS_ALERTS.
type LinksRoster struct {
	links linkstore.Store
}

func NewLinksRoster(links linkstore.Store) *LinksRoster {
	return &LinksRoster{links: links}
}

func (r *LinksRoster) ActiveCrisisRecipients(ctx context.Context, childID id.UserID) ([]id.UserID, error) {
	active, err := r.links.ListActiveByChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	var out []id.UserID
	for _, link := range active {
		if link.Permissions.Has(id.PermissionReceiveCrisisAlert) {
			out = append(out, link.GuardianID)
		}
	}
	return out, nil
}
