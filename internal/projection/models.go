package projection

import (
	"time"

	"kindred/internal/directory"
	id "kindred/pkg/domain"
)

// ChildView is the permission-filtered summary a guardian sees. Sections
// gated off by the link's permissions, and sections the child has no data
// for, are omitted entirely, not zeroed, so a guardian cannot tell
// restricted data apart from a child who has none.
type ChildView struct {
	ChildID      id.UserID               `json:"child_id"`
	LinkID       id.LinkID               `json:"link_id"`
	GeneratedAt  time.Time               `json:"generated_at"`
	MoodTrends   *directory.MoodTrends   `json:"mood_trends,omitempty"`
	AppUsage     *directory.AppUsage     `json:"app_usage,omitempty"`
	Achievements []directory.Achievement `json:"achievements,omitempty"`
}
