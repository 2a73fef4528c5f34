package directory

import (
	"context"

	id "kindred/pkg/domain"
)

// Resolver looks up users in the external directory.
// Implementations return sentinel.ErrNotFound when no user matches.
type Resolver interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
}

// WellnessSource supplies the raw aggregates the projection service
// minimizes. All three reads are per-child and side-effect free.
// MoodTrends and AppUsage return nil (with no error) when the child has
// no data yet; Achievements returns an empty slice. Absence here is what
// keeps "no data" and "no permission" identical in the projection payload.
type WellnessSource interface {
	MoodTrends(ctx context.Context, childID id.UserID) (*MoodTrends, error)
	AppUsage(ctx context.Context, childID id.UserID) (*AppUsage, error)
	Achievements(ctx context.Context, childID id.UserID) ([]Achievement, error)
}
