// Package directory is the read-only boundary to the user directory and the
// wellness data it stores. The core never writes through it; the projection
// service reads raw records here and minimizes them before anything leaves
// the service.
package directory

import (
	"time"

	id "kindred/pkg/domain"
)

// User is the slice of the directory record this service needs.
type User struct {
	ID          id.UserID
	Email       string
	DisplayName string
	AccountType id.AccountType

	// ParentCreated marks under-13 accounts that were set up through the
	// parent-initiated flow. Only those may ever be the child side of a link.
	ParentCreated bool
}

// MoodTrends are pre-aggregated averages only. Individual mood entries and
// their free-text notes never cross this boundary.
type MoodTrends struct {
	WeeklyAverage  float64   `json:"weekly_average"`
	MonthlyAverage float64   `json:"monthly_average"`
	CheckInCount   int       `json:"check_in_count"`
	PeriodEnd      time.Time `json:"period_end"`
}

// AppUsage are engagement counters.
type AppUsage struct {
	StreakDays   int `json:"streak_days"`
	DaysActive   int `json:"days_active"`
	GroupsJoined int `json:"groups_joined"`
}

// Achievement is one earned badge.
type Achievement struct {
	Badge    string    `json:"badge"`
	EarnedAt time.Time `json:"earned_at"`
}
