package domain

import (
	"sort"

	dErrors "kindred/pkg/domain-errors"
)

// Permission is a named grant controlling which non-protected slice of a
// child's wellness data an active link exposes. Tags are additive and
// independently toggleable by the child after approval.
type Permission string

const (
	PermissionViewMoodTrends     Permission = "VIEW_MOOD_TRENDS"
	PermissionViewAppUsage       Permission = "VIEW_APP_USAGE"
	PermissionViewAchievements   Permission = "VIEW_ACHIEVEMENTS"
	PermissionReceiveCrisisAlert Permission = "RECEIVE_CRISIS_ALERTS"
	PermissionApproveGroups      Permission = "APPROVE_GROUPS"
)

// validPermissions is the single source of truth for valid permission tags.
var validPermissions = map[Permission]bool{
	PermissionViewMoodTrends:     true,
	PermissionViewAppUsage:       true,
	PermissionViewAchievements:   true,
	PermissionReceiveCrisisAlert: true,
	PermissionApproveGroups:      true,
}

// ParsePermission constructs a Permission from external input.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !validPermissions[p] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid permission tag: "+s)
	}
	return p, nil
}

func (p Permission) IsValid() bool  { return validPermissions[p] }
func (p Permission) String() string { return string(p) }

// PermissionSet is the set of tags attached to an active link.
type PermissionSet map[Permission]bool

// DefaultPermissions is what approval seeds. Crisis alerts and group
// approval are opt-in only; the child adds them explicitly.
func DefaultPermissions() PermissionSet {
	return PermissionSet{
		PermissionViewMoodTrends:   true,
		PermissionViewAppUsage:     true,
		PermissionViewAchievements: true,
	}
}

// ParsePermissionSet validates a list of tag strings into a set.
// Duplicates collapse; an empty list yields an empty set.
func ParsePermissionSet(tags []string) (PermissionSet, error) {
	set := make(PermissionSet, len(tags))
	for _, tag := range tags {
		p, err := ParsePermission(tag)
		if err != nil {
			return nil, err
		}
		set[p] = true
	}
	return set, nil
}

// Has reports whether the tag is present.
func (s PermissionSet) Has(p Permission) bool { return s[p] }

// IsEmpty reports whether no tags are granted.
func (s PermissionSet) IsEmpty() bool { return len(s) == 0 }

// Clone returns an independent copy.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = true
	}
	return out
}

// Strings returns the tags sorted for stable serialization.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}
