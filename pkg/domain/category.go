package domain

// DataCategory names a slice of a child's wellness record as it appears in
// projections and the access log.
type DataCategory string

const (
	CategoryMoodTrends   DataCategory = "mood_trends"
	CategoryAppUsage     DataCategory = "app_usage"
	CategoryAchievements DataCategory = "achievements"

	// Protected categories. These are never addressable by any permission
	// tag and never leave the service, regardless of what a caller asks for.
	CategoryJournalContent  DataCategory = "journal_content"
	CategoryPrivateMessages DataCategory = "private_messages"
	CategoryGroupChat       DataCategory = "group_chat_content"
	CategoryMoodNotes       DataCategory = "detailed_mood_notes"
)

var protectedCategories = map[DataCategory]bool{
	CategoryJournalContent:  true,
	CategoryPrivateMessages: true,
	CategoryGroupChat:       true,
	CategoryMoodNotes:       true,
}

// IsProtected reports whether the category may never be shared.
func (c DataCategory) IsProtected() bool { return protectedCategories[c] }

func (c DataCategory) String() string { return string(c) }

// CategoryForPermission maps a view permission to the category it exposes.
// Permissions that do not expose data (crisis alerts, group approval)
// return "" since they gate side channels, not the projection payload.
func CategoryForPermission(p Permission) DataCategory {
	switch p {
	case PermissionViewMoodTrends:
		return CategoryMoodTrends
	case PermissionViewAppUsage:
		return CategoryAppUsage
	case PermissionViewAchievements:
		return CategoryAchievements
	default:
		return ""
	}
}
