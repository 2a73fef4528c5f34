package directory

import (
	"context"
	"strings"
	"sync"

	id "kindred/pkg/domain"
	"kindred/pkg/platform/sentinel"
)

// InMemory is a directory fake for tests and local development. The real
// directory lives in the product backend; this service only reads it.
type InMemory struct {
	mu           sync.RWMutex
	users        map[id.UserID]*User
	moods        map[id.UserID]*MoodTrends
	usage        map[id.UserID]*AppUsage
	achievements map[id.UserID][]Achievement
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:        make(map[id.UserID]*User),
		moods:        make(map[id.UserID]*MoodTrends),
		usage:        make(map[id.UserID]*AppUsage),
		achievements: make(map[id.UserID][]Achievement),
	}
}

// AddUser registers a user record.
func (d *InMemory) AddUser(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = &u
}

// SetWellness seeds the raw wellness aggregates for a child.
func (d *InMemory) SetWellness(childID id.UserID, moods MoodTrends, usage AppUsage, achievements []Achievement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moods[childID] = &moods
	d.usage[childID] = &usage
	d.achievements[childID] = achievements
}

// ClearWellness removes every aggregate for a child, modelling an account
// with no recorded activity.
func (d *InMemory) ClearWellness(childID id.UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.moods, childID)
	delete(d.usage, childID)
	delete(d.achievements, childID)
}

func (d *InMemory) FindByEmail(_ context.Context, email string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (d *InMemory) FindByID(_ context.Context, userID id.UserID) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (d *InMemory) MoodTrends(_ context.Context, childID id.UserID) (*MoodTrends, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if m, ok := d.moods[childID]; ok {
		copied := *m
		return &copied, nil
	}
	// nil means no data yet, per the WellnessSource contract.
	return nil, nil
}

func (d *InMemory) AppUsage(_ context.Context, childID id.UserID) (*AppUsage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.usage[childID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (d *InMemory) Achievements(_ context.Context, childID id.UserID) ([]Achievement, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Achievement(nil), d.achievements[childID]...), nil
}
