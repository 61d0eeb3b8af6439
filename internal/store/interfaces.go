// Package store defines the keyed repository contracts the core depends on,
// with SQLite, in-memory and (for chat history) MongoDB implementations.
// Durability is last-write-wins per key; counter updates are atomic with
// respect to other writers of the same key.
package store

import (
	"context"
	"errors"
	"time"

	"studymate/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("store: not found")

// StatsStore is the per-user counter repository.
type StatsStore interface {
	Get(ctx context.Context, userID string) (models.UserStats, error)
	// Increment atomically adds delta to the named counter and returns the
	// resulting stats. Concurrent increments for the same key must not lose
	// updates.
	Increment(ctx context.Context, userID, field string, delta int) (models.UserStats, error)
	// SetCounter overwrites a counter. Used only for the recomputed
	// achievements count.
	SetCounter(ctx context.Context, userID, field string, value int) error
}

// AchievementStore is the per-user achievement repository. Get always returns
// the full table in declaration order, merging any persisted earned state.
type AchievementStore interface {
	Get(ctx context.Context, userID string) ([]models.Achievement, error)
	Put(ctx context.Context, userID string, achievements []models.Achievement) error
}

// ActivityStore is the per-user weekday activity repository. Get always
// returns all seven slots, Monday first.
type ActivityStore interface {
	Get(ctx context.Context, userID string) ([]models.ActivityDay, error)
	// Add atomically accumulates delta into the named weekday slot.
	Add(ctx context.Context, userID, day string, delta int) ([]models.ActivityDay, error)
}

// HistoryStore is the durable session transcript repository.
type HistoryStore interface {
	List(ctx context.Context, userID string, limit int) ([]models.ChatHistory, error)
	Get(ctx context.Context, userID, sessionID string) (*models.ChatHistory, error)
	Save(ctx context.Context, h models.ChatHistory) error
	// Prune removes transcripts not updated since the cutoff. Used by the
	// retention job.
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// ProfileStore is the per-user profile repository.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (models.Profile, error)
	Put(ctx context.Context, userID string, p models.Profile) error
}

// SettingsStore is the per-user settings repository.
type SettingsStore interface {
	Get(ctx context.Context, userID string) (models.Settings, error)
	Put(ctx context.Context, userID string, s models.Settings) error
}

// DocumentStore owns uploaded documents and their extracted text.
type DocumentStore interface {
	List(ctx context.Context) ([]models.DocumentRef, error)
	ListProcessed(ctx context.Context) ([]models.DocumentRef, error)
	Get(ctx context.Context, id string) (*models.DocumentRef, error)
	Put(ctx context.Context, doc models.DocumentRef) error
	Delete(ctx context.Context, id string) error
	// DeleteFailedBefore removes failed uploads older than the cutoff.
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Stores bundles every repository for wiring.
type Stores struct {
	Stats        StatsStore
	Achievements AchievementStore
	Activity     ActivityStore
	History      HistoryStore
	Profiles     ProfileStore
	Settings     SettingsStore
	Documents    DocumentStore
}

// mergeAchievements overlays persisted earned state onto the default table so
// callers always see every achievement in declaration order.
func mergeAchievements(stored map[string]models.Achievement) []models.Achievement {
	out := models.DefaultAchievements()
	for i := range out {
		if a, ok := stored[out[i].ID]; ok {
			out[i].Earned = a.Earned
			out[i].EarnedDate = a.EarnedDate
		}
	}
	return out
}

// mergeActivity overlays persisted slot values onto the seven default slots.
func mergeActivity(stored map[string]int) []models.ActivityDay {
	out := models.DefaultActivity()
	for i := range out {
		if v, ok := stored[out[i].Day]; ok {
			out[i].Value = v
		}
	}
	return out
}
