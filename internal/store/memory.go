package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"studymate/internal/models"
)

// NewMemoryStores returns every repository backed by process memory. Used when
// no database path is configured, and by tests. Same locking discipline as the
// durable backends: every read-modify-write happens under the store mutex.
func NewMemoryStores() *Stores {
	return &Stores{
		Stats:        &memStats{stats: make(map[string]models.UserStats)},
		Achievements: &memAchievements{byUser: make(map[string]map[string]models.Achievement)},
		Activity:     &memActivity{byUser: make(map[string]map[string]int)},
		History:      &memHistory{byUser: make(map[string]map[string]models.ChatHistory)},
		Profiles:     &memProfiles{profiles: make(map[string]models.Profile)},
		Settings:     &memSettings{settings: make(map[string]models.Settings)},
		Documents:    &memDocuments{docs: make(map[string]models.DocumentRef)},
	}
}

type memStats struct {
	mu    sync.Mutex
	stats map[string]models.UserStats
}

func (m *memStats) Get(_ context.Context, userID string) (models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[userID], nil
}

func (m *memStats) Increment(_ context.Context, userID, field string, delta int) (models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stats[userID]
	if err := applyStat(&st, field, st.Get(field)+delta); err != nil {
		return models.UserStats{}, err
	}
	m.stats[userID] = st
	return st, nil
}

func (m *memStats) SetCounter(_ context.Context, userID, field string, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stats[userID]
	if err := applyStat(&st, field, value); err != nil {
		return err
	}
	m.stats[userID] = st
	return nil
}

func applyStat(st *models.UserStats, field string, value int) error {
	switch field {
	case models.StatDocumentsAnalyzed:
		st.DocumentsAnalyzed = value
	case models.StatQuestionsAnswered:
		st.QuestionsAnswered = value
	case models.StatStudyHours:
		st.StudyHours = value
	case models.StatExamsPrepared:
		st.ExamsPrepared = value
	case models.StatConversations:
		st.Conversations = value
	case models.StatAchievements:
		st.Achievements = value
	default:
		return fmt.Errorf("unknown stat field %q", field)
	}
	return nil
}

type memAchievements struct {
	mu     sync.Mutex
	byUser map[string]map[string]models.Achievement
}

func (m *memAchievements) Get(_ context.Context, userID string) ([]models.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mergeAchievements(m.byUser[userID]), nil
}

func (m *memAchievements) Put(_ context.Context, userID string, achievements []models.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.byUser[userID]
	if stored == nil {
		stored = make(map[string]models.Achievement)
		m.byUser[userID] = stored
	}
	for _, a := range achievements {
		// earned_date is written once; later saves never overwrite it
		if prev, ok := stored[a.ID]; ok && prev.EarnedDate != nil {
			a.EarnedDate = prev.EarnedDate
		}
		stored[a.ID] = a
	}
	return nil
}

type memActivity struct {
	mu     sync.Mutex
	byUser map[string]map[string]int
}

func (m *memActivity) Get(_ context.Context, userID string) ([]models.ActivityDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mergeActivity(m.byUser[userID]), nil
}

func (m *memActivity) Add(_ context.Context, userID, day string, delta int) ([]models.ActivityDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := m.byUser[userID]
	if slots == nil {
		slots = make(map[string]int)
		m.byUser[userID] = slots
	}
	slots[day] += delta
	return mergeActivity(slots), nil
}

type memHistory struct {
	mu     sync.Mutex
	byUser map[string]map[string]models.ChatHistory
}

func (m *memHistory) List(_ context.Context, userID string, limit int) ([]models.ChatHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatHistory
	for _, h := range m.byUser[userID] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memHistory) Get(_ context.Context, userID, sessionID string) (*models.ChatHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.byUser[userID][sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (m *memHistory) Save(_ context.Context, h models.ChatHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := m.byUser[h.UserID]
	if sessions == nil {
		sessions = make(map[string]models.ChatHistory)
		m.byUser[h.UserID] = sessions
	}
	sessions[h.SessionID] = h
	return nil
}

func (m *memHistory) Prune(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for _, sessions := range m.byUser {
		for id, h := range sessions {
			if h.UpdatedAt.Before(olderThan) {
				delete(sessions, id)
				pruned++
			}
		}
	}
	return pruned, nil
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
}

func (m *memProfiles) Get(_ context.Context, userID string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return models.DefaultProfile(userID), nil
}

func (m *memProfiles) Put(_ context.Context, userID string, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = userID
	m.profiles[userID] = p
	return nil
}

type memSettings struct {
	mu       sync.Mutex
	settings map[string]models.Settings
}

func (m *memSettings) Get(_ context.Context, userID string) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.settings[userID]; ok {
		return s, nil
	}
	return models.DefaultSettings(), nil
}

func (m *memSettings) Put(_ context.Context, userID string, s models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[userID] = s
	return nil
}

type memDocuments struct {
	mu   sync.Mutex
	docs map[string]models.DocumentRef
}

func (m *memDocuments) List(_ context.Context) ([]models.DocumentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(models.DocumentRef) bool { return true }), nil
}

func (m *memDocuments) ListProcessed(_ context.Context) ([]models.DocumentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(d models.DocumentRef) bool {
		return d.Status == models.DocStatusProcessed
	}), nil
}

func (m *memDocuments) sorted(keep func(models.DocumentRef) bool) []models.DocumentRef {
	var out []models.DocumentRef
	for _, d := range m.docs {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out
}

func (m *memDocuments) Get(_ context.Context, id string) (*models.DocumentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *memDocuments) Put(_ context.Context, d models.DocumentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[d.ID] = d
	return nil
}

func (m *memDocuments) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memDocuments) DeleteFailedBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, d := range m.docs {
		if d.Status == models.DocStatusFailed && d.UploadedAt.Before(cutoff) {
			delete(m.docs, id)
			deleted++
		}
	}
	return deleted, nil
}
