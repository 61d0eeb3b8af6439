package services

import (
	"context"
	"log"
	"sync"
	"time"

	"studymate/internal/config"
	"studymate/internal/models"
	"studymate/internal/store"
)

// Side-effect step names, used for failure metrics and logs.
const (
	stepStats        = "stats"
	stepActivity     = "activity"
	stepAchievements = "achievements"
	stepHistory      = "history"
)

// achievementRule maps one achievement id to a pure predicate over the user's
// stats and activity. Evaluation is uniform: adding an achievement means
// adding a row here, nothing else.
type achievementRule struct {
	id        string
	satisfied func(s models.UserStats, activity []models.ActivityDay) bool
}

// ProgressService is the side-effect coordinator. After a successful turn it
// updates stats, activity, achievements and durable history. Every sub-step
// is independent and best-effort: failures are logged and counted, never
// surfaced, and never touch the reply already returned to the caller.
type ProgressService struct {
	stats        store.StatsStore
	achievements store.AchievementStore
	activity     store.ActivityStore
	history      store.HistoryStore
	pubsub       *PubSubService
	metrics      *Metrics
	rules        []achievementRule

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-user serialization of the update path

	now func() time.Time // injectable for tests
}

// NewProgressService creates a new progress service with the achievement rule
// table built from the configured thresholds.
func NewProgressService(
	stores *store.Stores,
	pubsub *PubSubService,
	metrics *Metrics,
	thresholds config.AchievementThresholds,
) *ProgressService {
	return &ProgressService{
		stats:        stores.Stats,
		achievements: stores.Achievements,
		activity:     stores.Activity,
		history:      stores.History,
		pubsub:       pubsub,
		metrics:      metrics,
		rules:        buildAchievementRules(thresholds),
		locks:        make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

func buildAchievementRules(t config.AchievementThresholds) []achievementRule {
	return []achievementRule{
		{models.AchFirstUpload, func(s models.UserStats, _ []models.ActivityDay) bool {
			return s.DocumentsAnalyzed >= 1
		}},
		{models.AchHundredQs, func(s models.UserStats, _ []models.ActivityDay) bool {
			return s.QuestionsAnswered >= t.QuestionsMilestone
		}},
		{models.AchWeekStreak, func(_ models.UserStats, activity []models.ActivityDay) bool {
			nonzero := 0
			for _, day := range activity {
				if day.Value > 0 {
					nonzero++
				}
			}
			return nonzero >= t.StreakDays
		}},
		{models.AchMasterLearner, func(s models.UserStats, _ []models.ActivityDay) bool {
			return s.StudyHours >= t.MasterStudyHours
		}},
		{models.AchDocumentExpert, func(s models.UserStats, _ []models.ActivityDay) bool {
			return s.DocumentsAnalyzed >= t.DocumentExpertCount
		}},
		{models.AchAICollaborator, func(s models.UserStats, _ []models.ActivityDay) bool {
			return s.Conversations >= t.CollaboratorSessions
		}},
	}
}

// userLock returns the mutex serializing progress updates for one user, so
// two turns completing concurrently (two browser tabs) cannot interleave the
// achievement read-evaluate-write cycle.
func (s *ProgressService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// RecordTurn runs all bookkeeping for one completed turn. Each sub-step is
// independent: one failing must not prevent or roll back the others.
func (s *ProgressService) RecordTurn(ctx context.Context, userID string, sess *models.Session) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.stats.Increment(ctx, userID, models.StatQuestionsAnswered, 1); err != nil {
		s.logFailure(stepStats, userID, err)
	}

	// First completed turn of a session counts as a new conversation.
	if len(sess.Messages) == 2 {
		if _, err := s.stats.Increment(ctx, userID, models.StatConversations, 1); err != nil {
			s.logFailure(stepStats, userID, err)
		}
	}

	day := s.now().Format("Mon")
	if _, err := s.activity.Add(ctx, userID, day, 1); err != nil {
		s.logFailure(stepActivity, userID, err)
	}

	if err := s.evaluateAchievements(ctx, userID); err != nil {
		s.logFailure(stepAchievements, userID, err)
	}

	if err := s.persistHistory(ctx, userID, sess); err != nil {
		s.logFailure(stepHistory, userID, err)
	}

	if stats, err := s.stats.Get(ctx, userID); err == nil {
		s.pubsub.Publish(ctx, userID, EventStatsUpdated, map[string]interface{}{
			"questionsAnswered": stats.QuestionsAnswered,
			"conversations":     stats.Conversations,
		})
	}
}

// RecordDocumentProcessed runs the bookkeeping for one successfully processed
// upload.
func (s *ProgressService) RecordDocumentProcessed(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.stats.Increment(ctx, userID, models.StatDocumentsAnalyzed, 1); err != nil {
		s.logFailure(stepStats, userID, err)
	}
	if err := s.evaluateAchievements(ctx, userID); err != nil {
		s.logFailure(stepAchievements, userID, err)
	}
}

// EvaluateAchievements re-runs the rule table under the user's progress lock.
// For callers outside the coordinator (the manual stats-increment endpoint);
// internal callers already hold the lock and use evaluateAchievements.
func (s *ProgressService) EvaluateAchievements(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.evaluateAchievements(ctx, userID)
}

// evaluateAchievements applies every rule against the user's current stats
// and activity. Already-earned achievements are untouched (monotonic: the
// earned flag is never cleared and earnedDate is written exactly once), so
// re-running the evaluation is a no-op when nothing new is satisfied. Callers
// must hold the user's progress lock.
func (s *ProgressService) evaluateAchievements(ctx context.Context, userID string) error {
	stats, err := s.stats.Get(ctx, userID)
	if err != nil {
		return err
	}
	activity, err := s.activity.Get(ctx, userID)
	if err != nil {
		return err
	}
	achievements, err := s.achievements.Get(ctx, userID)
	if err != nil {
		return err
	}

	byID := make(map[string]*models.Achievement, len(achievements))
	for i := range achievements {
		byID[achievements[i].ID] = &achievements[i]
	}

	changed := false
	for _, rule := range s.rules {
		a, ok := byID[rule.id]
		if !ok || a.Earned {
			continue
		}
		if rule.satisfied(stats, activity) {
			earnedAt := s.now().UTC()
			a.Earned = true
			a.EarnedDate = &earnedAt
			changed = true

			log.Printf("🏆 [PROGRESS] User %s earned achievement %q", userID, a.ID)
			s.pubsub.Publish(ctx, userID, EventAchievementEarned, map[string]interface{}{
				"achievementId": a.ID,
				"title":         a.Title,
			})
		}
	}

	if !changed {
		return nil
	}

	if err := s.achievements.Put(ctx, userID, achievements); err != nil {
		return err
	}

	earned := 0
	for _, a := range achievements {
		if a.Earned {
			earned++
		}
	}
	return s.stats.SetCounter(ctx, userID, models.StatAchievements, earned)
}

// UnlockAchievement force-earns one achievement (manual unlock endpoint, e.g.
// first-upload triggered by the UI). Idempotent: unlocking an earned
// achievement changes nothing.
func (s *ProgressService) UnlockAchievement(ctx context.Context, userID, achievementID string) ([]models.Achievement, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	achievements, err := s.achievements.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range achievements {
		if achievements[i].ID != achievementID {
			continue
		}
		found = true
		if !achievements[i].Earned {
			earnedAt := s.now().UTC()
			achievements[i].Earned = true
			achievements[i].EarnedDate = &earnedAt
		}
	}
	if !found {
		return nil, store.ErrNotFound
	}

	if err := s.achievements.Put(ctx, userID, achievements); err != nil {
		return nil, err
	}

	earned := 0
	for _, a := range achievements {
		if a.Earned {
			earned++
		}
	}
	if err := s.stats.SetCounter(ctx, userID, models.StatAchievements, earned); err != nil {
		return nil, err
	}
	return achievements, nil
}

// persistHistory saves the session transcript, deriving the title from the
// first user message on first save: 50 characters, with an ellipsis when
// truncated.
func (s *ProgressService) persistHistory(ctx context.Context, userID string, sess *models.Session) error {
	title := "Untitled Chat"
	if existing, err := s.history.Get(ctx, userID, sess.ID); err == nil {
		title = existing.Title
	} else if first, ok := sess.FirstUserMessage(); ok {
		title = deriveTitle(first.Text)
	}

	return s.history.Save(ctx, models.ChatHistory{
		UserID:    userID,
		SessionID: sess.ID,
		Title:     title,
		Messages:  sess.Messages,
		UpdatedAt: s.now().UTC(),
	})
}

// deriveTitle truncates a message to 50 characters for the history listing.
func deriveTitle(text string) string {
	const maxTitle = 50
	runes := []rune(text)
	if len(runes) <= maxTitle {
		return text
	}
	return string(runes[:maxTitle]) + "..."
}

// SetNow overrides the clock. Tests only.
func (s *ProgressService) SetNow(now func() time.Time) {
	s.now = now
}

func (s *ProgressService) logFailure(step, userID string, err error) {
	s.metrics.RecordSideEffectFailure(step)
	log.Printf("⚠️  [PROGRESS] %s update failed for user %s: %v", step, userID, err)
}
