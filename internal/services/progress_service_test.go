package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"studymate/internal/config"
	"studymate/internal/models"
	"studymate/internal/store"
)

func testThresholds() config.AchievementThresholds {
	return config.AchievementThresholds{
		QuestionsMilestone:   100,
		StreakDays:           7,
		MasterStudyHours:     1000,
		DocumentExpertCount:  50,
		CollaboratorSessions: 10,
	}
}

func newTestProgressService(t *testing.T) (*ProgressService, *store.Stores) {
	t.Helper()
	stores := store.NewMemoryStores()
	svc := NewProgressService(stores, NewPubSubService(nil), nil, testThresholds())
	return svc, stores
}

func turnSession(id, question string) *models.Session {
	now := time.Now().UTC()
	return &models.Session{
		ID:     id,
		UserID: "u1",
		Messages: []models.Message{
			{ID: 1, Role: models.RoleUser, Text: question, Timestamp: now},
			{ID: 2, Role: models.RoleAssistant, Text: "answer", Timestamp: now},
		},
		UpdatedAt: now,
	}
}

func TestRecordTurnIncrementsQuestionCount(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	svc.RecordTurn(ctx, "u1", turnSession("s1", "What is gravity?"))

	stats, err := stores.Stats.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.QuestionsAnswered != 1 {
		t.Errorf("QuestionsAnswered = %d, want 1", stats.QuestionsAnswered)
	}
	if stats.Conversations != 1 {
		t.Errorf("Conversations = %d, want 1 (first turn of session)", stats.Conversations)
	}
}

func TestRecordTurnCountsConversationOnce(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	sess := turnSession("s1", "first question")
	svc.RecordTurn(ctx, "u1", sess)

	// Second turn of the same session: four messages now.
	now := time.Now().UTC()
	sess.Messages = append(sess.Messages,
		models.Message{ID: 3, Role: models.RoleUser, Text: "followup", Timestamp: now},
		models.Message{ID: 4, Role: models.RoleAssistant, Text: "answer", Timestamp: now},
	)
	svc.RecordTurn(ctx, "u1", sess)

	stats, _ := stores.Stats.Get(ctx, "u1")
	if stats.QuestionsAnswered != 2 {
		t.Errorf("QuestionsAnswered = %d, want 2", stats.QuestionsAnswered)
	}
	if stats.Conversations != 1 {
		t.Errorf("Conversations = %d, want 1 (same session)", stats.Conversations)
	}
}

func TestHundredQuestionsMilestone(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	// 99 answered questions: milestone not yet earned.
	if _, err := stores.Stats.Increment(ctx, "u1", models.StatQuestionsAnswered, 99); err != nil {
		t.Fatal(err)
	}
	if err := svc.EvaluateAchievements(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if a := findAchievement(t, stores, "u1", models.AchHundredQs); a.Earned {
		t.Fatal("milestone earned at 99 questions")
	}

	earnedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return earnedAt })

	// The 100th question crosses the threshold exactly once.
	svc.RecordTurn(ctx, "u1", turnSession("s1", "the hundredth question"))

	a := findAchievement(t, stores, "u1", models.AchHundredQs)
	if !a.Earned {
		t.Fatal("milestone not earned at 100 questions")
	}
	if a.EarnedDate == nil || !a.EarnedDate.Equal(earnedAt) {
		t.Errorf("EarnedDate = %v, want %v", a.EarnedDate, earnedAt)
	}

	stats, _ := stores.Stats.Get(ctx, "u1")
	if stats.Achievements != 1 {
		t.Errorf("Achievements counter = %d, want 1", stats.Achievements)
	}

	// Later turns must not reset the earned date.
	svc.SetNow(func() time.Time { return earnedAt.Add(48 * time.Hour) })
	svc.RecordTurn(ctx, "u1", turnSession("s2", "another question"))

	a = findAchievement(t, stores, "u1", models.AchHundredQs)
	if !a.Earned {
		t.Fatal("achievement regressed to unearned")
	}
	if !a.EarnedDate.Equal(earnedAt) {
		t.Errorf("EarnedDate changed: %v, want original %v", a.EarnedDate, earnedAt)
	}
}

func TestRecordTurnUpdatesWeekdaySlot(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	// Tuesday 2026-03-10.
	tuesday := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	if tuesday.Weekday() != time.Tuesday {
		t.Fatal("fixture is not a Tuesday")
	}
	svc.SetNow(func() time.Time { return tuesday })

	svc.RecordTurn(ctx, "u1", turnSession("s1", "evening study question"))

	activity, err := stores.Activity.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	for _, day := range activity {
		want := 0
		if day.Day == "Tue" {
			want = 1
		}
		if day.Value != want {
			t.Errorf("slot %s = %d, want %d", day.Day, day.Value, want)
		}
	}
}

func TestWeekStreakAchievement(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	for _, day := range models.Weekdays[:6] {
		if _, err := stores.Activity.Add(ctx, "u1", day, 1); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.EvaluateAchievements(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if a := findAchievement(t, stores, "u1", models.AchWeekStreak); a.Earned {
		t.Fatal("streak earned with only 6 active days")
	}

	if _, err := stores.Activity.Add(ctx, "u1", models.Weekdays[6], 1); err != nil {
		t.Fatal(err)
	}
	if err := svc.EvaluateAchievements(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if a := findAchievement(t, stores, "u1", models.AchWeekStreak); !a.Earned {
		t.Error("streak not earned with all 7 days active")
	}
}

func TestRecordDocumentProcessedEarnsFirstUpload(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	svc.RecordDocumentProcessed(ctx, "u1")

	stats, _ := stores.Stats.Get(ctx, "u1")
	if stats.DocumentsAnalyzed != 1 {
		t.Errorf("DocumentsAnalyzed = %d, want 1", stats.DocumentsAnalyzed)
	}
	if a := findAchievement(t, stores, "u1", models.AchFirstUpload); !a.Earned {
		t.Error("first-upload not earned after first processed document")
	}
}

func TestUnlockAchievementIdempotent(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return first })
	if _, err := svc.UnlockAchievement(ctx, "u1", models.AchFirstUpload); err != nil {
		t.Fatal(err)
	}

	svc.SetNow(func() time.Time { return first.Add(time.Hour) })
	achievements, err := svc.UnlockAchievement(ctx, "u1", models.AchFirstUpload)
	if err != nil {
		t.Fatal(err)
	}

	for _, a := range achievements {
		if a.ID != models.AchFirstUpload {
			continue
		}
		if a.EarnedDate == nil || !a.EarnedDate.Equal(first) {
			t.Errorf("EarnedDate = %v, want first unlock time %v", a.EarnedDate, first)
		}
	}

	stats, _ := stores.Stats.Get(ctx, "u1")
	if stats.Achievements != 1 {
		t.Errorf("Achievements counter = %d, want 1", stats.Achievements)
	}
}

func TestUnlockUnknownAchievement(t *testing.T) {
	svc, _ := newTestProgressService(t)

	if _, err := svc.UnlockAchievement(context.Background(), "u1", "no-such-badge"); err == nil {
		t.Fatal("expected error for unknown achievement id")
	}
}

func TestRecordTurnSavesHistoryWithDerivedTitle(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	long := strings.Repeat("India's first constitution draft explained ", 3)
	svc.RecordTurn(ctx, "u1", turnSession("s1", long))

	entry, err := stores.History.Get(ctx, "u1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(entry.Title, "...") {
		t.Errorf("Title = %q, want truncated with ellipsis", entry.Title)
	}
	if got := len([]rune(entry.Title)); got != 53 {
		t.Errorf("title length = %d runes, want 50 + ellipsis", got)
	}
	if len(entry.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(entry.Messages))
	}
}

func TestRecordTurnKeepsOriginalTitle(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	sess := turnSession("s1", "short title")
	svc.RecordTurn(ctx, "u1", sess)

	now := time.Now().UTC()
	sess.Messages = append(sess.Messages,
		models.Message{ID: 3, Role: models.RoleUser, Text: "a totally different question", Timestamp: now},
		models.Message{ID: 4, Role: models.RoleAssistant, Text: "answer", Timestamp: now},
	)
	svc.RecordTurn(ctx, "u1", sess)

	entry, err := stores.History.Get(ctx, "u1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Title != "short title" {
		t.Errorf("Title = %q, want original first-message title", entry.Title)
	}
	if len(entry.Messages) != 4 {
		t.Errorf("len(Messages) = %d, want full transcript", len(entry.Messages))
	}
}

// slowAchievements widens the read-evaluate-write window on the achievements
// table so interleavings have room to go wrong.
type slowAchievements struct {
	store.AchievementStore
}

func (s slowAchievements) Get(ctx context.Context, userID string) ([]models.Achievement, error) {
	achievements, err := s.AchievementStore.Get(ctx, userID)
	time.Sleep(time.Millisecond)
	return achievements, err
}

func TestEvaluateAchievementsDoesNotRegressConcurrentUnlock(t *testing.T) {
	stores := store.NewMemoryStores()
	stores.Achievements = slowAchievements{stores.Achievements}
	svc := NewProgressService(stores, NewPubSubService(nil), nil, testThresholds())
	ctx := context.Background()

	// Enough answered questions that the evaluation wants to write the
	// milestone row back.
	if _, err := stores.Stats.Increment(ctx, "u1", models.StatQuestionsAnswered, 100); err != nil {
		t.Fatal(err)
	}

	// A manual unlock racing the increment-path evaluation (two browser
	// tabs). A stale evaluation writing its whole slice back would flip
	// first-upload to unearned.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := svc.EvaluateAchievements(ctx, "u1"); err != nil {
			t.Errorf("evaluate: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := svc.UnlockAchievement(ctx, "u1", models.AchFirstUpload); err != nil {
			t.Errorf("unlock: %v", err)
		}
	}()
	wg.Wait()

	if a := findAchievement(t, stores, "u1", models.AchFirstUpload); !a.Earned {
		t.Fatal("first-upload regressed to unearned: stale evaluation overwrote the concurrent unlock")
	}
	if a := findAchievement(t, stores, "u1", models.AchHundredQs); !a.Earned {
		t.Fatal("milestone missing after evaluation")
	}
	stats, _ := stores.Stats.Get(ctx, "u1")
	if stats.Achievements != 2 {
		t.Errorf("Achievements counter = %d, want 2", stats.Achievements)
	}
}

func TestConcurrentRecordTurnLosesNoUpdates(t *testing.T) {
	svc, stores := newTestProgressService(t)
	ctx := context.Background()

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.RecordTurn(ctx, "u1", turnSession("s1", "question"))
		}(i)
	}
	wg.Wait()

	stats, err := stores.Stats.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.QuestionsAnswered != turns {
		t.Errorf("QuestionsAnswered = %d, want %d", stats.QuestionsAnswered, turns)
	}
}

func findAchievement(t *testing.T, stores *store.Stores, userID, id string) models.Achievement {
	t.Helper()
	achievements, err := stores.Achievements.Get(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range achievements {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("achievement %q missing from table", id)
	return models.Achievement{}
}
