package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studymate/internal/models"
)

func TestMemoryStatsConcurrentIncrements(t *testing.T) {
	stores := NewMemoryStores()
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := stores.Stats.Increment(ctx, "u1", models.StatQuestionsAnswered, 1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	stats, err := stores.Stats.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.QuestionsAnswered != workers {
		t.Errorf("QuestionsAnswered = %d, want %d (lost updates)", stats.QuestionsAnswered, workers)
	}
}

func TestMemoryStatsUnknownField(t *testing.T) {
	stores := NewMemoryStores()

	if _, err := stores.Stats.Increment(context.Background(), "u1", "bogus", 1); err == nil {
		t.Fatal("expected error for unknown stat field")
	}
}

func TestMemoryAchievementsFullTable(t *testing.T) {
	stores := NewMemoryStores()

	achievements, err := stores.Achievements.Get(context.Background(), "new-user")
	if err != nil {
		t.Fatal(err)
	}
	defaults := models.DefaultAchievements()
	if len(achievements) != len(defaults) {
		t.Fatalf("len = %d, want full table of %d", len(achievements), len(defaults))
	}
	for i, a := range achievements {
		if a.ID != defaults[i].ID {
			t.Errorf("achievements[%d].ID = %q, want declaration order %q", i, a.ID, defaults[i].ID)
		}
		if a.Earned {
			t.Errorf("achievement %q earned for a new user", a.ID)
		}
	}
}

func TestMemoryAchievementsEarnedDateWrittenOnce(t *testing.T) {
	stores := NewMemoryStores()
	ctx := context.Background()

	first := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	achievements, _ := stores.Achievements.Get(ctx, "u1")
	achievements[0].Earned = true
	achievements[0].EarnedDate = &first
	if err := stores.Achievements.Put(ctx, "u1", achievements); err != nil {
		t.Fatal(err)
	}

	// A later save carrying a different date must not move the original.
	later := first.Add(72 * time.Hour)
	achievements[0].EarnedDate = &later
	if err := stores.Achievements.Put(ctx, "u1", achievements); err != nil {
		t.Fatal(err)
	}

	got, _ := stores.Achievements.Get(ctx, "u1")
	if got[0].EarnedDate == nil || !got[0].EarnedDate.Equal(first) {
		t.Errorf("EarnedDate = %v, want original %v", got[0].EarnedDate, first)
	}
}

func TestMemoryActivityAllSlots(t *testing.T) {
	stores := NewMemoryStores()
	ctx := context.Background()

	activity, err := stores.Activity.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(activity) != 7 {
		t.Fatalf("len = %d, want 7 slots", len(activity))
	}
	if activity[0].Day != "Mon" || activity[6].Day != "Sun" {
		t.Errorf("slot order = %s..%s, want Mon..Sun", activity[0].Day, activity[6].Day)
	}

	if _, err := stores.Activity.Add(ctx, "u1", "Wed", 3); err != nil {
		t.Fatal(err)
	}
	activity, _ = stores.Activity.Get(ctx, "u1")
	for _, slot := range activity {
		want := 0
		if slot.Day == "Wed" {
			want = 3
		}
		if slot.Value != want {
			t.Errorf("slot %s = %d, want %d", slot.Day, slot.Value, want)
		}
	}
}

func TestMemoryHistoryRoundTrip(t *testing.T) {
	stores := NewMemoryStores()
	ctx := context.Background()

	now := time.Now().UTC()
	entry := models.ChatHistory{
		UserID:    "u1",
		SessionID: "s1",
		Title:     "Krebs cycle",
		Messages:  []models.Message{{ID: 1, Role: models.RoleUser, Text: "hi", Timestamp: now}},
		UpdatedAt: now,
	}
	if err := stores.History.Save(ctx, entry); err != nil {
		t.Fatal(err)
	}

	got, err := stores.History.Get(ctx, "u1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Krebs cycle" || len(got.Messages) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if _, err := stores.History.Get(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryHistoryListNewestFirst(t *testing.T) {
	stores := NewMemoryStores()
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		if err := stores.History.Save(ctx, models.ChatHistory{
			UserID:    "u1",
			SessionID: id,
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := stores.History.List(ctx, "u1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want limit 2", len(entries))
	}
	if entries[0].SessionID != "new" || entries[1].SessionID != "mid" {
		t.Errorf("order = [%s %s], want newest first", entries[0].SessionID, entries[1].SessionID)
	}
}

func TestMemoryHistoryPrune(t *testing.T) {
	stores := NewMemoryStores()
	ctx := context.Background()

	cutoff := time.Now().UTC()
	stale := models.ChatHistory{UserID: "u1", SessionID: "stale", UpdatedAt: cutoff.Add(-time.Hour)}
	fresh := models.ChatHistory{UserID: "u1", SessionID: "fresh", UpdatedAt: cutoff.Add(time.Hour)}
	if err := stores.History.Save(ctx, stale); err != nil {
		t.Fatal(err)
	}
	if err := stores.History.Save(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	pruned, err := stores.History.Prune(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
	if _, err := stores.History.Get(ctx, "u1", "fresh"); err != nil {
		t.Errorf("fresh entry pruned: %v", err)
	}
}

func TestMemoryDocuments(t *testing.T) {
	stores := NewMemoryStores()
	ctx := context.Background()

	base := time.Now().UTC()
	docs := []models.DocumentRef{
		{ID: "d2", Name: "second.pdf", Status: models.DocStatusProcessed, UploadedAt: base.Add(time.Minute)},
		{ID: "d1", Name: "first.pdf", Status: models.DocStatusProcessed, UploadedAt: base},
		{ID: "d3", Name: "broken.pdf", Status: models.DocStatusFailed, UploadedAt: base.Add(2 * time.Minute)},
	}
	for _, d := range docs {
		if err := stores.Documents.Put(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	processed, err := stores.Documents.ListProcessed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(processed) != 2 {
		t.Fatalf("len(processed) = %d, want 2", len(processed))
	}
	if processed[0].ID != "d1" || processed[1].ID != "d2" {
		t.Errorf("processed order = [%s %s], want upload order [d1 d2]", processed[0].ID, processed[1].ID)
	}

	if err := stores.Documents.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}

	deleted, err := stores.Documents.DeleteFailedBefore(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("DeleteFailedBefore = %d, want 1", deleted)
	}
	if _, err := stores.Documents.Get(ctx, "d3"); !errors.Is(err, ErrNotFound) {
		t.Error("failed document survived cleanup")
	}
}
