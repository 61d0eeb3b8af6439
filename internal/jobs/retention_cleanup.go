package jobs

import (
	"context"
	"log"
	"time"

	"studymate/internal/store"
)

// HistoryRetentionJob prunes saved conversations that have not been touched
// within the retention window.
type HistoryRetentionJob struct {
	history   store.HistoryStore
	retention time.Duration
	interval  time.Duration
}

// NewHistoryRetentionJob creates a new history retention job
func NewHistoryRetentionJob(history store.HistoryStore, retention, interval time.Duration) *HistoryRetentionJob {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &HistoryRetentionJob{history: history, retention: retention, interval: interval}
}

// Run deletes transcripts older than the retention window
func (j *HistoryRetentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.history.Prune(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("🧹 [RETENTION] Pruned %d conversations older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return nil
}

// Interval returns the pause between runs
func (j *HistoryRetentionJob) Interval() time.Duration {
	return j.interval
}

// FailedUploadCleanupJob removes documents stuck in the failed state so the
// corpus listing does not accumulate dead entries.
type FailedUploadCleanupJob struct {
	documents store.DocumentStore
	maxAge    time.Duration
	interval  time.Duration
}

// NewFailedUploadCleanupJob creates a new failed upload cleanup job
func NewFailedUploadCleanupJob(documents store.DocumentStore, maxAge, interval time.Duration) *FailedUploadCleanupJob {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &FailedUploadCleanupJob{documents: documents, maxAge: maxAge, interval: interval}
}

// Run deletes failed uploads older than the max age
func (j *FailedUploadCleanupJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.maxAge)
	deleted, err := j.documents.DeleteFailedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("🧹 [RETENTION] Removed %d failed uploads", deleted)
	}
	return nil
}

// Interval returns the pause between runs
func (j *FailedUploadCleanupJob) Interval() time.Duration {
	return j.interval
}
