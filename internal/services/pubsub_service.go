package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Event types published to interested UI instances.
const (
	EventAchievementEarned = "achievement_earned"
	EventStatsUpdated      = "stats_updated"
)

// ProgressEvent is a telemetry event sent via Redis pub/sub so any connected
// frontend instance can refresh its stats and achievement chips live.
type ProgressEvent struct {
	Type      string                 `json:"type"`
	UserID    string                 `json:"userId"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// PubSubService publishes progress events over Redis. A nil service (Redis
// not configured) is valid and publishes nothing.
type PubSubService struct {
	redis *RedisService
}

// NewPubSubService creates a new pub/sub publisher.
func NewPubSubService(redisService *RedisService) *PubSubService {
	return &PubSubService{redis: redisService}
}

// userChannel is the per-user event channel name.
func userChannel(userID string) string {
	return fmt.Sprintf("user:%s:events", userID)
}

// Publish sends an event to the user's channel. Best effort: failures are
// logged and swallowed, matching the rest of the side-effect path.
func (s *PubSubService) Publish(ctx context.Context, userID, eventType string, payload map[string]interface{}) {
	if s == nil || s.redis == nil {
		return
	}

	event := ProgressEvent{
		Type:      eventType,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️  [PUBSUB] Failed to marshal %s event: %v", eventType, err)
		return
	}

	if err := s.redis.Client().Publish(ctx, userChannel(userID), data).Err(); err != nil {
		log.Printf("⚠️  [PUBSUB] Failed to publish %s event for user %s: %v", eventType, userID, err)
	}
}
