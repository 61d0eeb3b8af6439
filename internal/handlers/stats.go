package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"studymate/internal/models"
	"studymate/internal/services"
	"studymate/internal/store"
)

// StatsHandler handles study statistics, activity and achievement requests
type StatsHandler struct {
	stats    store.StatsStore
	activity store.ActivityStore
	progress *services.ProgressService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats store.StatsStore, activity store.ActivityStore, progress *services.ProgressService) *StatsHandler {
	return &StatsHandler{stats: stats, activity: activity, progress: progress}
}

// GetStats handles GET /api/users/:userId/stats
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	userID := c.Params("userId")
	stats, err := h.stats.Get(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [STATS] Get failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load stats",
		})
	}
	return c.JSON(stats)
}

// IncrementStat handles POST /api/users/:userId/stats/increment
func (h *StatsHandler) IncrementStat(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var req struct {
		Field string `json:"field"`
		Delta int    `json:"delta"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if !models.IsValidStatField(req.Field) || req.Field == models.StatAchievements {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown stat field",
		})
	}
	if req.Delta == 0 {
		req.Delta = 1
	}

	stats, err := h.stats.Increment(c.Context(), userID, req.Field, req.Delta)
	if err != nil {
		log.Printf("❌ [STATS] Increment %s failed for user %s: %v", req.Field, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update stats",
		})
	}

	// Manual increments can cross achievement thresholds too.
	if err := h.progress.EvaluateAchievements(c.Context(), userID); err != nil {
		log.Printf("⚠️  [STATS] Achievement evaluation failed for user %s: %v", userID, err)
	}
	return c.JSON(stats)
}

// AddActivity handles POST /api/users/:userId/activity
func (h *StatsHandler) AddActivity(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var req struct {
		Day   string `json:"day"`
		Delta int    `json:"delta"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if !models.IsValidWeekday(req.Day) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown weekday slot",
		})
	}
	if req.Delta == 0 {
		req.Delta = 1
	}

	activity, err := h.activity.Add(c.Context(), userID, req.Day, req.Delta)
	if err != nil {
		log.Printf("❌ [STATS] Activity add failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update activity",
		})
	}
	return c.JSON(fiber.Map{"activity": activity})
}

// GetActivity handles GET /api/users/:userId/activity
func (h *StatsHandler) GetActivity(c *fiber.Ctx) error {
	userID := c.Params("userId")
	activity, err := h.activity.Get(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [STATS] Activity get failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load activity",
		})
	}
	return c.JSON(fiber.Map{"activity": activity})
}
