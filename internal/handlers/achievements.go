package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"studymate/internal/services"
	"studymate/internal/store"
)

// AchievementHandler handles achievement listing and manual unlocks
type AchievementHandler struct {
	achievements store.AchievementStore
	progress     *services.ProgressService
}

// NewAchievementHandler creates a new achievement handler
func NewAchievementHandler(achievements store.AchievementStore, progress *services.ProgressService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements, progress: progress}
}

// List handles GET /api/users/:userId/achievements
func (h *AchievementHandler) List(c *fiber.Ctx) error {
	userID := c.Params("userId")
	achievements, err := h.achievements.Get(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [ACHIEVEMENTS] Get failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load achievements",
		})
	}
	return c.JSON(fiber.Map{"achievements": achievements})
}

// Unlock handles POST /api/users/:userId/achievements/:id
func (h *AchievementHandler) Unlock(c *fiber.Ctx) error {
	userID := c.Params("userId")
	achievementID := c.Params("id")

	achievements, err := h.progress.UnlockAchievement(c.Context(), userID, achievementID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown achievement",
			})
		}
		log.Printf("❌ [ACHIEVEMENTS] Unlock %s failed for user %s: %v", achievementID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to unlock achievement",
		})
	}
	return c.JSON(fiber.Map{"achievements": achievements})
}
