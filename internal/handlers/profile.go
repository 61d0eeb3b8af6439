package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"studymate/internal/models"
	"studymate/internal/store"
)

// ProfileHandler handles user profile and settings requests
type ProfileHandler struct {
	profiles store.ProfileStore
	settings store.SettingsStore
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles store.ProfileStore, settings store.SettingsStore) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, settings: settings}
}

// GetProfile handles GET /api/users/:userId/profile
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID := c.Params("userId")
	profile, err := h.profiles.Get(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [PROFILE] Get failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load profile",
		})
	}
	return c.JSON(profile)
}

// UpdateProfile handles PUT /api/users/:userId/profile
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var profile models.Profile
	if err := c.BodyParser(&profile); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.profiles.Put(c.Context(), userID, profile); err != nil {
		log.Printf("❌ [PROFILE] Update failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save profile",
		})
	}
	return c.JSON(profile)
}

// GetSettings handles GET /api/users/:userId/settings
func (h *ProfileHandler) GetSettings(c *fiber.Ctx) error {
	userID := c.Params("userId")
	settings, err := h.settings.Get(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [PROFILE] Settings get failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load settings",
		})
	}
	return c.JSON(settings)
}

// UpdateSettings handles PUT /api/users/:userId/settings
func (h *ProfileHandler) UpdateSettings(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var settings models.Settings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.settings.Put(c.Context(), userID, settings); err != nil {
		log.Printf("❌ [PROFILE] Settings update failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save settings",
		})
	}
	return c.JSON(settings)
}
