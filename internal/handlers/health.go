package handlers

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"studymate/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *sql.DB
	redis *services.RedisService
}

// NewHealthHandler creates a new health handler. Both dependencies are
// optional; a nil db means the in-memory store is active.
func NewHealthHandler(db *sql.DB, redis *services.RedisService) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	database := "memory"
	if h.db != nil {
		database = "ok"
		if err := h.db.PingContext(c.Context()); err != nil {
			database = "unreachable"
		}
	}

	redis := "disabled"
	if h.redis != nil {
		redis = "ok"
		if err := h.redis.Ping(c.Context()); err != nil {
			redis = "unreachable"
		}
	}

	status := "healthy"
	if database == "unreachable" {
		status = "degraded"
	}
	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"database":  database,
		"redis":     redis,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
