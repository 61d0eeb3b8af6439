package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// UserContext copies the caller-supplied X-User-ID header into the request
// locals. Downstream the chat rate limiter keys on it instead of the IP, and
// the chat handler uses it when the request body carries no user id. The id is
// client-asserted; there is no authentication layer in front of it.
func UserContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID := c.Get("X-User-ID"); userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	}
}
