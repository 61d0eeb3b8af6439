package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"studymate/internal/models"
	"studymate/internal/services"
)

// ChatHandler handles conversation turn requests
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessage handles POST /api/chat/message. Every outcome except a backend
// or validation failure returns 200 with the formatted reply; a backend
// failure maps to 502 so the client can show the retry affordance.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req models.TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   services.ErrKindValidation,
			"message": "Invalid request body",
		})
	}

	if req.UserID == "" {
		if userID, ok := c.Locals("user_id").(string); ok {
			req.UserID = userID
		}
	}

	resp, err := h.chatService.ProcessMessage(c.Context(), req)
	if err != nil {
		return h.turnError(c, err)
	}
	return c.JSON(resp)
}

// ClearSession handles POST /api/chat/clear
func (h *ChatHandler) ClearSession(c *fiber.Ctx) error {
	var req models.ClearRequest
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   services.ErrKindValidation,
			"message": "sessionId is required",
		})
	}

	h.chatService.ClearSession(req.SessionID)
	return c.JSON(fiber.Map{"success": true})
}

// turnError maps the turn error taxonomy onto HTTP statuses. Backend
// failures carry the canned fallback reply so clients never render a raw
// upstream error.
func (h *ChatHandler) turnError(c *fiber.Ctx, err error) error {
	kind := services.KindOf(err)
	status := fiber.StatusBadGateway
	if kind == services.ErrKindValidation {
		status = fiber.StatusBadRequest
	} else {
		log.Printf("❌ [CHAT] Turn failed: %v", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   string(kind),
		"message": services.UserMessage(err),
	})
}
