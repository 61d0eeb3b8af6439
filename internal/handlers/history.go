package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"studymate/internal/models"
	"studymate/internal/store"
)

// HistoryHandler handles saved conversation transcript requests
type HistoryHandler struct {
	history store.HistoryStore
	md      goldmark.Markdown
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history store.HistoryStore) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// List handles GET /api/users/:userId/history
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	userID := c.Params("userId")
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := h.history.List(c.Context(), userID, limit)
	if err != nil {
		log.Printf("❌ [HISTORY] List failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	// Listings are lightweight: drop the transcripts, keep the metadata.
	for i := range entries {
		entries[i].Messages = nil
	}
	return c.JSON(fiber.Map{"history": entries})
}

// Save handles POST /api/users/:userId/history, persisting a transcript the
// client assembled itself (offline mode sync).
func (h *HistoryHandler) Save(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var entry models.ChatHistory
	if err := c.BodyParser(&entry); err != nil || entry.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sessionId is required",
		})
	}
	entry.UserID = userID
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	if err := h.history.Save(c.Context(), entry); err != nil {
		log.Printf("❌ [HISTORY] Save %s failed for user %s: %v", entry.SessionID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save conversation",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

// Get handles GET /api/users/:userId/history/:sessionId
func (h *HistoryHandler) Get(c *fiber.Ctx) error {
	userID := c.Params("userId")
	sessionID := c.Params("sessionId")

	entry, err := h.history.Get(c.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Conversation not found",
			})
		}
		log.Printf("❌ [HISTORY] Get %s failed for user %s: %v", sessionID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation",
		})
	}
	return c.JSON(entry)
}

// Export handles GET /api/users/:userId/history/:sessionId/export, rendering
// the transcript as a standalone HTML page. Assistant messages keep their raw
// markdown, which is converted here; user messages are escaped verbatim.
func (h *HistoryHandler) Export(c *fiber.Ctx) error {
	userID := c.Params("userId")
	sessionID := c.Params("sessionId")

	entry, err := h.history.Get(c.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Conversation not found",
			})
		}
		log.Printf("❌ [HISTORY] Export %s failed for user %s: %v", sessionID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export conversation",
		})
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>%s</title>
</head>
<body>
<h1>%s</h1>
`, html.EscapeString(entry.Title), html.EscapeString(entry.Title))

	for _, msg := range entry.Messages {
		fmt.Fprintf(&buf, "<h3>%s</h3>\n", html.EscapeString(msg.Role))
		if msg.Role == "assistant" && msg.RawText != "" {
			if err := h.md.Convert([]byte(msg.RawText), &buf); err != nil {
				log.Printf("⚠️  [HISTORY] Markdown conversion failed: %v", err)
				fmt.Fprintf(&buf, "<p>%s</p>\n", html.EscapeString(msg.Text))
			}
		} else {
			fmt.Fprintf(&buf, "<p>%s</p>\n", html.EscapeString(msg.Text))
		}
	}
	buf.WriteString("</body>\n</html>\n")

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
