package handlers

import (
	"errors"
	"io"
	"log"

	"github.com/gofiber/fiber/v2"

	"studymate/internal/services"
	"studymate/internal/store"
)

// DocumentHandler handles document upload and management requests
type DocumentHandler struct {
	documentService *services.DocumentService
	maxUploadBytes  int64
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *services.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  maxUploadBytes,
	}
}

// Upload handles POST /api/documents/upload
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided",
		})
	}

	if fileHeader.Size > h.maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "File too large",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read uploaded file",
		})
	}
	if int64(len(data)) > h.maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "File too large",
		})
	}

	userID := c.FormValue("userId")
	doc, err := h.documentService.Upload(c.Context(), userID, fileHeader.Filename, data)
	if err != nil {
		log.Printf("❌ [DOCUMENT] Upload of %q failed: %v", fileHeader.Filename, err)
		// The failed record still comes back so the UI can show its status.
		if doc != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":    "Document could not be processed",
				"document": doc,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store document",
		})
	}

	doc.Text = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"document": doc})
}

// List handles GET /api/documents
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	docs, err := h.documentService.List(c.Context())
	if err != nil {
		log.Printf("❌ [DOCUMENT] List failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// Delete handles DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.documentService.Delete(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		log.Printf("❌ [DOCUMENT] Delete %s failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
