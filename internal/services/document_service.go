package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"studymate/internal/models"
	"studymate/internal/store"
	"studymate/internal/utils"
)

// DocumentService handles uploaded study material: text extraction, status
// tracking and the grounding corpus the chat pipeline reads from.
type DocumentService struct {
	documents store.DocumentStore
	progress  *ProgressService
	metrics   *Metrics
}

// NewDocumentService creates a new document service.
func NewDocumentService(documents store.DocumentStore, progress *ProgressService, metrics *Metrics) *DocumentService {
	return &DocumentService{
		documents: documents,
		progress:  progress,
		metrics:   metrics,
	}
}

// Upload registers a document and processes its content synchronously. The
// document is stored as pending first, so a crash mid-extraction leaves a
// visible failed-looking record instead of nothing, then flipped to processed
// or failed.
func (s *DocumentService) Upload(ctx context.Context, userID, filename string, data []byte) (*models.DocumentRef, error) {
	doc := models.DocumentRef{
		ID:         uuid.New().String(),
		Name:       filename,
		Status:     models.DocStatusPending,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.documents.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	text, pages, err := s.extract(filename, data)
	if err != nil {
		doc.Status = models.DocStatusFailed
		if putErr := s.documents.Put(ctx, doc); putErr != nil {
			log.Printf("⚠️  [DOCUMENT] Failed to mark document %s as failed: %v", doc.ID, putErr)
		}
		s.metrics.RecordDocumentFailed()
		log.Printf("❌ [DOCUMENT] Extraction failed for %q: %v", filename, err)
		return &doc, fmt.Errorf("failed to process document: %w", err)
	}

	doc.Status = models.DocStatusProcessed
	doc.Pages = pages
	doc.Text = text
	if err := s.documents.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	s.metrics.RecordDocumentProcessed()
	log.Printf("✅ [DOCUMENT] Processed %q (%d pages, %d chars)", filename, pages, len(text))

	if s.progress != nil && userID != "" {
		go s.progress.RecordDocumentProcessed(context.WithoutCancel(ctx), userID)
	}
	return &doc, nil
}

// extract pulls plain text out of the upload. PDFs go through the page
// extractor; anything else is treated as UTF-8 text.
func (s *DocumentService) extract(filename string, data []byte) (string, int, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		meta, err := utils.ExtractPDFText(data)
		if err != nil {
			return "", 0, err
		}
		return meta.Text, meta.PageCount, nil
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", 0, fmt.Errorf("document contains no extractable text")
	}
	if len(text) > utils.MaxExtractedTextSize {
		text = text[:utils.MaxExtractedTextSize]
	}
	return text, 1, nil
}

// List returns every uploaded document without its extracted text.
func (s *DocumentService) List(ctx context.Context) ([]models.DocumentRef, error) {
	docs, err := s.documents.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Text = ""
	}
	return docs, nil
}

// Get returns one document including its extracted text.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.DocumentRef, error) {
	return s.documents.Get(ctx, id)
}

// Delete removes a document from the grounding corpus.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	return s.documents.Delete(ctx, id)
}
