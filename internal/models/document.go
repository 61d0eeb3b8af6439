package models

import "time"

// Document processing status
const (
	DocStatusPending   = "pending"
	DocStatusProcessed = "processed"
	DocStatusFailed    = "failed"
)

// DocumentRef describes an uploaded document. Full text is owned by the
// document store and only read during grounding assembly.
type DocumentRef struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"` // pending, processed, failed
	Pages      int       `json:"pages"`
	Text       string    `json:"text,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}
