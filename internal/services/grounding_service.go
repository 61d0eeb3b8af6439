package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"studymate/internal/models"
)

// minUsefulSegment is the smallest slice of a document worth including after
// its source header; below this the assembler cuts at the previous document
// boundary instead.
const minUsefulSegment = 80

// GroundingResult is the assembled document context for one turn.
type GroundingResult struct {
	Text         string
	Sources      []string // names of documents that contributed ≥1 character
	HasGrounding bool
}

// GroundingService concatenates processed document text into a bounded
// grounding block. Assembly never fails: bad inputs degrade to an empty
// result rather than blocking the turn.
type GroundingService struct {
	budgetChars int
}

// NewGroundingService creates a grounding service with the given character
// budget. Non-positive budgets fall back to the 10k default.
func NewGroundingService(budgetChars int) *GroundingService {
	if budgetChars <= 0 {
		budgetChars = 10000
	}
	return &GroundingService{budgetChars: budgetChars}
}

// Assemble joins documents with status "processed" in upload order under a
// per-source header, truncated to the budget. The cut never splits a rune and
// prefers a whole-document boundary when the remaining budget is too small to
// usefully include the next document.
func (s *GroundingService) Assemble(documents []models.DocumentRef) GroundingResult {
	return s.AssembleWithBudget(documents, s.budgetChars)
}

// AssembleWithBudget is Assemble with an explicit budget.
func (s *GroundingService) AssembleWithBudget(documents []models.DocumentRef, budget int) GroundingResult {
	var (
		b       strings.Builder
		sources []string
	)

	for _, doc := range documents {
		if doc.Status != models.DocStatusProcessed || doc.Text == "" {
			continue
		}

		header := sourceHeader(doc.Name, b.Len() > 0)
		remaining := budget - b.Len() - len(header)
		if remaining < minUsefulSegment {
			break
		}

		segment := doc.Text
		if len(segment) > remaining {
			segment = truncateAtRune(segment, remaining)
			if segment == "" {
				break
			}
		}

		b.WriteString(header)
		b.WriteString(segment)
		sources = append(sources, doc.Name)
	}

	text := b.String()
	return GroundingResult{
		Text:         text,
		Sources:      sources,
		HasGrounding: text != "",
	}
}

func sourceHeader(name string, separated bool) string {
	if separated {
		return fmt.Sprintf("\n\n=== Source: %s ===\n", name)
	}
	return fmt.Sprintf("=== Source: %s ===\n", name)
}

// truncateAtRune cuts s to at most max bytes without splitting a UTF-8 rune.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
