package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"studymate/internal/models"
)

func processedDoc(name, text string) models.DocumentRef {
	return models.DocumentRef{
		ID:     name,
		Name:   name,
		Status: models.DocStatusProcessed,
		Text:   text,
	}
}

func TestAssembleSkipsUnprocessedDocuments(t *testing.T) {
	svc := NewGroundingService(10000)

	docs := []models.DocumentRef{
		{Name: "pending.pdf", Status: models.DocStatusPending, Text: strings.Repeat("p", 200)},
		{Name: "failed.pdf", Status: models.DocStatusFailed, Text: strings.Repeat("f", 200)},
		processedDoc("good.pdf", strings.Repeat("g", 200)),
	}

	got := svc.Assemble(docs)
	if !got.HasGrounding {
		t.Fatal("expected grounding from the processed document")
	}
	if len(got.Sources) != 1 || got.Sources[0] != "good.pdf" {
		t.Errorf("Sources = %v, want [good.pdf]", got.Sources)
	}
	if strings.Contains(got.Text, "pending") || strings.Contains(got.Text, "ppp") {
		t.Error("pending document text leaked into grounding")
	}
}

func TestAssemblePreservesUploadOrder(t *testing.T) {
	svc := NewGroundingService(10000)

	docs := []models.DocumentRef{
		processedDoc("first.pdf", strings.Repeat("a", 100)),
		processedDoc("second.pdf", strings.Repeat("b", 100)),
	}

	got := svc.Assemble(docs)
	firstIdx := strings.Index(got.Text, "=== Source: first.pdf ===")
	secondIdx := strings.Index(got.Text, "=== Source: second.pdf ===")
	if firstIdx < 0 || secondIdx < 0 {
		t.Fatalf("missing source headers in %q", got.Text)
	}
	if firstIdx > secondIdx {
		t.Error("documents are out of upload order")
	}
	if len(got.Sources) != 2 {
		t.Errorf("Sources = %v, want both documents", got.Sources)
	}
}

func TestAssembleRespectsBudget(t *testing.T) {
	svc := NewGroundingService(500)

	docs := []models.DocumentRef{
		processedDoc("big.pdf", strings.Repeat("x", 5000)),
	}

	got := svc.Assemble(docs)
	if len(got.Text) > 500 {
		t.Errorf("len(Text) = %d, want <= 500", len(got.Text))
	}
	if !got.HasGrounding {
		t.Error("expected truncated grounding, not empty")
	}
}

func TestAssembleStopsBeforeUselessTail(t *testing.T) {
	// The second document would only get a sliver of budget after the first;
	// the assembler cuts at the document boundary instead.
	svc := NewGroundingService(400)

	docs := []models.DocumentRef{
		processedDoc("first.pdf", strings.Repeat("a", 350)),
		processedDoc("second.pdf", strings.Repeat("b", 300)),
	}

	got := svc.Assemble(docs)
	if len(got.Sources) != 1 {
		t.Fatalf("Sources = %v, want only first.pdf", got.Sources)
	}
	if strings.Contains(got.Text, "second.pdf") {
		t.Error("second document header included despite useless remaining budget")
	}
}

func TestAssembleNeverSplitsRune(t *testing.T) {
	// Multibyte text cut mid-rune would produce invalid UTF-8.
	hindi := strings.Repeat("नमस्ते दुनिया ", 400)
	svc := NewGroundingService(1000)

	got := svc.Assemble([]models.DocumentRef{processedDoc("hindi.pdf", hindi)})
	if !utf8.ValidString(got.Text) {
		t.Error("grounding text is not valid UTF-8 after truncation")
	}
	if len(got.Text) > 1000 {
		t.Errorf("len(Text) = %d, want <= 1000", len(got.Text))
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	svc := NewGroundingService(10000)

	got := svc.Assemble(nil)
	if got.HasGrounding {
		t.Error("expected no grounding for empty corpus")
	}
	if got.Text != "" || len(got.Sources) != 0 {
		t.Errorf("got %+v, want zero result", got)
	}
}

func TestAssembleSkipsEmptyProcessedDocument(t *testing.T) {
	svc := NewGroundingService(10000)

	got := svc.Assemble([]models.DocumentRef{
		processedDoc("empty.pdf", ""),
		processedDoc("real.pdf", strings.Repeat("r", 100)),
	})
	if len(got.Sources) != 1 || got.Sources[0] != "real.pdf" {
		t.Errorf("Sources = %v, want [real.pdf]", got.Sources)
	}
}
