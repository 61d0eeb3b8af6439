package utils

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	// MaxPDFPages limits the number of pages to process
	MaxPDFPages = 100

	// MaxExtractedTextSize limits the extracted text size (1MB)
	MaxExtractedTextSize = 1024 * 1024
)

// PDFMetadata contains information about a parsed PDF
type PDFMetadata struct {
	PageCount int
	WordCount int
	Text      string
}

// ExtractPDFText extracts plain text from PDF byte data. Pages that fail text
// extraction are skipped rather than failing the whole document.
func ExtractPDFText(data []byte) (*PDFMetadata, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPages := pdfReader.NumPage()
	if totalPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if totalPages > MaxPDFPages {
		return nil, fmt.Errorf("PDF has too many pages (%d), max allowed is %d", totalPages, MaxPDFPages)
	}

	var textBuilder strings.Builder
	wordCount := 0

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		cleaned := cleanPDFText(text)
		if cleaned != "" {
			if textBuilder.Len() > 0 {
				textBuilder.WriteString("\n")
			}
			textBuilder.WriteString(cleaned)
			wordCount += len(strings.Fields(cleaned))
		}

		if textBuilder.Len() > MaxExtractedTextSize {
			break
		}
	}

	extracted := textBuilder.String()
	if len(extracted) > MaxExtractedTextSize {
		extracted = extracted[:MaxExtractedTextSize]
	}

	return &PDFMetadata{
		PageCount: totalPages,
		WordCount: wordCount,
		Text:      extracted,
	}, nil
}

// cleanPDFText strips null bytes and collapses runs of whitespace while
// preserving line breaks.
func cleanPDFText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")

	var result strings.Builder
	lastWasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if r == '\n' {
				result.WriteRune('\n')
				lastWasSpace = false
			} else if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}
	return strings.TrimSpace(result.String())
}
