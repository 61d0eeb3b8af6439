package services

import (
	"fmt"
	"strings"

	"studymate/internal/models"
)

// languageNames maps supported language codes to the name used in the reply
// directive. Unknown codes fall back to English.
var languageNames = map[string]string{
	"en":  "English",
	"hi":  "Hindi",
	"te":  "Telugu",
	"ta":  "Tamil",
	"ml":  "Malayalam",
	"bn":  "Bengali",
	"ne":  "Nepali",
	"mai": "Maithili",
}

// PromptBuilder composes the generation backend request from grounding text,
// trimmed history, context hints and the target language. Pure string
// construction, no I/O.
type PromptBuilder struct {
	historyWindow int
}

// NewPromptBuilder creates a prompt builder keeping the last n history turns.
// Non-positive n falls back to 10.
func NewPromptBuilder(historyWindow int) *PromptBuilder {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &PromptBuilder{historyWindow: historyWindow}
}

// HistoryWindow returns the last n history messages, oldest first.
func (p *PromptBuilder) HistoryWindow(history []models.Message) []models.Message {
	if len(history) <= p.historyWindow {
		return history
	}
	return history[len(history)-p.historyWindow:]
}

// Build assembles the full prompt for one turn.
func (p *PromptBuilder) Build(message string, grounding GroundingResult, ctxInfo models.Context, language string) string {
	var b strings.Builder

	if grounding.HasGrounding {
		b.WriteString("You are a document study assistant. Ground your answer first and foremost in the provided document content below. ")
		b.WriteString("Only fall back to general knowledge when the documents do not cover the question, and say so when you do.\n\n")
		b.WriteString("Document content:\n")
		b.WriteString(grounding.Text)
		b.WriteString("\n\n")
	} else {
		b.WriteString("You are a document study assistant. No documents are available for this conversation. ")
		b.WriteString("Answer from general knowledge, and if asked, disclose that the answer is not backed by any uploaded document.\n\n")
	}

	if ctxInfo.Topic != "" {
		fmt.Fprintf(&b, "Current conversation topic: %s\n", ctxInfo.Topic)
	}
	if ctxInfo.Intent != "" {
		fmt.Fprintf(&b, "User intent: %s\n", ctxInfo.Intent)
	}
	if ctxInfo.Topic != "" || ctxInfo.Intent != "" {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Compose your reply in %s.\n\n", LanguageName(language))
	fmt.Fprintf(&b, "Question: %s", message)

	return b.String()
}

// LanguageName resolves a language code to its display name, defaulting to
// English for unknown codes.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return languageNames["en"]
}
