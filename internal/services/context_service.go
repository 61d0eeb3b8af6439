package services

import (
	"strings"
	"unicode"

	"studymate/internal/models"
)

// Recognized intents.
const (
	IntentSummary  = "summary"
	IntentExamPrep = "exam-prep"
	IntentExamples = "examples"
	IntentQA       = "qa"
)

// intentRule matches a message against a set of trigger phrases. Rules are
// evaluated in order; the first hit wins.
type intentRule struct {
	intent   string
	triggers []string
}

var intentRules = []intentRule{
	{IntentSummary, []string{
		"summarize", "summarise", "summary", "tl;dr", "tldr",
		"overview", "in brief", "key points", "main points", "recap",
	}},
	{IntentExamPrep, []string{
		"quiz", "test me", "exam", "practice question", "mcq",
		"compare", "difference between", "versus", " vs ", "contrast",
		"prepare me", "flashcard",
	}},
	{IntentExamples, []string{
		"example", "examples", "illustrate", "for instance", "use case",
		"case study", "sample", "demonstrate",
	}},
}

// stopwords excluded from topic keyword extraction. Includes question words,
// fillers and the verbs the intent rules already consume.
var topicStopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "the", "is", "are", "was", "were", "be", "been", "am",
		"i", "me", "my", "we", "our", "you", "your", "yours",
		"it", "its", "this", "that", "these", "those", "they", "them", "their",
		"he", "she", "his", "her",
		"what", "when", "where", "which", "who", "whom", "why", "how",
		"do", "does", "did", "can", "could", "will", "would", "shall", "should",
		"may", "might", "must", "have", "has", "had",
		"and", "or", "but", "if", "then", "else", "so", "not", "no", "yes",
		"to", "of", "in", "on", "at", "by", "for", "with", "about", "from",
		"into", "as", "more", "some", "any", "also", "again", "just", "now",
		"please", "tell", "give", "explain", "show", "help", "want", "need",
		"know", "like", "make", "get", "go", "ok", "okay", "thanks", "thank",
		"summarize", "summarise", "summary", "overview", "recap",
		"quiz", "test", "exam", "compare", "difference", "versus", "vs",
		"example", "examples", "illustrate", "instance", "sample",
		"uploaded", "document", "documents", "doc", "docs", "file", "files",
	} {
		topicStopwords[w] = struct{}{}
	}
}

// continuation pronouns: a message leading with one of these refers back to
// the established topic rather than introducing a new one.
var continuationLeads = map[string]struct{}{
	"it": {}, "that": {}, "this": {}, "they": {}, "those": {}, "these": {},
	"he": {}, "she": {}, "and": {}, "also": {}, "what about": {}, "how about": {},
}

// ContextService derives the running {topic, intent} conversation context.
// Classification is a heuristic rule table, not NLU; the one hard guarantee
// is that an established topic never regresses to empty except on an explicit
// session reset.
type ContextService struct{}

// NewContextService creates a new context service
func NewContextService() *ContextService {
	return &ContextService{}
}

// Extract classifies the new message against the prior context and full
// session history and returns the updated context.
func (s *ContextService) Extract(prior models.Context, history []models.Message, message string) models.Context {
	updated := models.Context{
		Topic:  prior.Topic,
		Intent: s.classifyIntent(message),
	}

	if topic, ok := s.extractTopic(message); ok {
		updated.Topic = topic
	}
	// No confident candidate: topic carries over unchanged from prior.

	return updated
}

// classifyIntent walks the ordered rule table; default is plain QA.
func (s *ContextService) classifyIntent(message string) string {
	lower := " " + strings.ToLower(message) + " "
	for _, rule := range intentRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lower, trigger) {
				return rule.intent
			}
		}
	}
	return IntentQA
}

// extractTopic pulls the dominant keyword set out of the message. It returns
// ok=false when the message is too short, purely conversational, or opens
// with a back-reference, in which case the caller keeps the prior topic.
func (s *ContextService) extractTopic(message string) (string, bool) {
	words := tokenize(message)
	if len(words) == 0 {
		return "", false
	}

	if _, ok := continuationLeads[words[0]]; ok {
		return "", false
	}

	var keywords []string
	for _, w := range words {
		if _, stop := topicStopwords[w]; stop {
			continue
		}
		if len([]rune(w)) < 3 {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 4 {
			break
		}
	}

	if len(keywords) == 0 {
		return "", false
	}

	for i, k := range keywords {
		keywords[i] = titleCase(k)
	}
	return strings.Join(keywords, " "), true
}

func tokenize(message string) []string {
	lower := strings.ToLower(message)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func titleCase(w string) string {
	runes := []rune(w)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
