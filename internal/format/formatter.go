// Package format cleans model output into plain display text. The pipeline is
// an ordered list of named rules so each transformation can be tested in
// isolation and the whole chain stays idempotent.
package format

import (
	"regexp"
	"strings"
)

// Rule is one named text transformation.
type Rule struct {
	Name  string
	Apply func(string) string
}

func regexRule(name, pattern, repl string) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{Name: name, Apply: func(s string) string {
		return re.ReplaceAllString(s, repl)
	}}
}

// displayRules strip markdown down to readable plain text. Order matters:
// multi-character delimiters must go before their single-character forms, and
// the residual-punctuation sweep runs after every structural rule so that a
// second pass has nothing left to change.
var displayRules = []Rule{
	regexRule("code-fence", "```[a-zA-Z0-9]*\n?", ""),
	regexRule("bold-italic-asterisk", `\*\*\*([^*]+)\*\*\*`, "$1"),
	regexRule("bold-asterisk", `\*\*([^*]+)\*\*`, "$1"),
	regexRule("bold-italic-underscore", "___([^_]+)___", "$1"),
	regexRule("bold-underscore", "__([^_]+)__", "$1"),
	regexRule("italic-asterisk", `\*([^*\n]+)\*`, "$1"),
	regexRule("italic-underscore", "_([^_\n]+)_", "$1"),
	regexRule("heading", `(?m)^#{1,6}\s+(.+)$`, "$1"),
	regexRule("inline-code", "`([^`]+)`", "$1"),
	regexRule("link", `\[([^\]]+)\]\([^)]+\)`, "$1"),
	regexRule("html-tag", "<[^>]+>", ""),
	regexRule("residual-markers", "[*_#`<>]", ""),
	regexRule("multi-space", "  +", " "),
	{Name: "trim-lines", Apply: trimLines},
	regexRule("multi-newline", "\n{3,}", "\n\n"),
	{Name: "trim", Apply: strings.TrimSpace},
}

// speechRules additionally drop list, quote and table markers and turn
// paragraph breaks into sentence-ending periods, for spoken output.
var speechRules = []Rule{
	regexRule("heading-marker", `(?m)^#{1,6}\s+`, ""),
	regexRule("bold-italic", `\*\*\*([^*]+)\*\*\*`, "$1"),
	regexRule("bold", `\*\*([^*]+)\*\*`, "$1"),
	regexRule("italic", `\*([^*\n]+)\*`, "$1"),
	regexRule("code-block", "```[^`]*```", ""),
	regexRule("inline-code", "`([^`]+)`", "$1"),
	regexRule("link", `\[([^\]]+)\]\([^)]+\)`, "$1"),
	regexRule("blockquote", `(?m)^>\s?`, ""),
	regexRule("bullet", `(?m)^[-*+]\s+`, ""),
	regexRule("numbered-list", `(?m)^\d+\.\s+`, ""),
	regexRule("residual-markers", "[*_#`<>]", ""),
	regexRule("paragraph-to-period", "\n{2,}", ". "),
	regexRule("newline-to-space", "\n", " "),
	regexRule("table-pipe", `\|`, " "),
	regexRule("multi-space", "  +", " "),
	{Name: "trim", Apply: strings.TrimSpace},
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

func applyRules(rules []Rule, text string) string {
	for _, r := range rules {
		text = r.Apply(text)
	}
	return text
}

// Format strips markdown and normalizes whitespace in model output. It is
// pure, total and idempotent: Format(Format(x)) == Format(x). Unparseable
// constructs pass through as literal text rather than erroring.
func Format(raw string) string {
	return applyRules(displayRules, raw)
}

// ToPlainSpeech flattens text for non-visual consumption: list, quote and
// table markers are removed, code blocks are dropped entirely and paragraph
// breaks become sentence-ending periods.
func ToPlainSpeech(text string) string {
	return applyRules(speechRules, text)
}

// DisplayRules exposes the display pipeline for per-rule tests.
func DisplayRules() []Rule { return displayRules }

// SpeechRules exposes the speech pipeline for per-rule tests.
func SpeechRules() []Rule { return speechRules }
