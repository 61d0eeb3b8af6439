package format

import (
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bold and italic stripped",
			input: "This is **bold**, *italic* and ***both***.",
			want:  "This is bold, italic and both.",
		},
		{
			name:  "underscore emphasis stripped",
			input: "__strong__ and _soft_ and ___loud___",
			want:  "strong and soft and loud",
		},
		{
			name:  "headings stripped",
			input: "# Title\n## Subtitle\nBody text",
			want:  "Title\nSubtitle\nBody text",
		},
		{
			name:  "inline code keeps content",
			input: "Run `go build` first.",
			want:  "Run go build first.",
		},
		{
			name:  "code fence keeps content",
			input: "```go\nfmt.Println(1)\n```\ndone",
			want:  "fmt.Println(1)\ndone",
		},
		{
			name:  "link keeps text drops url",
			input: "See [the docs](https://example.com/docs) for more.",
			want:  "See the docs for more.",
		},
		{
			name:  "html tags removed",
			input: "Hello <b>world</b><br/>",
			want:  "Hello world",
		},
		{
			name:  "spaces collapsed",
			input: "too   many    spaces",
			want:  "too many spaces",
		},
		{
			name:  "paragraph breaks normalized",
			input: "one\n\n\n\ntwo",
			want:  "one\n\ntwo",
		},
		{
			name:  "lines trimmed and result trimmed",
			input: "  padded line  \n\n  next  ",
			want:  "padded line\n\nnext",
		},
		{
			name:  "unbalanced markers left as literal text minus the marker",
			input: "a ** dangling",
			want:  "a dangling",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.input)
			if got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Format must be idempotent over arbitrary input, including text that mixes
// markdown with blank-heavy whitespace.
func TestFormatIdempotent(t *testing.T) {
	inputs := []string{
		"# Heading\n\n**Bold** with [link](http://x) and `code`.",
		"```python\nprint('hi')\n```",
		"plain text already clean",
		"a\n  \n  \nb",
		"*,_ # ` < > mixed ** markers __ everywhere",
		"multi\n\n\n\n\nnewlines   and   spaces",
		"नमस्ते **दुनिया** और `कोड`",
	}

	for _, in := range inputs {
		once := Format(in)
		twice := Format(once)
		if once != twice {
			t.Errorf("Format not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestToPlainSpeech(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bullets and quotes stripped",
			input: "> quoted\n- first\n- second",
			want:  "quoted first second",
		},
		{
			name:  "numbered list stripped",
			input: "1. one\n2. two",
			want:  "one two",
		},
		{
			name:  "paragraph break becomes period",
			input: "First part\n\nSecond part",
			want:  "First part. Second part",
		},
		{
			name:  "code blocks dropped entirely",
			input: "before ```x := 1``` after",
			want:  "before after",
		},
		{
			name:  "table pipes become spaces",
			input: "a|b|c",
			want:  "a b c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPlainSpeech(tt.input)
			if got != tt.want {
				t.Errorf("ToPlainSpeech(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Every display rule must itself be idempotent, otherwise the pipeline
// guarantee falls apart when rules are reordered.
func TestDisplayRulesIndividuallyIdempotent(t *testing.T) {
	sample := "# H\n*i* _u_ `c` [t](u) <p>x</p>\n\n\n\nend   here"
	for _, r := range DisplayRules() {
		once := r.Apply(sample)
		if twice := r.Apply(once); once != twice {
			t.Errorf("rule %q not idempotent: %q -> %q", r.Name, once, twice)
		}
	}
}

func TestFormatNeverPanics(t *testing.T) {
	hostile := []string{
		strings.Repeat("*", 1000),
		"[unclosed(link",
		"<<<<>>>>",
		"``````",
		strings.Repeat("\n", 500),
	}
	for _, in := range hostile {
		_ = Format(in)
		_ = ToPlainSpeech(in)
	}
}
