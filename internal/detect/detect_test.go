package detect

import (
	"strings"
	"testing"
)

func TestIsMarkdown_ShortInputs(t *testing.T) {
	d := New()
	if d.IsMarkdown("") {
		t.Error("empty string should not be markdown")
	}
	if d.IsMarkdown("**") {
		t.Error("input below min length should not be markdown")
	}
	if d.IsMarkdown("plain short") {
		t.Error("plain short text should not be markdown")
	}
}

func TestIsMarkdown_ExplicitPatterns(t *testing.T) {
	d := New(WithMode(Conservative))
	cases := []string{
		"**bold**",
		"some *italic* text",
		"~~gone~~ now",
		"==marked== text",
		"run `go test` now",
		"# Heading",
		"> quoted line",
		"- item one",
		"1. first",
		"| a | b |",
		"see [docs](https://example.com)",
		"link to [[Other Note]]",
		"```go\nfmt.Println()\n```",
		"- [?] open question",
		"text\n\n---\n\nmore",
		"$$x^2$$ inline",
	}
	for _, in := range cases {
		if !d.IsMarkdown(in) {
			t.Errorf("IsMarkdown(%q) = false, want true", in)
		}
	}
}

func TestIsMarkdown_PlainSentences(t *testing.T) {
	d := New()
	cases := []string{
		"Meet me at 5 * 3 o'clock",
		"snake_case_name is fine",
		"Price is $5 and $10 later",
	}
	for _, in := range cases {
		if d.IsMarkdown(in) {
			t.Errorf("IsMarkdown(%q) = true, want false", in)
		}
	}
}

func TestIsMarkdown_ProseParagraphs(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog.\n")
		b.WriteString("It keeps running through the field.\n")
		b.WriteString("\n")
	}
	text := strings.TrimRight(b.String(), "\n")
	if n := len(strings.Split(text, "\n")); n != 11 {
		t.Fatalf("fixture has %d lines", n)
	}

	if !New().IsMarkdown(text) {
		t.Errorf("aggressive detector should accept paragraph prose (score %d)", Score(text))
	}
}

func TestIsMarkdown_ConservativeNeedsMore(t *testing.T) {
	text := "first line here\nsecond line here\n\nthird line here"
	if got := Score(text); got != 3 {
		t.Fatalf("Score = %d, want 3", got)
	}
	if !New().IsMarkdown(text) {
		t.Error("aggressive mode should accept score 3")
	}
	if New(WithMode(Conservative)).IsMarkdown(text) {
		t.Error("conservative mode should reject score 3")
	}
}

func TestNew_Options(t *testing.T) {
	d := New(WithMode("bogus"), WithMinLength(0))
	if d.Mode() != Aggressive {
		t.Errorf("mode = %q, want aggressive", d.Mode())
	}
	if d.minLength != DefaultMinLength {
		t.Errorf("minLength = %d", d.minLength)
	}

	d = New(WithMinLength(20))
	if d.IsMarkdown("**bold** text") {
		t.Error("input shorter than configured min length should be rejected")
	}
}
