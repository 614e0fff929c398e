// Package detect decides whether a piece of plain text is Markdown, so that
// pasted content can be routed through the Markdown parser.
package detect

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mode selects how eager the heuristic phase is.
type Mode string

const (
	Aggressive   Mode = "aggressive"
	Conservative Mode = "conservative"
)

// Heuristic score thresholds per mode.
const (
	aggressiveThreshold   = 3
	conservativeThreshold = 5
)

// DefaultMinLength is the shortest input considered at all.
const DefaultMinLength = 5

// explicit patterns; any match short-circuits to true.
var explicit = []*regexp.Regexp{
	// bold
	regexp.MustCompile(`\*\*[^*\n]+\*\*`),
	// bold
	regexp.MustCompile(`__[^_\n]+__`),
	// italic
	regexp.MustCompile(`(?:^|[^*\w])\*[^*\s][^*\n]*\*(?:$|[^*\w])`),
	// italic
	regexp.MustCompile(`(?:^|\s)_[^_\s][^_\n]*_(?:$|[\s.,;:!?])`),
	// strikethrough
	regexp.MustCompile(`~~[^~\n]+~~`),
	// highlight
	regexp.MustCompile(`==[^=\n]+==`),
	// inline code
	regexp.MustCompile("`[^`\n]+`"),
	// ATX heading
	regexp.MustCompile(`(?m)^#{1,6}[ \t]+\S`),
	// blockquote
	regexp.MustCompile(`(?m)^[ \t]*>[ \t]?\S`),
	// bullet list
	regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+\S`),
	// ordered list
	regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+\S`),
	// pipe table
	regexp.MustCompile(`(?m)^[ \t]*\|.*\|[ \t]*$`),
	// link or image
	regexp.MustCompile(`!?\[[^\]\n]+\]\([^)\s]+\)`),
	// wiki-link
	regexp.MustCompile(`\[\[[^\]\n]+\]\]`),
	// fenced code
	regexp.MustCompile("(?m)^[ \t]*(?:```|~~~)"),
	// task checkbox
	regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+\[.\][ \t]`),
	// horizontal rule
	regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`),
	// display math
	regexp.MustCompile(`\$\$[^$]+\$\$`),
}

var keyValueRe = regexp.MustCompile(`(?m)^[A-Za-z][\w \-]{0,30}:[ \t]+\S`)

// Detector classifies text. The zero value is not usable; build one with New.
type Detector struct {
	mode      Mode
	minLength int
}

// Option configures a Detector.
type Option func(*Detector)

// WithMode sets the heuristic mode.
func WithMode(m Mode) Option {
	return func(d *Detector) {
		if m == Conservative || m == Aggressive {
			d.mode = m
		}
	}
}

// WithMinLength sets the minimum input length.
func WithMinLength(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.minLength = n
		}
	}
}

// New returns a Detector, aggressive with a minimum length of 5 by default.
func New(opts ...Option) *Detector {
	d := &Detector{mode: Aggressive, minLength: DefaultMinLength}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Mode returns the detector's heuristic mode.
func (d *Detector) Mode() Mode { return d.mode }

// IsMarkdown reports whether text looks like Markdown.
func (d *Detector) IsMarkdown(text string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < d.minLength {
		return false
	}
	for _, re := range explicit {
		if re.MatchString(text) {
			return true
		}
	}
	return Score(text) >= d.threshold()
}

func (d *Detector) threshold() int {
	if d.mode == Conservative {
		return conservativeThreshold
	}
	return aggressiveThreshold
}

// Score returns the structural heuristic score of text. Prose laid out in
// several blank-line separated paragraphs scores high; a single short line
// scores zero.
func Score(text string) int {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	score := 0
	if len(lines) >= 3 {
		score++
	}
	if len(lines) >= 10 {
		score++
	}

	paragraphs := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	if paragraphs >= 2 {
		score += 2
	}
	if paragraphs >= 4 {
		score++
	}

	if n := utf8.RuneCountInString(text); n > 500 {
		score++
	}

	capitalised := 0
	for _, l := range lines {
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(l))
		if unicode.IsUpper(r) {
			capitalised++
		}
	}
	if capitalised >= 3 {
		score++
	}

	if len(keyValueRe.FindAllStringIndex(text, 3)) >= 2 {
		score++
	}
	return score
}
