package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// Syntax is a goldmark extension adding the note syntax on top of CommonMark:
// wiki-links, canvas links and embeds, math, extended task checkboxes,
// ==highlight==, ~~strike~~, ~sub~ and ^sup^.
var Syntax goldmark.Extender = &syntax{}

type syntax struct{}

func (e *syntax) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(&mathBlockParser{}, priorityMathBlock),
		),
		parser.WithInlineParsers(
			util.Prioritized(&taskMarkerParser{}, priorityTaskMarker),
			util.Prioritized(&wikiLinkParser{}, priorityWikiLink),
			util.Prioritized(&canvasParser{}, priorityCanvas),
			util.Prioritized(&mathInlineParser{}, priorityMathInline),
			util.Prioritized(highlightDelimiter, priorityDelimiters),
			util.Prioritized(tildeDelimiter, priorityDelimiters),
			util.Prioritized(caretDelimiter, priorityDelimiters),
		),
	)
}
