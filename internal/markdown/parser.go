// Package markdown parses Markdown, including the note syntax extensions,
// into a rich content tree and derives note-level facts (title, tags, links,
// tasks) from it.
package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/starford/mdbridge/internal/frontmatter"
	"github.com/starford/mdbridge/internal/richtext"
)

// CanvasResolver reports whether a canvas with the given name exists.
type CanvasResolver func(name string) bool

// Option configures a Parser.
type Option func(*Parser)

// WithCanvasResolver marks canvas links whose target the resolver cannot find
// as broken.
func WithCanvasResolver(r CanvasResolver) Option {
	return func(p *Parser) {
		p.resolver = r
	}
}

// Parser converts Markdown into rich content trees. It is immutable after
// construction and safe for concurrent use.
type Parser struct {
	md       goldmark.Markdown
	resolver CanvasResolver
}

// NewParser builds a Parser over CommonMark with GFM tables plus the note
// syntax. Bare URLs are not linkified so that plain text round-trips.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Table,
				Syntax,
			),
		),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts src into a document tree. It never fails: syntax that does
// not match any rule is kept as literal text. A leading frontmatter block is
// removed from the body and stored on the document's Meta.
func (p *Parser) Parse(src []byte) *richtext.Node {
	meta, body, ok := frontmatter.Split(src)
	doc := p.ParseBody([]byte(body))
	if ok && len(meta) > 0 {
		doc.Meta = meta
	}
	return doc
}

// ParseBody converts src without looking for frontmatter.
func (p *Parser) ParseBody(src []byte) *richtext.Node {
	root := p.md.Parser().Parse(text.NewReader(src))
	b := &builder{src: src, resolver: p.resolver}
	return b.document(root)
}
