package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/mdbridge/internal/richtext"
)

// builder converts a goldmark AST into a rich content tree.
type builder struct {
	src      []byte
	resolver CanvasResolver
}

func (b *builder) document(doc ast.Node) *richtext.Node {
	return richtext.Document(b.blocks(doc)...)
}

func (b *builder) blocks(parent ast.Node) []*richtext.Node {
	var out []*richtext.Node
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		n := b.block(c)
		switch {
		case n != nil:
			out = append(out, n)
		case c.HasChildren():
			// Unrecognised container blocks contribute their children.
			out = append(out, b.blocks(c)...)
		}
	}
	return out
}

func (b *builder) block(n ast.Node) *richtext.Node {
	switch n := n.(type) {
	case *ast.Heading:
		return richtext.Heading(n.Level, trimTrailingBreak(b.inlines(n))...)
	case *ast.Paragraph, *ast.TextBlock:
		return b.paragraph(b.inlines(n))
	case *ast.ThematicBreak:
		return richtext.HorizontalRule()
	case *ast.FencedCodeBlock:
		return richtext.CodeBlock(string(n.Language(b.src)), b.lines(n.Lines()))
	case *ast.CodeBlock:
		return richtext.CodeBlock("", b.lines(n.Lines()))
	case *ast.Blockquote:
		return richtext.Blockquote(b.blocks(n)...)
	case *ast.List:
		start := 0
		if n.IsOrdered() {
			start = n.Start
		}
		return richtext.List(n.IsOrdered(), start, b.blocks(n)...)
	case *ast.ListItem:
		return b.listItem(n)
	case *ast.HTMLBlock:
		raw := b.lines(n.Lines())
		if n.HasClosure() {
			raw += "\n" + strings.TrimRight(string(n.ClosureLine.Value(b.src)), "\r\n")
		}
		return richtext.Paragraph(richtext.Text(raw))
	case *extast.Table:
		return richtext.Table(b.blocks(n)...)
	case *extast.TableHeader:
		return richtext.TableRow(b.cells(n, true)...)
	case *extast.TableRow:
		return richtext.TableRow(b.cells(n, false)...)
	case *mathBlockNode:
		return richtext.MathBlock(string(n.Latex))
	}

	if n.HasChildren() && n.FirstChild().Type() == ast.TypeInline {
		return b.paragraph(b.inlines(n))
	}
	if !n.HasChildren() && n.Lines().Len() > 0 {
		return richtext.Paragraph(richtext.Text(b.lines(n.Lines())))
	}
	return nil
}

// paragraph wraps inline content. A paragraph holding nothing but an
// embedded canvas becomes the canvas block itself.
func (b *builder) paragraph(inlines []*richtext.Node) *richtext.Node {
	inlines = trimTrailingBreak(inlines)
	if len(inlines) == 1 && inlines[0].Kind == richtext.KindEmbeddedCanvas {
		return inlines[0]
	}
	return richtext.Paragraph(inlines...)
}

func (b *builder) listItem(n *ast.ListItem) *richtext.Node {
	first := n.FirstChild()
	if first == nil {
		return richtext.ListItem()
	}
	marker, ok := first.FirstChild().(*taskMarkerNode)
	if !ok {
		return richtext.ListItem(b.blocks(n)...)
	}

	item := richtext.TaskItem(richtext.StateForSymbol(marker.Symbol))
	var inl []*richtext.Node
	for c := marker.NextSibling(); c != nil; c = c.NextSibling() {
		inl = b.inline(c, inl)
	}
	if len(inl) > 0 {
		item.Append(b.paragraph(inl))
	}
	for c := first.NextSibling(); c != nil; c = c.NextSibling() {
		if bn := b.block(c); bn != nil {
			item.Append(bn)
		}
	}
	return item
}

func (b *builder) cells(row ast.Node, header bool) []*richtext.Node {
	var out []*richtext.Node
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*extast.TableCell); !ok {
			continue
		}
		out = append(out, richtext.TableCell(header, b.inlines(c)...))
	}
	return out
}

func (b *builder) inlines(parent ast.Node) []*richtext.Node {
	var out []*richtext.Node
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		out = b.inline(c, out)
	}
	return out
}

// inline appends the conversion of n to out, merging adjacent text runs.
func (b *builder) inline(n ast.Node, out []*richtext.Node) []*richtext.Node {
	switch n := n.(type) {
	case *ast.Text:
		raw := n.Segment.Value(b.src)
		if n.HardLineBreak() {
			raw = bytes.TrimSuffix(raw, []byte{'\\'})
		}
		out = appendText(out, unescape(raw))
		if n.SoftLineBreak() {
			out = appendText(out, "\n")
		}
		if n.HardLineBreak() {
			out = append(out, richtext.LineBreak())
		}
		return out
	case *ast.String:
		return appendText(out, string(n.Value))
	case *ast.CodeSpan:
		return append(out, richtext.InlineCode(b.codeSpan(n)))
	case *ast.Emphasis:
		if n.Level >= 2 {
			return append(out, richtext.Strong(b.inlines(n)...))
		}
		return append(out, richtext.Emphasis(b.inlines(n)...))
	case *ast.Link:
		return append(out, richtext.Link(unescape(n.Destination), b.inlines(n)...))
	case *ast.Image:
		return append(out, richtext.Image(unescape(n.Destination), richtext.PlainText(richtext.Paragraph(b.inlines(n)...))))
	case *ast.AutoLink:
		return append(out, richtext.Link(string(n.URL(b.src)), richtext.Text(string(n.Label(b.src)))))
	case *ast.RawHTML:
		var raw strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			raw.Write(seg.Value(b.src))
		}
		return appendText(out, raw.String())
	case *wikiLinkNode:
		return append(out, richtext.WikiLink(n.Target, n.Embed))
	case *canvasLinkNode:
		cl := richtext.CanvasLink(n.Name)
		if b.resolver != nil {
			cl.Broken = !b.resolver(n.Name)
		}
		return append(out, cl)
	case *embeddedCanvasNode:
		return append(out, richtext.EmbeddedCanvas(n.FragmentID, n.Width, n.Height))
	case *mathInlineNode:
		return append(out, richtext.MathInline(n.Latex))
	case *taskMarkerNode:
		return appendText(out, "["+string(n.Symbol)+"] ")
	case *spanNode:
		return append(out, &richtext.Node{Kind: spanKind(n.kind), Children: b.inlines(n)})
	}

	// Unrecognised inline content contributes its children.
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = b.inline(c, out)
	}
	return out
}

func spanKind(k ast.NodeKind) richtext.Kind {
	switch k {
	case kindHighlight:
		return richtext.KindHighlight
	case kindStrikethrough:
		return richtext.KindStrikethrough
	case kindSuperscript:
		return richtext.KindSuperscript
	case kindSubscript:
		return richtext.KindSubscript
	}
	return richtext.KindUnknown
}

func (b *builder) codeSpan(n *ast.CodeSpan) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			v := t.Segment.Value(b.src)
			if len(v) > 0 && v[len(v)-1] == '\n' {
				sb.Write(v[:len(v)-1])
				sb.WriteByte(' ')
				continue
			}
			sb.Write(v)
		case *ast.String:
			sb.Write(t.Value)
		}
	}
	return sb.String()
}

func (b *builder) lines(lines *text.Segments) string {
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(b.src))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func appendText(out []*richtext.Node, s string) []*richtext.Node {
	if s == "" {
		return out
	}
	if last := len(out) - 1; last >= 0 && out[last].Kind == richtext.KindText {
		out[last].Text += s
		return out
	}
	return append(out, richtext.Text(s))
}

func trimTrailingBreak(out []*richtext.Node) []*richtext.Node {
	last := len(out) - 1
	if last < 0 || out[last].Kind != richtext.KindText {
		return out
	}
	out[last].Text = strings.TrimRight(out[last].Text, "\n")
	if out[last].Text == "" {
		return out[:last]
	}
	return out
}

func unescape(b []byte) string {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	b = util.ResolveEntityNames(b)
	return string(b)
}
