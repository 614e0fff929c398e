// Package serializer writes a rich content tree back out as Markdown text
// using the note syntax (wiki-links, canvas links, math, extended tasks).
package serializer

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/starford/mdbridge/internal/frontmatter"
	"github.com/starford/mdbridge/internal/richtext"
)

// Options controls serialization.
type Options struct {
	// PreserveWikiLinks keeps [[target]] syntax; when false wiki-links are
	// written as standard Markdown links.
	PreserveWikiLinks bool `json:"preserveWikiLinks"`
	// IncludeMetadata prepends the document's Meta as frontmatter.
	IncludeMetadata bool `json:"includeMetadata"`
}

// DefaultOptions preserves wiki-links and includes metadata.
func DefaultOptions() Options {
	return Options{PreserveWikiLinks: true, IncludeMetadata: true}
}

// Serialize renders tree as Markdown. Blocks are separated by a blank line
// and the result carries no trailing newline. Serialization only fails when
// the document metadata cannot be encoded.
func Serialize(tree *richtext.Node, opts Options) (string, error) {
	if tree == nil {
		return "", nil
	}
	w := &writer{opts: opts}
	body := strings.TrimRight(w.block(tree), "\n")

	if opts.IncludeMetadata && len(tree.Meta) > 0 {
		return frontmatter.Add(body, tree.Meta)
	}
	return body, nil
}

// Body renders tree as Markdown without frontmatter.
func Body(tree *richtext.Node, opts Options) string {
	if tree == nil {
		return ""
	}
	w := &writer{opts: opts}
	return strings.TrimRight(w.block(tree), "\n")
}

type writer struct {
	opts Options
}

// blocks renders block children separated by blank lines. Inline runs
// between blocks are gathered into a single paragraph.
func (w *writer) blocks(children []*richtext.Node) string {
	parts := make([]string, 0, len(children))
	var run []*richtext.Node
	flush := func() {
		if len(run) > 0 {
			parts = append(parts, w.inlines(run, true))
			run = nil
		}
	}
	for _, c := range children {
		if c == nil {
			continue
		}
		if !c.Kind.IsBlock() && c.Kind != richtext.KindUnknown {
			run = append(run, c)
			continue
		}
		flush()
		if s := w.block(c); s != "" {
			parts = append(parts, s)
		}
	}
	flush()
	return strings.Join(parts, "\n\n")
}

func (w *writer) block(n *richtext.Node) string {
	switch n.Kind {
	case richtext.KindDocument:
		return w.blocks(n.Children)
	case richtext.KindHeading:
		level := min(max(n.Level, 1), 6)
		return strings.Repeat("#", level) + " " + headingText(strings.ReplaceAll(w.inlines(n.Children, false), "\n", " "))
	case richtext.KindParagraph:
		return w.inlines(n.Children, true)
	case richtext.KindCodeBlock:
		fence := codeFence(n.Text)
		return fence + n.Language + "\n" + n.Text + "\n" + fence
	case richtext.KindMathBlock:
		return "$$\n" + n.Latex + "\n$$"
	case richtext.KindBlockquote:
		return prefixLines(w.blocks(n.Children), "> ", ">")
	case richtext.KindHorizontalRule:
		return "---"
	case richtext.KindList:
		return w.list(n)
	case richtext.KindListItem, richtext.KindTaskItem:
		return w.item(n, "- ")
	case richtext.KindTable:
		return w.table(n)
	case richtext.KindTableRow:
		return w.table(richtext.Table(n))
	case richtext.KindTableCell:
		return w.inlines(n.Children, true)
	case richtext.KindEmbeddedCanvas:
		return embeddedCanvas(n)
	case richtext.KindUnknown:
		return w.blocks(n.Children)
	case richtext.KindText, richtext.KindStrong, richtext.KindEmphasis,
		richtext.KindStrikethrough, richtext.KindHighlight, richtext.KindSuperscript,
		richtext.KindSubscript, richtext.KindInlineCode, richtext.KindLink,
		richtext.KindWikiLink, richtext.KindCanvasLink, richtext.KindImage,
		richtext.KindMathInline, richtext.KindLineBreak:
		return w.inlines([]*richtext.Node{n}, true)
	}
	return w.blocks(n.Children)
}

func (w *writer) list(n *richtext.Node) string {
	lines := make([]string, 0, len(n.Children))
	num := n.Start
	if n.Ordered && num < 0 {
		num = 0
	} else if n.Ordered && num == 0 {
		num = 1
	}
	for _, item := range n.Children {
		marker := "- "
		if n.Ordered {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		lines = append(lines, w.item(item, marker))
	}
	return strings.Join(lines, "\n")
}

// item renders one list entry. The first block follows the marker; later
// blocks are indented to the marker width.
func (w *writer) item(n *richtext.Node, marker string) string {
	// Continuation lines align with the list marker, not the checkbox.
	indent := strings.Repeat(" ", len(marker))
	if n.Kind == richtext.KindTaskItem {
		marker += "[" + string(n.State.Symbol()) + "] "
	}
	if n.Kind != richtext.KindListItem && n.Kind != richtext.KindTaskItem {
		return marker + indentRest(w.block(n), indent)
	}

	var b strings.Builder
	b.WriteString(marker)
	children := n.Children
	if len(children) == 0 {
		return strings.TrimRight(marker, " ")
	}
	var prevList bool
	for i, c := range children {
		s := w.block(c)
		if i > 0 {
			// Nested lists stay tight; other blocks need a blank line.
			if c.Kind == richtext.KindList || prevList {
				b.WriteString("\n" + indent)
			} else {
				b.WriteString("\n\n" + indent)
			}
		}
		b.WriteString(indentRest(s, indent))
		prevList = c.Kind == richtext.KindList
	}
	return b.String()
}

func (w *writer) table(n *richtext.Node) string {
	var rows [][]string
	for _, r := range n.Children {
		if r.Kind != richtext.KindTableRow {
			continue
		}
		cells := make([]string, 0, len(r.Children))
		for _, c := range r.Children {
			cells = append(cells, cellText(w.inlines(c.Children, false)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return ""
	}

	// Every row is normalised to the header width: short rows are padded,
	// long rows truncated.
	width := max(len(rows[0]), 1)
	var b strings.Builder
	for i, cells := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(tableRow(cells, width))
		if i == 0 {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}
			b.WriteByte('\n')
			b.WriteString(tableRow(sep, width))
		}
	}
	return b.String()
}

func tableRow(cells []string, width int) string {
	var b strings.Builder
	b.WriteByte('|')
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(" " + cell + " |")
	}
	return b.String()
}

func cellText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return escapePipes(s)
}

// escapePipes escapes every '|' not already preceded by an odd number of
// backslashes.
func escapePipes(s string) string {
	if !strings.Contains(s, "|") {
		return s
	}
	var b strings.Builder
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '|' && slashes%2 == 0 {
			b.WriteByte('\\')
		}
		if c == '\\' {
			slashes++
		} else {
			slashes = 0
		}
		b.WriteByte(c)
	}
	return b.String()
}

func embeddedCanvas(n *richtext.Node) string {
	return "![canvas:" + n.FragmentID + ":" + strconv.Itoa(n.Width) + "x" + strconv.Itoa(n.Height) + "]"
}

// wikiHref turns a wiki path into a relative link destination.
func wikiHref(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// codeFence returns a backtick fence longer than any backtick run in code.
func codeFence(code string) string {
	return strings.Repeat("`", max(3, longestRun(code, '`')+1))
}

func longestRun(s string, c byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			best = max(best, cur)
		} else {
			cur = 0
		}
	}
	return best
}

func prefixLines(s, prefix, emptyPrefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = emptyPrefix
		} else {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// indentRest indents every line of s after the first; blank lines stay empty.
func indentRest(s, indent string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// headingText escapes a trailing run of "#" that would otherwise be read
// as the heading's optional closing sequence.
func headingText(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '#' {
		i--
	}
	if i == len(s) || (i > 0 && s[i-1] != ' ' && s[i-1] != '\t') {
		return s
	}
	return s[:i] + "\\" + s[i:]
}
