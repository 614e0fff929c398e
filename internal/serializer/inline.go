package serializer

import (
	"strings"

	"github.com/starford/mdbridge/internal/richtext"
)

// inlineWriter renders a run of inline nodes. para is false for contexts
// that must stay on one line (headings, table cells). around is the
// delimiter character enclosing a nested run, zero at the top level.
type inlineWriter struct {
	w      *writer
	b      strings.Builder
	para   bool
	nested bool
	around byte

	prev, next *richtext.Node
}

func (w *writer) inlines(nodes []*richtext.Node, para bool) string {
	iw := &inlineWriter{w: w, para: para}
	iw.run(nodes)
	return iw.b.String()
}

func (iw *inlineWriter) sub(nodes []*richtext.Node, around byte) string {
	child := &inlineWriter{w: iw.w, para: iw.para, nested: true, around: around}
	child.run(nodes)
	return child.b.String()
}

func (iw *inlineWriter) run(nodes []*richtext.Node) {
	for i, n := range nodes {
		iw.next = nil
		if i+1 < len(nodes) {
			iw.next = nodes[i+1]
		}
		iw.node(n)
		iw.prev = n
	}
}

func (iw *inlineWriter) atLineStart() bool {
	if !iw.para {
		return false
	}
	s := iw.b.String()
	if s == "" {
		return !iw.nested
	}
	return s[len(s)-1] == '\n'
}

func (iw *inlineWriter) node(n *richtext.Node) {
	if n == nil {
		return
	}
	opts := iw.w.opts
	switch n.Kind {
	case richtext.KindText:
		text := n.Text
		if !iw.para {
			text = strings.ReplaceAll(text, "\n", " ")
		}
		text = escapeText(text, iw.atLineStart())
		if strings.HasPrefix(text, "(") && iw.prev != nil && iw.prev.Kind == richtext.KindCanvasLink {
			// "![name](" would read as an image.
			text = "\\" + text
		}
		iw.b.WriteString(text)
	case richtext.KindStrong:
		iw.wrap("**", n.Children)
	case richtext.KindEmphasis:
		iw.emphasis(n.Children)
	case richtext.KindStrikethrough:
		iw.wrap("~~", n.Children)
	case richtext.KindHighlight:
		iw.wrap("==", n.Children)
	case richtext.KindSuperscript:
		iw.wrap("^", n.Children)
	case richtext.KindSubscript:
		iw.wrap("~", n.Children)
	case richtext.KindInlineCode:
		iw.b.WriteString(inlineCode(n.Text))
	case richtext.KindLink:
		iw.link(n)
	case richtext.KindImage:
		iw.b.WriteString("![" + escapeText(n.Alt, false) + "](" + destination(n.Src) + ")")
	case richtext.KindWikiLink:
		iw.wikiLink(n, opts.PreserveWikiLinks)
	case richtext.KindCanvasLink:
		if canvasName(n.Name) {
			iw.b.WriteString("![" + n.Name + "]")
		} else {
			iw.b.WriteString(escapeText("!["+n.Name+"]", false))
		}
	case richtext.KindEmbeddedCanvas:
		iw.b.WriteString(embeddedCanvas(n))
	case richtext.KindMathInline:
		iw.b.WriteString(iw.mathInline(n.Latex))
	case richtext.KindLineBreak:
		if iw.para {
			iw.b.WriteString("\\\n")
		} else {
			iw.b.WriteByte(' ')
		}
	case richtext.KindMathBlock:
		iw.b.WriteString("$$" + n.Latex + "$$")
	default:
		// Block or unknown content inside an inline run keeps its children.
		iw.run(n.Children)
	}
}

// wrap surrounds rendered children with delim, keeping edge whitespace
// outside the delimiters so they still open and close.
func (iw *inlineWriter) wrap(delim string, children []*richtext.Node) {
	inner := iw.sub(children, delim[0])
	core := strings.TrimSpace(inner)
	if core == "" {
		iw.b.WriteString(inner)
		return
	}
	lead := inner[:strings.Index(inner, core)]
	trail := inner[len(lead)+len(core):]
	iw.b.WriteString(lead + delim + core + delim + trail)
}

// emphasis picks "_" over "*" when a star delimiter would touch another
// star run, since "***x***" reads back with strong and emphasis swapped.
func (iw *inlineWriter) emphasis(children []*richtext.Node) {
	inner := iw.sub(children, '*')
	core := strings.TrimSpace(inner)
	if core == "" {
		iw.b.WriteString(inner)
		return
	}
	lead := inner[:strings.Index(inner, core)]
	trail := inner[len(lead)+len(core):]

	before, after := iw.lastByte(), iw.nextByte()
	if lead != "" {
		before = ' '
	}
	if trail != "" {
		after = ' '
	}
	delim := "*"
	if before == '*' || after == '*' || core[0] == '*' || core[len(core)-1] == '*' {
		delim = "_"
	}
	// "_" does not open or close inside a word.
	if delim == "_" && (isAlnum(before) || isAlnum(after)) {
		delim = "*"
	}
	iw.b.WriteString(lead + delim + core + delim + trail)
}

// lastByte is the character just before the writer's current position.
func (iw *inlineWriter) lastByte() byte {
	s := iw.b.String()
	if s == "" {
		return iw.around
	}
	return s[len(s)-1]
}

// nextByte approximates the first character the next sibling renders.
func (iw *inlineWriter) nextByte() byte {
	switch n := iw.next; {
	case n == nil:
		return iw.around
	case n.Kind == richtext.KindText && n.Text != "":
		return n.Text[0]
	case n.Kind == richtext.KindStrong || n.Kind == richtext.KindEmphasis:
		return '*'
	}
	return 0
}

// escapeTrailingBang escapes a "!" left at the end of the output so a
// following "[" does not turn a link into an image or embed.
func (iw *inlineWriter) escapeTrailingBang() {
	s := iw.b.String()
	if !strings.HasSuffix(s, "!") {
		return
	}
	slashes := 0
	for i := len(s) - 2; i >= 0 && s[i] == '\\'; i-- {
		slashes++
	}
	if slashes%2 == 1 {
		return
	}
	iw.b.Reset()
	iw.b.WriteString(s[:len(s)-1] + "\\!")
}

// mathInline uses the "$$x$$" form when "$x$" would not read back: edge
// whitespace or a digit right after the closing dollar.
func (iw *inlineWriter) mathInline(latex string) string {
	if strings.TrimSpace(latex) == "" {
		return "$" + latex + "$"
	}
	double := latex != strings.TrimSpace(latex)
	if n := iw.next; n != nil && n.Kind == richtext.KindText && n.Text != "" && n.Text[0] >= '0' && n.Text[0] <= '9' {
		double = true
	}
	if double {
		return "$$" + latex + "$$"
	}
	return "$" + latex + "$"
}

// canvasName reports whether name can be written as "![name]" and read
// back as the same canvas link.
func canvasName(name string) bool {
	return strings.TrimSpace(name) != "" &&
		!strings.ContainsAny(name, "[]\n") &&
		!strings.HasPrefix(name, "canvas:")
}

func (iw *inlineWriter) link(n *richtext.Node) {
	if len(n.Children) == 1 && n.Children[0].Kind == richtext.KindText &&
		n.Children[0].Text == n.Href && isAbsoluteURL(n.Href) {
		iw.b.WriteString("<" + n.Href + ">")
		return
	}
	iw.escapeTrailingBang()
	iw.b.WriteString("[" + iw.sub(n.Children, 0) + "](" + destination(n.Href) + ")")
}

func (iw *inlineWriter) wikiLink(n *richtext.Node, preserve bool) {
	if !n.Embed {
		iw.escapeTrailingBang()
	}
	if preserve {
		if n.Embed {
			iw.b.WriteByte('!')
		}
		iw.b.WriteString("[[" + n.Target + "]]")
		return
	}

	display := n.DisplayText
	if display == "" {
		display = richtext.WikiDisplay(n.Target)
	}
	if n.Embed {
		iw.b.WriteByte('!')
	}
	iw.b.WriteString("[" + escapeText(display, false) + "](" + destination(wikiHref(richtext.WikiPath(n.Target))) + ")")
}

func inlineCode(code string) string {
	if code == "" {
		return ""
	}
	fence := strings.Repeat("`", longestRun(code, '`')+1)
	pad := code[0] == '`' || code[len(code)-1] == '`' ||
		(code[0] == ' ' && code[len(code)-1] == ' ' && strings.TrimSpace(code) != "")
	if pad {
		return fence + " " + code + " " + fence
	}
	return fence + code + fence
}

// destination writes a link destination, wrapping it in <> when it holds
// spaces or parentheses.
func destination(href string) string {
	if strings.ContainsAny(href, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(href) + ">"
	}
	return href
}

func isAbsoluteURL(s string) bool {
	if strings.ContainsAny(s, " <>") {
		return false
	}
	i := strings.Index(s, "://")
	return i > 0 && !strings.ContainsAny(s[:i], "/?#")
}

// escapeText backslash-escapes characters that would otherwise be read as
// syntax when the text is parsed again.
func escapeText(s string, lineStart bool) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if lineStart {
			// "1. " and "1) " open ordered lists; escape the delimiter.
			if j := orderedDelimiter(s, i); j > 0 {
				b.WriteString(s[i:j])
				b.WriteByte('\\')
				b.WriteByte(s[j])
				i = j
				lineStart = false
				continue
			}
		}
		if (lineStart && startsBlock(c)) || needsEscape(s, i) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
		lineStart = c == '\n'
	}
	return b.String()
}

func needsEscape(s string, i int) bool {
	switch c := s[i]; c {
	case '*', '`', '[', ']', '$', '~', '^':
		return true
	case '\\':
		return i+1 >= len(s) || isASCIIPunct(s[i+1])
	case '_':
		return !(i > 0 && isAlnum(s[i-1]) && i+1 < len(s) && isAlnum(s[i+1]))
	case '=':
		return i+1 < len(s) && s[i+1] == '='
	case '<':
		return i+1 < len(s) && (isAlpha(s[i+1]) || s[i+1] == '/' || s[i+1] == '!' || s[i+1] == '?')
	case '&':
		return i+1 < len(s) && (isAlnum(s[i+1]) || s[i+1] == '#')
	}
	return false
}

// startsBlock reports whether c opens a block construct at the start of a line.
func startsBlock(c byte) bool {
	switch c {
	case '#', '>', '-', '+', '=', '|':
		return true
	}
	return false
}

// orderedDelimiter returns the index of the '.' or ')' after a run of digits
// starting at i when it forms an ordered list marker, otherwise -1.
func orderedDelimiter(s string, i int) int {
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i || j-i > 9 || j >= len(s) || (s[j] != '.' && s[j] != ')') {
		return -1
	}
	if j+1 < len(s) && s[j+1] != ' ' && s[j+1] != '\t' && s[j+1] != '\n' {
		return -1
	}
	return j
}

func isASCIIPunct(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') || (c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isAlnum(c byte) bool { return isAlpha(c) || (c >= '0' && c <= '9') || c >= 0x80 }
