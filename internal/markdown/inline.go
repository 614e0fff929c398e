package markdown

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Priorities below the core link parser (200) so custom bracket syntax wins.
const (
	priorityTaskMarker = 0
	priorityWikiLink   = 150
	priorityCanvas     = 160
	priorityMathInline = 170
	priorityDelimiters = 500
)

// taskMarkerParser recognises "[s]" at the very start of a list item.
type taskMarkerParser struct{}

func (p *taskMarkerParser) Trigger() []byte { return []byte{'['} }

func (p *taskMarkerParser) Parse(parent ast.Node, block text.Reader, _ parser.Context) ast.Node {
	// Expected shape: List > ListItem > Paragraph|TextBlock (parent), nothing parsed yet.
	item := parent.Parent()
	if item == nil || item.FirstChild() != parent || parent.HasChildren() {
		return nil
	}
	if _, ok := item.(*ast.ListItem); !ok {
		return nil
	}

	line, _ := block.PeekLine()
	if len(line) < 3 || line[0] != '[' || line[2] != ']' {
		return nil
	}
	sym := line[1]
	if sym == '[' || sym == ']' || sym == '\n' || sym == '\r' || sym >= 0x80 {
		return nil
	}
	n := 3
	if n < len(line) && !isSpaceOrEOL(line[n]) {
		return nil
	}
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	block.Advance(n)
	return &taskMarkerNode{Symbol: sym}
}

// wikiLinkParser recognises [[target]] and ![[target]].
type wikiLinkParser struct{}

func (p *wikiLinkParser) Trigger() []byte { return []byte{'[', '!'} }

func (p *wikiLinkParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	open, embed := 2, false
	switch {
	case bytes.HasPrefix(line, []byte("![[")):
		open, embed = 3, true
	case bytes.HasPrefix(line, []byte("[[")):
	default:
		return nil
	}

	end := bytes.Index(line[open:], []byte("]]"))
	if end <= 0 {
		return nil
	}
	target := line[open : open+end]
	if bytes.ContainsAny(target, "[]\n") || len(bytes.TrimSpace(target)) == 0 {
		return nil
	}
	block.Advance(open + end + 2)
	return &wikiLinkNode{Target: string(target), Embed: embed}
}

var embeddedCanvasRe = regexp.MustCompile(`^canvas:([0-9a-f]+(?:-[0-9a-f]+)*):([0-9]+)x([0-9]+)$`)

// canvasParser recognises ![Name] canvas links and ![canvas:id:WxH] embeds.
// Anything else starting with "![" is left to the image parser.
type canvasParser struct{}

func (p *canvasParser) Trigger() []byte { return []byte{'!'} }

func (p *canvasParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if !bytes.HasPrefix(line, []byte("![")) || bytes.HasPrefix(line, []byte("![[")) {
		return nil
	}
	end := bytes.IndexByte(line[2:], ']')
	if end <= 0 {
		return nil
	}
	name := line[2 : 2+end]
	if bytes.IndexByte(name, '[') >= 0 || bytes.IndexByte(name, '\n') >= 0 {
		return nil
	}
	consumed := 2 + end + 1

	if bytes.HasPrefix(name, []byte("canvas:")) {
		m := embeddedCanvasRe.FindSubmatch(name)
		if m == nil {
			return nil
		}
		w, errW := strconv.Atoi(string(m[2]))
		h, errH := strconv.Atoi(string(m[3]))
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			return nil
		}
		block.Advance(consumed)
		return &embeddedCanvasNode{FragmentID: string(m[1]), Width: w, Height: h}
	}

	if consumed < len(line) && line[consumed] == '(' {
		return nil
	}
	if len(bytes.TrimSpace(name)) == 0 {
		return nil
	}
	block.Advance(consumed)
	return &canvasLinkNode{Name: string(name)}
}

// mathInlineParser recognises $latex$ and $$latex$$ within a line.
type mathInlineParser struct{}

func (p *mathInlineParser) Trigger() []byte { return []byte{'$'} }

func (p *mathInlineParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 3 {
		return nil
	}

	if line[1] == '$' {
		end := bytes.Index(line[2:], []byte("$$"))
		if end <= 0 || len(bytes.TrimSpace(line[2:2+end])) == 0 {
			return nil
		}
		block.Advance(2 + end + 2)
		return &mathInlineNode{Latex: string(line[2 : 2+end])}
	}

	// Opening $ must be followed by content, the closing $ must follow
	// content and not be followed by a digit ("$5 and $10" stays text).
	if isSpaceOrEOL(line[1]) {
		return nil
	}
	for i := 2; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '\n':
			return nil
		case '$':
			if line[i-1] == ' ' || line[i-1] == '\t' {
				continue
			}
			if i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' {
				continue
			}
			block.Advance(i + 1)
			return &mathInlineNode{Latex: string(line[1:i])}
		}
	}
	return nil
}

// delimiterProcessor builds span nodes for a delimiter character. make is
// called with the number of delimiter characters consumed on each side.
type delimiterProcessor struct {
	char byte
	make func(consumes int) ast.Node
}

func (p *delimiterProcessor) IsDelimiter(b byte) bool { return b == p.char }

func (p *delimiterProcessor) CanOpenCloser(opener, closer *parser.Delimiter) bool {
	return opener.Char == closer.Char
}

func (p *delimiterProcessor) OnMatch(consumes int) ast.Node { return p.make(consumes) }

// delimiterParser scans runs of min..max delimiter characters, after the
// fashion of goldmark's strikethrough extension.
type delimiterParser struct {
	proc     *delimiterProcessor
	min, max int
}

func (p *delimiterParser) Trigger() []byte { return []byte{p.proc.char} }

func (p *delimiterParser) Parse(_ ast.Node, block text.Reader, pc parser.Context) ast.Node {
	before := block.PrecendingCharacter()
	line, segment := block.PeekLine()
	node := parser.ScanDelimiter(line, before, p.min, p.proc)
	if node == nil || node.OriginalLength > p.max || before == rune(p.proc.char) {
		return nil
	}
	node.Segment = segment.WithStop(segment.Start + node.OriginalLength)
	block.Advance(node.OriginalLength)
	pc.PushDelimiter(node)
	return node
}

func span(kind ast.NodeKind) ast.Node { return &spanNode{kind: kind} }

var (
	highlightDelimiter = &delimiterParser{
		proc: &delimiterProcessor{char: '=', make: func(int) ast.Node { return span(kindHighlight) }},
		min:  2, max: 2,
	}
	tildeDelimiter = &delimiterParser{
		proc: &delimiterProcessor{char: '~', make: func(consumes int) ast.Node {
			if consumes >= 2 {
				return span(kindStrikethrough)
			}
			return span(kindSubscript)
		}},
		min: 1, max: 2,
	}
	caretDelimiter = &delimiterParser{
		proc: &delimiterProcessor{char: '^', make: func(int) ast.Node { return span(kindSuperscript) }},
		min:  1, max: 1,
	}
)

func isSpaceOrEOL(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
