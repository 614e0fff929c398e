package markdown

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

const priorityMathBlock = 720

var mathFence = []byte("$$")

// mathBlockParser handles display math. A block opens on a line that is
// exactly "$$" when a later line closes it, or on a line that is a whole
// "$$x$$". Other lines starting with $$ are paragraphs, where the inline
// rule applies.
type mathBlockParser struct{}

func (b *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (b *mathBlockParser) Open(_ ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], mathFence) {
		return nil, parser.NoChildren
	}

	rest := bytes.TrimSpace(line[pos+2:])
	if len(rest) == 0 {
		if !closedLater(reader.Source(), segment.Stop) {
			return nil, parser.NoChildren
		}
		return &mathBlockNode{}, parser.NoChildren
	}

	if len(rest) > 2 && bytes.HasSuffix(rest, mathFence) {
		latex := rest[:len(rest)-2]
		if bytes.Contains(latex, mathFence) || len(bytes.TrimSpace(latex)) == 0 {
			return nil, parser.NoChildren
		}
		node := &mathBlockNode{closed: true}
		node.appendLine(bytes.TrimSpace(latex))
		return node, parser.NoChildren
	}
	return nil, parser.NoChildren
}

// closedLater reports whether some line of src at or after from ends in $$.
func closedLater(src []byte, from int) bool {
	for from < len(src) {
		end := bytes.IndexByte(src[from:], '\n')
		line := src[from:]
		if end >= 0 {
			line = src[from : from+end]
		}
		if bytes.HasSuffix(bytes.TrimRight(line, " \t\r"), mathFence) {
			return true
		}
		if end < 0 {
			break
		}
		from += end + 1
	}
	return false
}

func (b *mathBlockParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	n := node.(*mathBlockNode)
	if n.closed {
		return parser.Close
	}

	line, segment := reader.PeekLine()
	content := bytes.TrimRight(line, "\r\n")
	trimmed := bytes.TrimRight(content, " \t")
	if bytes.HasSuffix(trimmed, mathFence) {
		head := trimmed[:len(trimmed)-2]
		if len(bytes.TrimSpace(head)) > 0 {
			n.appendLine(head)
		}
		newline := 1
		if len(line) == 0 || line[len(line)-1] != '\n' {
			newline = 0
		}
		reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
		n.closed = true
		return parser.Close
	}

	n.appendLine(content)
	return parser.Continue | parser.NoChildren
}

func (n *mathBlockNode) appendLine(line []byte) {
	if n.hasLine {
		n.Latex = append(n.Latex, '\n')
	}
	n.Latex = append(n.Latex, line...)
	n.hasLine = true
}

func (b *mathBlockParser) Close(ast.Node, text.Reader, parser.Context) {}

func (b *mathBlockParser) CanInterruptParagraph() bool { return true }

func (b *mathBlockParser) CanAcceptIndentedLine() bool { return false }
