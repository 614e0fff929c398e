package markdown

import (
	"strconv"

	"github.com/yuin/goldmark/ast"
)

// goldmark node kinds for the custom syntax.
var (
	kindWikiLink       = ast.NewNodeKind("WikiLink")
	kindCanvasLink     = ast.NewNodeKind("CanvasLink")
	kindEmbeddedCanvas = ast.NewNodeKind("EmbeddedCanvas")
	kindMathInline     = ast.NewNodeKind("MathInline")
	kindMathBlock      = ast.NewNodeKind("MathBlock")
	kindTaskMarker     = ast.NewNodeKind("TaskMarker")
	kindHighlight      = ast.NewNodeKind("Highlight")
	kindStrikethrough  = ast.NewNodeKind("Strikethrough")
	kindSuperscript    = ast.NewNodeKind("Superscript")
	kindSubscript      = ast.NewNodeKind("Subscript")
)

// wikiLinkNode is [[target]] or ![[target]].
type wikiLinkNode struct {
	ast.BaseInline
	Target string
	Embed  bool
}

func (n *wikiLinkNode) Kind() ast.NodeKind { return kindWikiLink }

func (n *wikiLinkNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Target": n.Target,
		"Embed":  strconv.FormatBool(n.Embed),
	}, nil)
}

// canvasLinkNode is ![Name].
type canvasLinkNode struct {
	ast.BaseInline
	Name string
}

func (n *canvasLinkNode) Kind() ast.NodeKind { return kindCanvasLink }

func (n *canvasLinkNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Name}, nil)
}

// embeddedCanvasNode is ![canvas:<id>:<W>x<H>].
type embeddedCanvasNode struct {
	ast.BaseInline
	FragmentID    string
	Width, Height int
}

func (n *embeddedCanvasNode) Kind() ast.NodeKind { return kindEmbeddedCanvas }

func (n *embeddedCanvasNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"FragmentID": n.FragmentID,
		"Width":      strconv.Itoa(n.Width),
		"Height":     strconv.Itoa(n.Height),
	}, nil)
}

type mathInlineNode struct {
	ast.BaseInline
	Latex string
}

func (n *mathInlineNode) Kind() ast.NodeKind { return kindMathInline }

func (n *mathInlineNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Latex": n.Latex}, nil)
}

// mathBlockNode is a $$ ... $$ block. Its content is kept outside Lines so
// goldmark never runs inline parsing over it.
type mathBlockNode struct {
	ast.BaseBlock
	Latex   []byte
	hasLine bool
	closed  bool
}

func (n *mathBlockNode) Kind() ast.NodeKind { return kindMathBlock }

func (n *mathBlockNode) IsRaw() bool { return true }

func (n *mathBlockNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Latex": string(n.Latex)}, nil)
}

// taskMarkerNode is the [s] checkbox that opens a list item.
type taskMarkerNode struct {
	ast.BaseInline
	Symbol byte
}

func (n *taskMarkerNode) Kind() ast.NodeKind { return kindTaskMarker }

func (n *taskMarkerNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Symbol": string(n.Symbol)}, nil)
}

// spanNode wraps delimiter-based inline formatting (==, ~~, ~, ^).
type spanNode struct {
	ast.BaseInline
	kind ast.NodeKind
}

func (n *spanNode) Kind() ast.NodeKind { return n.kind }

func (n *spanNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}
