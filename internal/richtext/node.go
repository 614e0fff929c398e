package richtext

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Node is one element of a rich content tree. Only the attribute fields that
// belong to Kind are meaningful; the rest stay at their zero values.
type Node struct {
	Kind     Kind    `json:"kind"`
	Children []*Node `json:"children,omitempty"`

	// Text holds the literal content of text, inline-code and code-block nodes.
	Text string `json:"text,omitempty"`

	Level    int    `json:"level,omitempty"`    // heading
	Language string `json:"language,omitempty"` // code-block
	Href     string `json:"href,omitempty"`     // link

	// wiki-link: Target is stored exactly as written, including any "|display" part.
	Target      string `json:"target,omitempty"`
	DisplayText string `json:"displayText,omitempty"`
	Embed       bool   `json:"isEmbed,omitempty"`

	Name   string `json:"name,omitempty"`     // canvas-link
	Broken bool   `json:"isBroken,omitempty"` // canvas-link

	FragmentID string `json:"fragmentId,omitempty"` // embedded-canvas
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`

	Src string `json:"src,omitempty"` // image
	Alt string `json:"alt,omitempty"`

	Ordered bool `json:"ordered,omitempty"` // list
	Start   int  `json:"start,omitempty"`

	State TaskState `json:"state,omitempty"` // task-item

	Header bool `json:"isHeader,omitempty"` // table-cell

	Latex string `json:"latex,omitempty"` // math-inline, math-block

	// Meta carries document frontmatter.
	Meta map[string]any `json:"meta,omitempty"`
}

// Append adds children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func Document(children ...*Node) *Node  { return &Node{Kind: KindDocument, Children: children} }
func Paragraph(children ...*Node) *Node { return &Node{Kind: KindParagraph, Children: children} }
func Text(s string) *Node               { return &Node{Kind: KindText, Text: s} }
func Strong(children ...*Node) *Node    { return &Node{Kind: KindStrong, Children: children} }
func Emphasis(children ...*Node) *Node  { return &Node{Kind: KindEmphasis, Children: children} }
func Strike(children ...*Node) *Node    { return &Node{Kind: KindStrikethrough, Children: children} }
func Highlight(children ...*Node) *Node { return &Node{Kind: KindHighlight, Children: children} }
func InlineCode(s string) *Node         { return &Node{Kind: KindInlineCode, Text: s} }
func Blockquote(children ...*Node) *Node {
	return &Node{Kind: KindBlockquote, Children: children}
}
func HorizontalRule() *Node { return &Node{Kind: KindHorizontalRule} }
func LineBreak() *Node      { return &Node{Kind: KindLineBreak} }

func Heading(level int, children ...*Node) *Node {
	return &Node{Kind: KindHeading, Level: level, Children: children}
}

func CodeBlock(language, code string) *Node {
	return &Node{Kind: KindCodeBlock, Language: language, Text: code}
}

func Link(href string, children ...*Node) *Node {
	return &Node{Kind: KindLink, Href: href, Children: children}
}

func Image(src, alt string) *Node { return &Node{Kind: KindImage, Src: src, Alt: alt} }

// WikiLink builds a wiki-link whose display text is derived from target.
func WikiLink(target string, embed bool) *Node {
	return &Node{Kind: KindWikiLink, Target: target, DisplayText: WikiDisplay(target), Embed: embed}
}

func CanvasLink(name string) *Node { return &Node{Kind: KindCanvasLink, Name: name} }

func EmbeddedCanvas(fragmentID string, width, height int) *Node {
	return &Node{Kind: KindEmbeddedCanvas, FragmentID: fragmentID, Width: width, Height: height}
}

func List(ordered bool, start int, items ...*Node) *Node {
	return &Node{Kind: KindList, Ordered: ordered, Start: start, Children: items}
}

func ListItem(children ...*Node) *Node { return &Node{Kind: KindListItem, Children: children} }

func TaskItem(state TaskState, children ...*Node) *Node {
	return &Node{Kind: KindTaskItem, State: state, Children: children}
}

func Table(rows ...*Node) *Node    { return &Node{Kind: KindTable, Children: rows} }
func TableRow(cells ...*Node) *Node { return &Node{Kind: KindTableRow, Children: cells} }

func TableCell(header bool, children ...*Node) *Node {
	return &Node{Kind: KindTableCell, Header: header, Children: children}
}

func MathInline(latex string) *Node { return &Node{Kind: KindMathInline, Latex: latex} }
func MathBlock(latex string) *Node  { return &Node{Kind: KindMathBlock, Latex: latex} }

// WikiPath returns the link path of a wiki target: everything before the first '|'.
func WikiPath(target string) string {
	if i := strings.IndexByte(target, '|'); i >= 0 {
		return target[:i]
	}
	return target
}

// WikiDisplay returns the text shown for a wiki target: the part after the
// first '|' when present, otherwise the whole target.
func WikiDisplay(target string) string {
	if i := strings.IndexByte(target, '|'); i >= 0 {
		return target[i+1:]
	}
	return target
}

var fragmentIDRe = regexp.MustCompile(`^[0-9a-f]+(?:-[0-9a-f]+)*$`)

// ValidFragmentID reports whether id is lowercase hex groups joined by hyphens.
func ValidFragmentID(id string) bool {
	return fragmentIDRe.MatchString(id)
}

// NewEmbeddedCanvas returns an embedded canvas with a freshly allocated fragment id.
func NewEmbeddedCanvas(width, height int) *Node {
	return EmbeddedCanvas(uuid.NewString(), width, height)
}

// Canvas display bounds applied when an embedded canvas is shown.
const (
	CanvasMinWidth  = 200
	CanvasMaxWidth  = 1200
	CanvasMinHeight = 150
	CanvasMaxHeight = 800
)

// ClampCanvasSize clamps stored canvas dimensions to the display bounds.
func ClampCanvasSize(width, height int) (int, int) {
	return clamp(width, CanvasMinWidth, CanvasMaxWidth), clamp(height, CanvasMinHeight, CanvasMaxHeight)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
