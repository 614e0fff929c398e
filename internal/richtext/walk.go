package richtext

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/starford/mdbridge/internal/apperr"
)

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// PlainText concatenates the visible text under n.
func PlainText(n *Node) string {
	var b strings.Builder
	writePlain(&b, n)
	return b.String()
}

func writePlain(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindText, KindInlineCode, KindCodeBlock:
		b.WriteString(n.Text)
	case KindWikiLink:
		b.WriteString(n.DisplayText)
	case KindCanvasLink:
		b.WriteString(n.Name)
	case KindImage:
		b.WriteString(n.Alt)
	case KindMathInline, KindMathBlock:
		b.WriteString(n.Latex)
	case KindLineBreak:
		b.WriteByte('\n')
	}
	for _, c := range n.Children {
		writePlain(b, c)
	}
}

// Equal reports whether two trees are structurally equivalent. Nil and empty
// child lists compare equal.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Text != b.Text || a.Level != b.Level ||
		a.Language != b.Language || a.Href != b.Href ||
		a.Target != b.Target || a.DisplayText != b.DisplayText || a.Embed != b.Embed ||
		a.Name != b.Name || a.Broken != b.Broken ||
		a.FragmentID != b.FragmentID || a.Width != b.Width || a.Height != b.Height ||
		a.Src != b.Src || a.Alt != b.Alt ||
		a.Ordered != b.Ordered || a.Start != b.Start ||
		a.State != b.State || a.Header != b.Header || a.Latex != b.Latex {
		return false
	}
	if len(a.Meta) != len(b.Meta) || (len(a.Meta) > 0 && !maps.EqualFunc(a.Meta, b.Meta, metaEqual)) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func metaEqual(x, y any) bool { return reflect.DeepEqual(x, y) }

// Decode reads a tree from its JSON form. Malformed input is reported as
// apperr.ErrInvalidArgument.
func Decode(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: decode tree: %v", apperr.ErrInvalidArgument, err)
	}
	if n.Kind == KindUnknown && len(n.Children) == 0 && n.Text == "" {
		return nil, fmt.Errorf("%w: decode tree: missing kind", apperr.ErrInvalidArgument)
	}
	return &n, nil
}

// Dump renders n as a compact s-expression, for logs and test failures.
func Dump(n *Node) string {
	var b strings.Builder
	dump(&b, n)
	return b.String()
}

func dump(b *strings.Builder, n *Node) {
	if n == nil {
		b.WriteString("nil")
		return
	}
	b.WriteByte('(')
	b.WriteString(n.Kind.String())
	switch n.Kind {
	case KindText, KindInlineCode:
		fmt.Fprintf(b, " %q", n.Text)
	case KindCodeBlock:
		fmt.Fprintf(b, " lang=%q %q", n.Language, n.Text)
	case KindHeading:
		fmt.Fprintf(b, " level=%d", n.Level)
	case KindLink:
		fmt.Fprintf(b, " href=%q", n.Href)
	case KindImage:
		fmt.Fprintf(b, " src=%q alt=%q", n.Src, n.Alt)
	case KindWikiLink:
		fmt.Fprintf(b, " target=%q display=%q embed=%t", n.Target, n.DisplayText, n.Embed)
	case KindCanvasLink:
		fmt.Fprintf(b, " name=%q broken=%t", n.Name, n.Broken)
	case KindEmbeddedCanvas:
		fmt.Fprintf(b, " id=%q %dx%d", n.FragmentID, n.Width, n.Height)
	case KindList:
		fmt.Fprintf(b, " ordered=%t start=%d", n.Ordered, n.Start)
	case KindTaskItem:
		fmt.Fprintf(b, " state=%s", n.State)
	case KindTableCell:
		fmt.Fprintf(b, " header=%t", n.Header)
	case KindMathInline, KindMathBlock:
		fmt.Fprintf(b, " %q", n.Latex)
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		dump(b, c)
	}
	b.WriteByte(')')
}
