// Package richtext defines the editor-facing rich content tree: a closed set of
// node kinds with kind-specific attributes, shared by the Markdown parser, the
// serializer and the HTML adapter.
package richtext

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a node type. The set is closed; KindUnknown is only produced
// when decoding a tree that names a kind this package does not know.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDocument
	KindHeading
	KindParagraph
	KindText
	KindStrong
	KindEmphasis
	KindStrikethrough
	KindHighlight
	KindSuperscript
	KindSubscript
	KindInlineCode
	KindCodeBlock
	KindLink
	KindWikiLink
	KindCanvasLink
	KindEmbeddedCanvas
	KindImage
	KindList
	KindListItem
	KindTaskItem
	KindTable
	KindTableRow
	KindTableCell
	KindMathInline
	KindMathBlock
	KindBlockquote
	KindHorizontalRule
	KindLineBreak

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:        "unknown",
	KindDocument:       "document",
	KindHeading:        "heading",
	KindParagraph:      "paragraph",
	KindText:           "text",
	KindStrong:         "strong",
	KindEmphasis:       "emphasis",
	KindStrikethrough:  "strikethrough",
	KindHighlight:      "highlight",
	KindSuperscript:    "superscript",
	KindSubscript:      "subscript",
	KindInlineCode:     "inline-code",
	KindCodeBlock:      "code-block",
	KindLink:           "link",
	KindWikiLink:       "wiki-link",
	KindCanvasLink:     "canvas-link",
	KindEmbeddedCanvas: "embedded-canvas",
	KindImage:          "image",
	KindList:           "list",
	KindListItem:       "list-item",
	KindTaskItem:       "task-item",
	KindTable:          "table",
	KindTableRow:       "table-row",
	KindTableCell:      "table-cell",
	KindMathInline:     "math-inline",
	KindMathBlock:      "math-block",
	KindBlockquote:     "blockquote",
	KindHorizontalRule: "horizontal-rule",
	KindLineBreak:      "line-break",
}

// Kinds returns every known kind except KindUnknown, in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindDocument; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind maps a kind name to its Kind. Unrecognised names yield KindUnknown.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return Kind(k)
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// IsBlock reports whether nodes of this kind occupy their own block in a document.
func (k Kind) IsBlock() bool {
	switch k {
	case KindDocument, KindHeading, KindParagraph, KindCodeBlock, KindList, KindListItem,
		KindTaskItem, KindTable, KindTableRow, KindTableCell, KindMathBlock,
		KindBlockquote, KindHorizontalRule, KindEmbeddedCanvas:
		return true
	}
	return false
}

// MarshalJSON encodes the kind as its name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name. Unknown names decode to KindUnknown.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("richtext: kind must be a string: %w", err)
	}
	*k = ParseKind(name)
	return nil
}
