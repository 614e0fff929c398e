package serializer

import (
	"strings"
	"testing"

	rt "github.com/starford/mdbridge/internal/richtext"
)

func serialize(t *testing.T, tree *rt.Node, opts Options) string {
	t.Helper()
	out, err := Serialize(tree, opts)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return out
}

func TestSerialize_HeadingAndParagraph(t *testing.T) {
	got := serialize(t, rt.Document(
		rt.Heading(2, rt.Text("Title")),
		rt.Paragraph(rt.Text("Body "), rt.Strong(rt.Text("bold")), rt.Text(" and "), rt.Emphasis(rt.Text("it"))),
	), DefaultOptions())
	want := "## Title\n\nBody **bold** and *it*"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_InlineMarks(t *testing.T) {
	got := serialize(t, rt.Paragraph(
		rt.Strike(rt.Text("old")), rt.Text(" "),
		rt.Highlight(rt.Text("key")), rt.Text(" H"),
		&rt.Node{Kind: rt.KindSubscript, Children: []*rt.Node{rt.Text("2")}},
		rt.Text("O x"),
		&rt.Node{Kind: rt.KindSuperscript, Children: []*rt.Node{rt.Text("2")}},
		rt.Text(" "),
		rt.InlineCode("a`b"),
	), DefaultOptions())
	want := "~~old~~ ==key== H~2~O x^2^ ``a`b``"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_EdgeWhitespaceStaysOutsideMarks(t *testing.T) {
	got := serialize(t, rt.Paragraph(rt.Text("a"), rt.Strong(rt.Text(" b ")), rt.Text("c")), DefaultOptions())
	if got != "a **b** c" {
		t.Errorf("got %q", got)
	}
}

func TestSerialize_TaskStates(t *testing.T) {
	for _, st := range rt.TaskStates() {
		got := serialize(t, rt.List(false, 0, rt.TaskItem(st, rt.Paragraph(rt.Text("Do it")))), DefaultOptions())
		want := "- [" + string(st.Symbol()) + "] Do it"
		if got != want {
			t.Errorf("state %s: got %q, want %q", st, got, want)
		}
	}
}

func TestSerialize_TaskUnaffectedByWikiOption(t *testing.T) {
	tree := rt.Document(rt.List(false, 0, rt.TaskItem(rt.TaskTodo, rt.Paragraph(rt.Text("Buy milk")))))
	got := serialize(t, tree, Options{PreserveWikiLinks: false})
	if got != "- [ ] Buy milk" {
		t.Errorf("got %q", got)
	}
}

func TestSerialize_WikiLinks(t *testing.T) {
	tree := rt.Paragraph(
		rt.WikiLink("Folder/My Note|Shown", false),
		rt.Text(" "),
		rt.WikiLink("pic.png", true),
	)
	if got := serialize(t, tree, DefaultOptions()); got != "[[Folder/My Note|Shown]] ![[pic.png]]" {
		t.Errorf("preserve: got %q", got)
	}
	if got := serialize(t, tree, Options{}); got != "[Shown](Folder/My%20Note) ![pic.png](pic.png)" {
		t.Errorf("convert: got %q", got)
	}
}

func TestSerialize_CanvasSyntax(t *testing.T) {
	got := serialize(t, rt.Document(
		rt.Paragraph(rt.Text("See "), rt.CanvasLink("Board")),
		rt.EmbeddedCanvas("abc-123", 600, 400),
	), DefaultOptions())
	want := "See ![Board]\n\n![canvas:abc-123:600x400]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_Math(t *testing.T) {
	got := serialize(t, rt.Document(
		rt.Paragraph(rt.Text("Inline "), rt.MathInline("x^2")),
		rt.MathBlock("\\sum_i x_i"),
	), DefaultOptions())
	want := "Inline $x^2$\n\n$$\n\\sum_i x_i\n$$"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_CodeBlock(t *testing.T) {
	got := serialize(t, rt.CodeBlock("go", "x := 1"), DefaultOptions())
	if got != "```go\nx := 1\n```" {
		t.Errorf("got %q", got)
	}
	got = serialize(t, rt.CodeBlock("", "```inner```"), DefaultOptions())
	if got != "````\n```inner```\n````" {
		t.Errorf("fence not lengthened: %q", got)
	}
}

func TestSerialize_Blockquote(t *testing.T) {
	got := serialize(t, rt.Blockquote(
		rt.Paragraph(rt.Text("line one\nline two")),
		rt.Paragraph(rt.Text("second")),
	), DefaultOptions())
	want := "> line one\n> line two\n>\n> second"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_RaggedTableNormalisedToHeader(t *testing.T) {
	tree := rt.Table(
		rt.TableRow(rt.TableCell(true, rt.Text("a")), rt.TableCell(true, rt.Text("b"))),
		rt.TableRow(rt.TableCell(false, rt.Text("1"))),
		rt.TableRow(rt.TableCell(false, rt.Text("x")), rt.TableCell(false, rt.Text("y")), rt.TableCell(false, rt.Text("z"))),
	)
	got := serialize(t, tree, DefaultOptions())
	want := "| a | b |\n| --- | --- |\n| 1 |  |\n| x | y |"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSerialize_TableCellPipes(t *testing.T) {
	tree := rt.Table(
		rt.TableRow(rt.TableCell(true, rt.Text("a|b"))),
		rt.TableRow(rt.TableCell(false, rt.Text("c"))),
	)
	got := serialize(t, tree, DefaultOptions())
	if !strings.HasPrefix(got, `| a\|b |`) {
		t.Errorf("got %q", got)
	}
}

func TestSerialize_NestedLists(t *testing.T) {
	tree := rt.List(true, 1,
		rt.ListItem(rt.Paragraph(rt.Text("one")), rt.List(false, 0, rt.ListItem(rt.Paragraph(rt.Text("inner"))))),
		rt.ListItem(rt.Paragraph(rt.Text("two"))),
	)
	got := serialize(t, tree, DefaultOptions())
	want := "1. one\n   - inner\n2. two"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_UnknownKindEmitsChildren(t *testing.T) {
	tree := rt.Document(
		&rt.Node{Kind: rt.KindUnknown, Children: []*rt.Node{rt.Paragraph(rt.Text("kept"))}},
		rt.Paragraph(rt.Text("a "), &rt.Node{Kind: rt.KindUnknown, Children: []*rt.Node{rt.Text("b")}}),
	)
	got := serialize(t, tree, DefaultOptions())
	if got != "kept\n\na b" {
		t.Errorf("got %q", got)
	}
}

func TestSerialize_EscapesSyntaxInText(t *testing.T) {
	got := serialize(t, rt.Paragraph(rt.Text("1. not *a list* [[x]] $5")), DefaultOptions())
	want := `1\. not \*a list\* \[\[x\]\] \$5`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	got = serialize(t, rt.Paragraph(rt.Text("# no heading\n- no item")), DefaultOptions())
	if got != "\\# no heading\n\\- no item" {
		t.Errorf("got %q", got)
	}
	got = serialize(t, rt.Paragraph(rt.Text("snake_case stays")), DefaultOptions())
	if got != "snake_case stays" {
		t.Errorf("got %q", got)
	}
}

func TestSerialize_AdjacentSyntaxStaysApart(t *testing.T) {
	cases := []struct {
		name string
		tree *rt.Node
		want string
	}{
		{"bang before wiki link", rt.Paragraph(rt.Text("Wow!"), rt.WikiLink("Note", false)), `Wow\![[Note]]`},
		{"bang before link", rt.Paragraph(rt.Text("Wow!"), rt.Link("http://x", rt.Text("site"))), `Wow\![site](http://x)`},
		{"literal backslash before bang", rt.Paragraph(rt.Text(`a\!`), rt.Link("http://x", rt.Text("b"))), `a\\\![b](http://x)`},
		{"embed keeps bang", rt.Paragraph(rt.Text("Wow"), rt.WikiLink("img.png", true)), `Wow![[img.png]]`},
		{"canvas before parenthesis", rt.Paragraph(rt.CanvasLink("My Canvas"), rt.Text("(draft)")), `![My Canvas]\(draft)`},
		{"canvas name with bracket", rt.Paragraph(rt.CanvasLink("a]b")), `!\[a\]b\]`},
		{"canvas name with prefix", rt.Paragraph(rt.CanvasLink("canvas:x")), `!\[canvas:x\]`},
		{"math before digit", rt.Paragraph(rt.MathInline("a"), rt.Text("5 dollars")), `$$a$$5 dollars`},
		{"math before letter", rt.Paragraph(rt.MathInline("a"), rt.Text(" b")), `$a$ b`},
		{"emphasis in strong", rt.Paragraph(rt.Strong(rt.Emphasis(rt.Text("x")))), `**_x_**`},
		{"strong in emphasis", rt.Paragraph(rt.Emphasis(rt.Strong(rt.Text("x")))), `_**x**_`},
		{"emphasis then strong", rt.Paragraph(rt.Emphasis(rt.Text("a")), rt.Strong(rt.Text("b"))), `_a_**b**`},
		{"heading trailing hash", rt.Heading(2, rt.Text("Issue #")), `## Issue \#`},
		{"heading inner hash", rt.Heading(2, rt.Text("C#")), `## C#`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := serialize(t, tc.tree, DefaultOptions()); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSerialize_Links(t *testing.T) {
	got := serialize(t, rt.Paragraph(
		rt.Link("https://example.com", rt.Text("https://example.com")),
		rt.Text(" "),
		rt.Link("a b.md", rt.Text("doc")),
		rt.Text(" "),
		rt.Image("img.png", "alt"),
	), DefaultOptions())
	want := "<https://example.com> [doc](<a b.md>) ![alt](img.png)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_Metadata(t *testing.T) {
	tree := rt.Document(rt.Heading(1, rt.Text("H")))
	tree.Meta = map[string]any{"title": "T"}

	if got := serialize(t, tree, DefaultOptions()); got != "---\ntitle: T\n---\n\n# H" {
		t.Errorf("with metadata: got %q", got)
	}
	if got := serialize(t, tree, Options{PreserveWikiLinks: true}); got != "# H" {
		t.Errorf("without metadata: got %q", got)
	}
}

func TestSerialize_EveryKindHandled(t *testing.T) {
	for _, k := range rt.Kinds() {
		n := &rt.Node{Kind: k, Text: "t", Level: 1, Latex: "x", Name: "n", Target: "t",
			FragmentID: "ab", Width: 1, Height: 1, Href: "h", Src: "s", Alt: "a",
			Children: []*rt.Node{rt.Text("c")}}
		if _, err := Serialize(rt.Document(n), DefaultOptions()); err != nil {
			t.Errorf("kind %s: %v", k, err)
		}
	}
}
