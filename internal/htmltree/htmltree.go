// Package htmltree converts editor render output (HTML) into a rich content
// tree. Custom note elements are recognised either as their own tags
// (<wiki-link>, <canvas-link>, <embedded-canvas>, <math-inline>, <math-block>)
// or as span/div elements carrying the equivalent data-type attribute.
// Elements it does not know contribute their children.
package htmltree

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	rt "github.com/starford/mdbridge/internal/richtext"
)

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// Parse converts an HTML fragment into a document tree. It never fails;
// markup the tokenizer cannot make sense of yields an empty document.
func Parse(src string) *rt.Node {
	nodes, err := html.ParseFragment(strings.NewReader(src), bodyContext)
	if err != nil {
		return rt.Document()
	}
	doc := rt.Document()
	doc.Children = blocks(nodes)
	return doc
}

// blocks converts sibling nodes in a block context. Runs of inline content
// are wrapped in paragraphs; whitespace between blocks is dropped.
func blocks(nodes []*html.Node) []*rt.Node {
	var out, pending []*rt.Node
	flush := func() {
		if p := paragraph(pending); p != nil {
			out = append(out, p)
		}
		pending = nil
	}
	for _, n := range nodes {
		for _, c := range convert(n) {
			if c.Kind.IsBlock() {
				flush()
				out = append(out, c)
				continue
			}
			pending = append(pending, c)
		}
	}
	flush()
	return out
}

// inlines converts sibling nodes in an inline context. Block results are
// reduced to their inline content.
func inlines(nodes []*html.Node) []*rt.Node {
	var out []*rt.Node
	for _, n := range nodes {
		for _, c := range convert(n) {
			out = append(out, flattenBlock(c)...)
		}
	}
	return mergeText(out)
}

func flattenBlock(n *rt.Node) []*rt.Node {
	switch {
	case !n.Kind.IsBlock():
		return []*rt.Node{n}
	case n.Kind == rt.KindCodeBlock:
		return []*rt.Node{rt.InlineCode(n.Text)}
	case n.Kind == rt.KindMathBlock:
		return []*rt.Node{rt.MathInline(n.Latex)}
	case n.Kind == rt.KindEmbeddedCanvas, n.Kind == rt.KindHorizontalRule:
		return nil
	}
	var out []*rt.Node
	for i, c := range n.Children {
		if i > 0 {
			out = append(out, rt.Text(" "))
		}
		out = append(out, flattenBlock(c)...)
	}
	return out
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func convert(n *html.Node) []*rt.Node {
	switch n.Type {
	case html.TextNode:
		if s := collapseSpace(n.Data); s != "" {
			return []*rt.Node{rt.Text(s)}
		}
		return nil
	case html.ElementNode:
		return element(n)
	case html.DocumentNode:
		return blocks(children(n))
	}
	return nil
}

func element(n *html.Node) []*rt.Node {
	if dt := dataType(n); dt != "" {
		if out, ok := custom(n, dt); ok {
			return out
		}
	}
	kids := children(n)
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return one(rt.Heading(int(n.Data[1]-'0'), trimEdges(inlines(kids))...))
	case "p":
		return blocks(kids)
	case "strong", "b":
		return wrap(rt.KindStrong, kids)
	case "em", "i":
		return wrap(rt.KindEmphasis, kids)
	case "s", "del", "strike":
		return wrap(rt.KindStrikethrough, kids)
	case "mark":
		return wrap(rt.KindHighlight, kids)
	case "sup":
		return wrap(rt.KindSuperscript, kids)
	case "sub":
		return wrap(rt.KindSubscript, kids)
	case "code":
		return one(rt.InlineCode(textContent(n)))
	case "pre":
		return one(codeBlock(n))
	case "a":
		href := attr(n, "href")
		if href == "" {
			return inlines(kids)
		}
		return one(rt.Link(href, inlines(kids)...))
	case "img":
		return one(rt.Image(attr(n, "src"), attr(n, "alt")))
	case "ul", "ol":
		return one(list(n))
	case "table":
		return one(table(n))
	case "blockquote":
		return one(rt.Blockquote(blocks(kids)...))
	case "hr":
		return one(rt.HorizontalRule())
	case "br":
		return one(rt.LineBreak())
	case "script", "style", "template", "head", "input":
		return nil
	}
	if out, ok := custom(n, normalizeType(n.Data)); ok {
		return out
	}
	var out []*rt.Node
	for _, c := range kids {
		out = append(out, convert(c)...)
	}
	return out
}

// custom handles the note-specific elements. It reports false when typ is
// not one of them.
func custom(n *html.Node, typ string) ([]*rt.Node, bool) {
	switch typ {
	case "wikilink":
		return wikiLink(n), true
	case "canvaslink":
		return canvasLink(n), true
	case "embeddedcanvas":
		return embeddedCanvas(n), true
	case "mathinline", "inlinemath":
		return one(rt.MathInline(latex(n))), true
	case "mathblock", "blockmath":
		return one(rt.MathBlock(latex(n))), true
	}
	return nil, false
}

func wikiLink(n *html.Node) []*rt.Node {
	target := strings.TrimSpace(attr(n, "target"))
	if target == "" {
		target = strings.TrimSpace(textContent(n))
	}
	if target == "" {
		return inlines(children(n))
	}
	if display := attr(n, "display"); display != "" && !strings.Contains(target, "|") && display != target {
		target += "|" + display
	}
	return one(rt.WikiLink(target, flag(n, "embed")))
}

func canvasLink(n *html.Node) []*rt.Node {
	name := strings.TrimSpace(attr(n, "name"))
	if name == "" {
		name = strings.TrimSpace(textContent(n))
	}
	if name == "" {
		return inlines(children(n))
	}
	link := rt.CanvasLink(name)
	link.Broken = flag(n, "broken")
	return one(link)
}

// embeddedCanvas converts an embedded canvas element. The HTML parser nests
// whatever follows an unclosed custom element inside it, so any children are
// emitted as following siblings.
func embeddedCanvas(n *html.Node) []*rt.Node {
	var rest []*rt.Node
	for _, c := range children(n) {
		rest = append(rest, convert(c)...)
	}
	id := strings.TrimSpace(attr(n, "fragment-id"))
	w, werr := strconv.Atoi(attr(n, "width"))
	h, herr := strconv.Atoi(attr(n, "height"))
	if !rt.ValidFragmentID(id) || werr != nil || herr != nil || w <= 0 || h <= 0 {
		return rest
	}
	return append([]*rt.Node{rt.EmbeddedCanvas(id, w, h)}, rest...)
}

func latex(n *html.Node) string {
	if v := attr(n, "latex"); v != "" {
		return v
	}
	return strings.TrimSpace(textContent(n))
}

func codeBlock(pre *html.Node) *rt.Node {
	var lang string
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			lang = language(attr(c, "class"))
			break
		}
	}
	if lang == "" {
		lang = language(attr(pre, "class"))
	}
	code := strings.TrimSuffix(textContent(pre), "\n")
	return rt.CodeBlock(lang, code)
}

func language(class string) string {
	for _, f := range strings.Fields(class) {
		if l, ok := strings.CutPrefix(f, "language-"); ok {
			return l
		}
		if l, ok := strings.CutPrefix(f, "lang-"); ok {
			return l
		}
	}
	return ""
}

func list(n *html.Node) *rt.Node {
	ordered := n.Data == "ol"
	start := 0
	if ordered {
		start = 1
		if v, err := strconv.Atoi(attr(n, "start")); err == nil && v >= 0 {
			start = v
		}
	}
	taskList := normalizeType(attr(n, "data-type")) == "tasklist"
	l := rt.List(ordered, start)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		l.Append(listItem(c, taskList))
	}
	return l
}

func listItem(li *html.Node, taskList bool) *rt.Node {
	kids := children(li)
	state, isTask := taskState(li, taskList)
	if box := checkbox(kids); box != nil {
		isTask = true
		if _, ok := box.attrs["checked"]; ok {
			state = rt.TaskCompleted
		}
	}
	content := blocks(kids)
	if isTask {
		return rt.TaskItem(state, content...)
	}
	return rt.ListItem(content...)
}

// taskState reads the task state of a list item from data-state (a state
// name or a checkbox symbol) or data-checked.
func taskState(li *html.Node, taskList bool) (rt.TaskState, bool) {
	isTask := taskList || normalizeType(attr(li, "data-type")) == "taskitem"
	if s, ok := lookup(li, "data-state"); ok {
		if len(s) == 1 {
			return rt.StateForSymbol(s[0]), true
		}
		return rt.ParseTaskState(s), true
	}
	if v, ok := lookup(li, "data-checked"); ok {
		if v == "true" {
			return rt.TaskCompleted, true
		}
		return rt.TaskTodo, true
	}
	return rt.TaskTodo, isTask
}

type inputBox struct {
	attrs map[string]string
}

// checkbox returns the leading checkbox input of a list item, if any.
func checkbox(kids []*html.Node) *inputBox {
	for _, k := range kids {
		if k.Type == html.TextNode && strings.TrimSpace(k.Data) == "" {
			continue
		}
		if k.Type != html.ElementNode || k.Data != "input" || attr(k, "type") != "checkbox" {
			return nil
		}
		box := &inputBox{attrs: make(map[string]string, len(k.Attr))}
		for _, a := range k.Attr {
			box.attrs[a.Key] = a.Val
		}
		return box
	}
	return nil
}

func table(n *html.Node) *rt.Node {
	t := rt.Table()
	var rows func(*html.Node)
	rows = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "thead", "tbody", "tfoot":
				rows(c)
			case "tr":
				t.Append(tableRow(c))
			}
		}
	}
	rows(n)
	return t
}

func tableRow(tr *html.Node) *rt.Node {
	row := rt.TableRow()
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "th" && c.Data != "td") {
			continue
		}
		row.Append(rt.TableCell(c.Data == "th", trimEdges(inlines(children(c)))...))
	}
	return row
}

func wrap(kind rt.Kind, kids []*html.Node) []*rt.Node {
	content := inlines(kids)
	if len(content) == 0 {
		return nil
	}
	return one(&rt.Node{Kind: kind, Children: content})
}

func one(n *rt.Node) []*rt.Node { return []*rt.Node{n} }

func paragraph(nodes []*rt.Node) *rt.Node {
	content := trimEdges(mergeText(nodes))
	if len(content) == 0 {
		return nil
	}
	return rt.Paragraph(content...)
}

func mergeText(nodes []*rt.Node) []*rt.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Kind == rt.KindText && len(out) > 0 && out[len(out)-1].Kind == rt.KindText {
			prev := out[len(out)-1]
			text := prev.Text + n.Text
			if strings.HasSuffix(prev.Text, " ") && strings.HasPrefix(n.Text, " ") {
				text = prev.Text + n.Text[1:]
			}
			out[len(out)-1] = rt.Text(text)
			continue
		}
		out = append(out, n)
	}
	return out
}

// trimEdges removes leading and trailing whitespace text and line breaks.
func trimEdges(nodes []*rt.Node) []*rt.Node {
	for len(nodes) > 0 {
		first := nodes[0]
		if first.Kind == rt.KindLineBreak {
			nodes = nodes[1:]
			continue
		}
		if first.Kind != rt.KindText {
			break
		}
		s := strings.TrimLeft(first.Text, " ")
		if s != "" {
			nodes = append([]*rt.Node{rt.Text(s)}, nodes[1:]...)
			break
		}
		nodes = nodes[1:]
	}
	for len(nodes) > 0 {
		last := nodes[len(nodes)-1]
		if last.Kind == rt.KindLineBreak {
			nodes = nodes[:len(nodes)-1]
			continue
		}
		if last.Kind != rt.KindText {
			break
		}
		s := strings.TrimRight(last.Text, " ")
		if s != "" {
			nodes = append(nodes[:len(nodes)-1:len(nodes)-1], rt.Text(s))
			break
		}
		nodes = nodes[:len(nodes)-1]
	}
	return nodes
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func dataType(n *html.Node) string {
	if n.Data != "span" && n.Data != "div" {
		return ""
	}
	return normalizeType(attr(n, "data-type"))
}

// normalizeType folds "wiki-link", "wikiLink" and "wiki_link" to "wikilink".
func normalizeType(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("-", "", "_", "").Replace(s)
}

func lookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// attr returns the value of key, falling back to its data- prefixed form.
func attr(n *html.Node, key string) string {
	if v, ok := lookup(n, key); ok {
		return v
	}
	v, _ := lookup(n, "data-"+key)
	return v
}

// flag reports whether a boolean attribute is set and not "false".
func flag(n *html.Node, key string) bool {
	v, ok := lookup(n, key)
	if !ok {
		v, ok = lookup(n, "data-"+key)
	}
	return ok && v != "false"
}
