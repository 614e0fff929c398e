package markdown

import (
	"regexp"
	"strings"

	"github.com/starford/mdbridge/internal/frontmatter"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/richtext"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Note is a parsed note with the facts the index and the API need.
type Note struct {
	Frontmatter map[string]any
	Body        string
	Tree        *richtext.Node
	Title       string
	Tags        []string
	Links       []models.Link
	Tasks       []models.Task
}

// Analyze parses data and extracts title, tags, links and tasks.
func (p *Parser) Analyze(data []byte) *Note {
	meta, body, ok := frontmatter.Split(data)
	tree := p.ParseBody([]byte(body))
	if ok && len(meta) > 0 {
		tree.Meta = meta
	}
	return &Note{
		Frontmatter: tree.Meta,
		Body:        body,
		Tree:        tree,
		Title:       deriveTitle(tree),
		Tags:        extractTags(tree),
		Links:       ExtractLinks(tree),
		Tasks:       ExtractTasks(tree),
	}
}

// ExtractLinks returns the distinct wiki, embed and canvas references in
// tree, in document order. Wiki targets are reduced to their path part.
func ExtractLinks(tree *richtext.Node) []models.Link {
	type key struct{ target, kind string }
	seen := make(map[key]struct{})
	var out []models.Link
	add := func(target, kind string) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		k := key{target, kind}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, models.Link{Target: target, Kind: kind})
	}

	richtext.Walk(tree, func(n *richtext.Node) bool {
		switch n.Kind {
		case richtext.KindWikiLink:
			kind := models.LinkWiki
			if n.Embed {
				kind = models.LinkEmbed
			}
			add(richtext.WikiPath(n.Target), kind)
		case richtext.KindCanvasLink:
			add(n.Name, models.LinkCanvas)
		case richtext.KindEmbeddedCanvas:
			add(n.FragmentID, models.LinkEmbeddedCanvas)
		}
		return true
	})
	return out
}

// ExtractTasks returns every task item in tree in document order.
func ExtractTasks(tree *richtext.Node) []models.Task {
	var out []models.Task
	richtext.Walk(tree, func(n *richtext.Node) bool {
		if n.Kind != richtext.KindTaskItem {
			return true
		}
		var text string
		if len(n.Children) > 0 {
			text = strings.TrimSpace(richtext.PlainText(n.Children[0]))
		}
		out = append(out, models.Task{
			Index:  len(out),
			Text:   text,
			State:  n.State.String(),
			Symbol: string(n.State.Symbol()),
			Done:   n.State == richtext.TaskCompleted,
		})
		return true
	})
	return out
}

// extractTags collects tags from the frontmatter "tags" field and #tags in
// text outside code.
func extractTags(tree *richtext.Node) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	switch v := tree.Meta["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	}

	richtext.Walk(tree, func(n *richtext.Node) bool {
		if n.Kind == richtext.KindText {
			for _, m := range tagRe.FindAllStringSubmatch(n.Text, -1) {
				add(m[1])
			}
		}
		return n.Kind != richtext.KindCodeBlock && n.Kind != richtext.KindInlineCode
	})
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// text of the first level-1 heading.
func deriveTitle(tree *richtext.Node) string {
	if s, ok := tree.Meta["title"].(string); ok && s != "" {
		return s
	}
	var title string
	richtext.Walk(tree, func(n *richtext.Node) bool {
		if title != "" {
			return false
		}
		if n.Kind == richtext.KindHeading && n.Level == 1 {
			title = strings.TrimSpace(richtext.PlainText(n))
			return false
		}
		return true
	})
	return title
}
