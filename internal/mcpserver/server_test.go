package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/engine"
	"github.com/starford/mdbridge/internal/export"
	"github.com/starford/mdbridge/internal/richtext"
	"github.com/starford/mdbridge/internal/storage"
	"github.com/starford/mdbridge/internal/testutil"
)

func testServer(t *testing.T, files map[string]string) (*Server, storage.Provider) {
	t.Helper()

	_, store := testutil.TestVault(t)
	testutil.WriteFiles(t, store, files)
	db := testutil.TestDB(t)
	eng := engine.New(engine.WithCanvasResolver(docservice.CanvasResolver(store)))
	svc := docservice.NewService(store, db, eng, export.New(eng))
	for p, content := range files {
		if err := svc.IndexFile(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return New(svc), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "parse_markdown":
		result, err = srv.parseMarkdown(ctx, req)
	case "serialize_tree":
		result, err = srv.serializeTree(ctx, req)
	case "html_to_markdown":
		result, err = srv.htmlToMarkdown(ctx, req)
	case "detect_markdown":
		result, err = srv.detectMarkdown(ctx, req)
	case "extract_tasks":
		result, err = srv.extractTasks(ctx, req)
	case "read_note_tree":
		result, err = srv.readNoteTree(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "get_syntax_contract":
		result, err = srv.getSyntaxContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestParseAndSerializeRoundTrip(t *testing.T) {
	srv, _ := testServer(t, nil)

	r := callTool(t, srv, "parse_markdown", map[string]any{"markdown": "## Plan\n\n- [!] ship [[Launch|it]]"})
	if r.IsError {
		t.Fatalf("parse error: %s", resultText(r))
	}
	var tree map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &tree); err != nil {
		t.Fatalf("tree json: %v", err)
	}
	if tree["kind"] != "document" {
		t.Errorf("kind = %v", tree["kind"])
	}

	r = callTool(t, srv, "serialize_tree", map[string]any{"tree": tree})
	if got := resultText(r); got != "## Plan\n\n- [!] ship [[Launch|it]]" {
		t.Errorf("serialize = %q", got)
	}

	r = callTool(t, srv, "serialize_tree", map[string]any{"tree": tree, "preserve_wiki_links": false})
	if got := resultText(r); got != "## Plan\n\n- [!] ship [it](Launch)" {
		t.Errorf("serialize without wiki = %q", got)
	}
}

func TestSerializeTree_AcceptsJSONString(t *testing.T) {
	srv, _ := testServer(t, nil)
	data, _ := json.Marshal(richtext.Document(richtext.MathBlock("a+b")))

	r := callTool(t, srv, "serialize_tree", map[string]any{"tree": string(data)})
	if got := resultText(r); got != "$$\na+b\n$$" {
		t.Errorf("serialize = %q", got)
	}
}

func TestInvalidArguments(t *testing.T) {
	srv, _ := testServer(t, nil)

	cases := []struct {
		tool string
		args map[string]any
	}{
		{"parse_markdown", map[string]any{"markdown": 12}},
		{"parse_markdown", map[string]any{}},
		{"detect_markdown", map[string]any{"text": []any{"a"}}},
		{"html_to_markdown", map[string]any{"html": true}},
		{"serialize_tree", map[string]any{}},
		{"serialize_tree", map[string]any{"tree": "not json"}},
	}
	for _, c := range cases {
		r := callTool(t, srv, c.tool, c.args)
		if !r.IsError {
			t.Errorf("%s(%v) should fail", c.tool, c.args)
		}
		if !strings.Contains(resultText(r), "invalid argument") {
			t.Errorf("%s(%v) = %q", c.tool, c.args, resultText(r))
		}
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	srv, _ := testServer(t, nil)

	r := callTool(t, srv, "html_to_markdown", map[string]any{
		"html": `<ul data-type="taskList"><li data-type="taskItem" data-checked="true"><p>done</p></li></ul>`,
	})
	if got := resultText(r); got != "- [x] done" {
		t.Errorf("html = %q", got)
	}
}

func TestDetectMarkdown(t *testing.T) {
	srv, _ := testServer(t, nil)

	if got := resultText(callTool(t, srv, "detect_markdown", map[string]any{"text": "| a | b |"})); got != "true" {
		t.Errorf("table = %q", got)
	}
	if got := resultText(callTool(t, srv, "detect_markdown", map[string]any{"text": "plain words only"})); got != "false" {
		t.Errorf("plain = %q", got)
	}
}

func TestExtractTasks(t *testing.T) {
	srv, _ := testServer(t, nil)

	r := callTool(t, srv, "extract_tasks", map[string]any{"markdown": "- [ ] a\n- [R] b"})
	var tasks []struct {
		Text  string `json:"text"`
		State string `json:"state"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &tasks); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(tasks) != 2 || tasks[1].State != "review" || tasks[1].Text != "b" {
		t.Errorf("tasks = %+v", tasks)
	}

	r = callTool(t, srv, "extract_tasks", map[string]any{"markdown": "no tasks"})
	if resultText(r) != "no tasks found" {
		t.Errorf("empty = %q", resultText(r))
	}
}

func TestReadNoteTree(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"n.md": "# N\n\n![canvas:ab-12:300x200]"})

	r := callTool(t, srv, "read_note_tree", map[string]any{"path": "n.md"})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, `"kind": "embedded-canvas"`) || !strings.Contains(text, `"title": "N"`) {
		t.Errorf("tree = %s", text)
	}

	r = callTool(t, srv, "read_note_tree", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestListNotes(t *testing.T) {
	srv, _ := testServer(t, map[string]string{
		"a.md": "#work item",
		"b.md": "b",
	})

	if got := resultText(callTool(t, srv, "list_notes", map[string]any{})); got != "a.md\nb.md" {
		t.Errorf("list = %q", got)
	}
	if got := resultText(callTool(t, srv, "list_notes", map[string]any{"tag": "work"})); got != "a.md" {
		t.Errorf("list by tag = %q", got)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, _ := testServer(t, map[string]string{
		"a.md": "links to [[b]] and ![[b]]",
		"b.md": "# B",
	})

	r := callTool(t, srv, "get_backlinks", map[string]any{"path": "b.md"})
	if text := resultText(r); text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
	r = callTool(t, srv, "get_backlinks", map[string]any{"path": "a.md"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks = %q", text)
	}
}

func TestSearchNotes(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"s.md": "# S\nneedle"})

	r := callTool(t, srv, "search_notes", map[string]any{"query": "needle"})
	if !strings.Contains(resultText(r), `"path": "s.md"`) {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestSyntaxContract(t *testing.T) {
	srv, _ := testServer(t, nil)

	text := resultText(callTool(t, srv, "get_syntax_contract", nil))
	for _, want := range []string{"[[Folder/Note]]", "![canvas:", "$$", "| `R` | review |"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}

	contents, err := srv.readSyntaxResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != SyntaxURI {
		t.Errorf("resource = %+v", contents[0])
	}
}
