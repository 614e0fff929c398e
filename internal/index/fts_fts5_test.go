//go:build sqlite_fts5

package index

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/mdbridge/internal/markdown"
	"github.com/starford/mdbridge/internal/richtext"
)

func upsertBody(t *testing.T, db *DB, path, title, body string, tags ...string) {
	t.Helper()
	row := NoteRow{Path: path, Title: title, Checksum: path, Tags: tags, UpdatedAt: time.Now()}
	if err := db.UpsertNote(row, body, nil); err != nil {
		t.Fatalf("UpsertNote %s: %v", path, err)
	}
}

func TestFTS5_SnippetHighlightsMatch(t *testing.T) {
	db := testDB(t)
	upsertBody(t, db, "fts.md", "Converter", "The engine keeps wiki links intact on round trip.")

	results, err := db.Search("wiki", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "fts.md" {
		t.Fatalf("results = %+v", results)
	}
	if !strings.Contains(results[0].Snippet, "==wiki==") {
		t.Errorf("snippet = %q, want ==wiki== mark", results[0].Snippet)
	}
}

func TestFTS5_SnippetParsesAsHighlight(t *testing.T) {
	db := testDB(t)
	upsertBody(t, db, "canvas.md", "Boards", "Embedded canvases render inline.")

	results, err := db.Search("canvases", 10)
	if err != nil || len(results) != 1 {
		t.Fatalf("Search: %+v, %v", results, err)
	}

	var marked []string
	richtext.Walk(markdown.NewParser().Parse([]byte(results[0].Snippet)), func(n *richtext.Node) bool {
		if n.Kind == richtext.KindHighlight {
			marked = append(marked, richtext.PlainText(n))
		}
		return true
	})
	if len(marked) != 1 || marked[0] != "canvases" {
		t.Errorf("highlighted = %v in snippet %q", marked, results[0].Snippet)
	}
}

func TestFTS5_MatchesTitleAndTags(t *testing.T) {
	db := testDB(t)
	upsertBody(t, db, "a.md", "Quarterly plan", "nothing here", "roadmap")
	upsertBody(t, db, "b.md", "Other", "still nothing")

	if res, _ := db.Search("quarterly", 10); len(res) != 1 || res[0].Path != "a.md" {
		t.Errorf("title search = %+v", res)
	}
	if res, _ := db.Search("roadmap", 10); len(res) != 1 || res[0].Path != "a.md" {
		t.Errorf("tag search = %+v", res)
	}
}

func TestFTS5_DeleteAndReplace(t *testing.T) {
	db := testDB(t)
	upsertBody(t, db, "gone.md", "", "vanishing content")
	if err := db.DeleteNote("gone.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if res, _ := db.Search("vanishing", 10); len(res) != 0 {
		t.Errorf("deleted note still searchable: %+v", res)
	}

	upsertBody(t, db, "evo.md", "Old", "original text")
	upsertBody(t, db, "evo.md", "New", "replacement text")
	if res, _ := db.Search("original", 10); len(res) != 0 {
		t.Errorf("old content still searchable: %+v", res)
	}
	if res, _ := db.Search("replacement", 10); len(res) != 1 || res[0].Title != "New" {
		t.Errorf("replaced content = %+v", res)
	}
}
