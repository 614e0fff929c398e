package index

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/markdown"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func wiki(targets ...string) []models.Link {
	out := make([]models.Link, len(targets))
	for i, t := range targets {
		out[i] = models.Link{Target: t, Kind: models.LinkWiki}
	}
	return out
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note.", wiki("other")); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	n, err := db.GetNote("hello.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Hello World" || len(n.Tags) != 2 || n.Tags[1] != "test" {
		t.Errorf("note = %+v", n)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetNote("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLinksKeepKinds(t *testing.T) {
	db := testDB(t)
	links := []models.Link{
		{Target: "Plan", Kind: models.LinkWiki},
		{Target: "Plan", Kind: models.LinkEmbed},
		{Target: "Board", Kind: models.LinkCanvas},
		{Target: "ab-12", Kind: models.LinkEmbeddedCanvas},
	}
	if err := db.UpsertNote(NoteRow{Path: "a.md", UpdatedAt: time.Now()}, "body", links); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, err := db.Links("a.md")
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if len(got) != len(links) {
		t.Fatalf("links = %+v", got)
	}
	for i := range links {
		if got[i].Target != links[i].Target || got[i].Kind != links[i].Kind || got[i].Source != "a.md" {
			t.Errorf("link %d = %+v, want %+v", i, got[i], links[i])
		}
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Checksum: "1", UpdatedAt: time.Now()}, "body", wiki("b"))
	_ = db.UpsertNote(NoteRow{Path: "c.md", Checksum: "2", UpdatedAt: time.Now()}, "body", wiki("folder/B"))
	_ = db.UpsertNote(NoteRow{Path: "d.md", Checksum: "3", UpdatedAt: time.Now()}, "body", wiki("other"))

	bl, err := db.Backlinks("B", "folder/b")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0].Source != "a.md" || bl[1].Source != "c.md" {
		t.Fatalf("backlinks = %+v", bl)
	}
	if bl, _ := db.Backlinks(); bl != nil {
		t.Errorf("no targets should give no backlinks, got %+v", bl)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.md", Checksum: "x", UpdatedAt: time.Now()}, "body", wiki("target"))

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestDeleteNote_FailureRollsBack(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertNote(NoteRow{Path: "keep.md", Checksum: "k", UpdatedAt: time.Now()}, "body", nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	if _, err := db.conn.Exec(`DROP TABLE links`); err != nil {
		t.Fatalf("drop links: %v", err)
	}

	if err := db.DeleteNote("keep.md"); err == nil {
		t.Fatal("expected error when links table is missing")
	}
	if cs, _ := db.GetChecksum("keep.md"); cs != "k" {
		t.Errorf("note should survive a failed delete, checksum = %q", cs)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body", wiki("x"))
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "New", Checksum: "2", Tags: []string{"new"}, UpdatedAt: now}, "new body", wiki("y"))

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	if bl, _ := db.Backlinks("x"); len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	if bl, _ := db.Backlinks("y"); len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestListNotes(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "b.md", Title: "B", Tags: []string{"go"}, UpdatedAt: now}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Title: "A", Tags: []string{"go", "notes"}, UpdatedAt: now}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "c.md", Title: "C", Tags: []string{"gopher"}, UpdatedAt: now}, "", nil)

	rows, total, err := db.ListNotes(2, 0, "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || len(rows) != 2 || rows[0].Path != "a.md" || rows[1].Path != "b.md" {
		t.Errorf("page = %+v total %d", rows, total)
	}

	rows, total, err = db.ListNotes(10, 0, "go")
	if err != nil {
		t.Fatalf("ListNotes tag: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Errorf("tag filter = %+v total %d", rows, total)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Checksum: "1", UpdatedAt: time.Now()}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "b.md", Checksum: "2", UpdatedAt: time.Now()}, "", nil)
	cs, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(cs) != 2 || cs["a.md"] != "1" || cs["b.md"] != "2" {
		t.Errorf("checksums = %v", cs)
	}
	paths, _ := db.AllPaths()
	if _, ok := paths["b.md"]; !ok || len(paths) != 2 {
		t.Errorf("paths = %v", paths)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "s.md", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestIndexFileAndSync(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	an := markdown.NewParser()

	_ = store.Write("a.md", []byte("---\ntags: [x]\n---\n# Alpha\nSee [[Beta]] and ![Board]"))
	_ = store.Write("sub/beta.md", []byte("# Beta\n\n- [ ] todo"))
	_ = db.UpsertNote(NoteRow{Path: "gone.md", Checksum: "old", UpdatedAt: time.Now()}, "", nil)

	if err := Sync(db, store, an, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	n, err := db.GetNote("a.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Alpha" || len(n.Tags) != 1 || n.Tags[0] != "x" {
		t.Errorf("note = %+v", n)
	}
	links, _ := db.Links("a.md")
	if len(links) != 2 || links[0].Kind != models.LinkWiki || links[1].Kind != models.LinkCanvas {
		t.Errorf("links = %+v", links)
	}
	if _, err := db.GetNote("sub/beta.md"); err != nil {
		t.Errorf("nested note not indexed: %v", err)
	}
	if cs, _ := db.GetChecksum("gone.md"); cs != "" {
		t.Error("stale note not removed")
	}
}
