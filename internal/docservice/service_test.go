package docservice

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/engine"
	"github.com/starford/mdbridge/internal/export"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/richtext"
	"github.com/starford/mdbridge/internal/serializer"
	"github.com/starford/mdbridge/internal/storage"
	"github.com/starford/mdbridge/internal/testutil"
)

type recordingPublisher struct {
	ids   []string
	files []int
}

func (p *recordingPublisher) PublishExport(id string, files int) {
	p.ids = append(p.ids, id)
	p.files = append(p.files, files)
}

func newTestService(t *testing.T, files map[string]string) (*Service, storage.Provider, *recordingPublisher) {
	t.Helper()
	_, store := testutil.TestVault(t)
	testutil.WriteFiles(t, store, files)
	db := testutil.TestDB(t)
	eng := engine.New(engine.WithCanvasResolver(CanvasResolver(store)))
	pub := &recordingPublisher{}
	svc := NewService(store, db, eng, export.New(eng), WithPublisher(pub))
	for p, content := range files {
		if !strings.HasSuffix(p, storage.NoteExt) {
			continue
		}
		if err := svc.IndexFile(p, []byte(content)); err != nil {
			t.Fatalf("IndexFile %s: %v", p, err)
		}
	}
	return svc, store, pub
}

func TestGetTree(t *testing.T) {
	svc, _, _ := newTestService(t, map[string]string{
		"projects/plan.md": "---\ntags: [work]\n---\n# Plan\n\n- [/] draft ![Board]",
		"daily.md":         "See [[plan]] and [[projects/plan|the plan]]",
		"Board.canvas":     "{}",
	})

	nt, err := svc.GetTree(context.Background(), "projects/plan.md")
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if nt.Title != "Plan" || len(nt.Tags) != 1 || nt.Tags[0] != "work" {
		t.Errorf("note = %+v", nt)
	}
	if nt.Tree.Kind != richtext.KindDocument || nt.Frontmatter["tags"] == nil {
		t.Errorf("tree = %s", richtext.Dump(nt.Tree))
	}
	if len(nt.Links) != 1 || nt.Links[0].Kind != models.LinkCanvas {
		t.Errorf("links = %+v", nt.Links)
	}
	if len(nt.Backlinks) != 2 {
		t.Errorf("backlinks = %+v", nt.Backlinks)
	}

	var canvas *richtext.Node
	richtext.Walk(nt.Tree, func(n *richtext.Node) bool {
		if n.Kind == richtext.KindCanvasLink {
			canvas = n
		}
		return true
	})
	if canvas == nil || canvas.Broken {
		t.Errorf("canvas link should resolve: %s", richtext.Dump(nt.Tree))
	}
}

func TestGetTree_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if _, err := svc.GetTree(context.Background(), "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNormalize(t *testing.T) {
	svc, _, _ := newTestService(t, map[string]string{
		"n.md": "Title\n=====\n\n* one\n* [[Two|2]]",
	})
	got, err := svc.Normalize(context.Background(), "n.md", serializer.DefaultOptions())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "# Title\n\n- one\n- [[Two|2]]" {
		t.Errorf("got %q", got)
	}
	got, _ = svc.Normalize(context.Background(), "n.md", serializer.Options{})
	if got != "# Title\n\n- one\n- [2](Two)" {
		t.Errorf("without wiki links: got %q", got)
	}
}

func TestTasks(t *testing.T) {
	svc, _, _ := newTestService(t, map[string]string{
		"t.md": "- [ ] a\n- [x] b\n- [!] c",
	})
	tasks, err := svc.Tasks(context.Background(), "t.md")
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("tasks = %+v", tasks)
	}
	if tasks[0].State != "todo" || !tasks[1].Done || tasks[2].State != "urgent" || tasks[2].Text != "c" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestListNotesAndSearch(t *testing.T) {
	svc, _, _ := newTestService(t, map[string]string{
		"a.md": "# A\nzebra",
		"b.md": "# B\nnothing",
	})
	items, total, err := svc.ListNotes(context.Background(), 10, 0, "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 || items[0].Path != "a.md" || items[1].Title != "B" {
		t.Errorf("items = %+v", items)
	}
	hits, err := svc.Search(context.Background(), "zebra", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "a.md" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestBacklinkTargets(t *testing.T) {
	got := backlinkTargets("folder/Note.md")
	want := []string{"folder/Note.md", "folder/Note", "Note"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
	if got := backlinkTargets("Top"); len(got) != 1 || got[0] != "Top" {
		t.Errorf("got %v", got)
	}
}

func TestExportZIP(t *testing.T) {
	svc, _, pub := newTestService(t, map[string]string{
		"b.md": "second",
		"a.md": "- [?] ask",
	})
	var buf bytes.Buffer
	res, err := svc.Export(context.Background(), &buf, []string{"b.md", "a.md"}, serializer.DefaultOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "b.md" || zr.File[1].Name != "a.md" {
		t.Fatalf("archive order wrong: %d files", len(zr.File))
	}
	rc, _ := zr.File[1].Open()
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "- [?] ask\n" {
		t.Errorf("a.md = %q", body)
	}
	if len(pub.ids) != 1 || pub.ids[0] != res.ID || pub.files[0] != 2 {
		t.Errorf("publisher saw %v %v", pub.ids, pub.files)
	}
}

func TestExportMissingNote(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.Export(context.Background(), io.Discard, []string{"ghost.md"}, serializer.DefaultOptions())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExportToAllNotes(t *testing.T) {
	svc, _, _ := newTestService(t, map[string]string{
		"x.md":     "*x*",
		"sub/y.md": "_y_",
	})
	_, dst := testutil.TestVault(t)
	res, err := svc.ExportTo(context.Background(), dst, nil, serializer.DefaultOptions())
	if err != nil {
		t.Fatalf("ExportTo: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("files = %+v", res.Files)
	}
	data, err := dst.Read("sub/y.md")
	if err != nil {
		t.Fatalf("read exported: %v", err)
	}
	if string(data) != "*y*\n" {
		t.Errorf("sub/y.md = %q", data)
	}
}

func TestCanvasResolver(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteFiles(t, store, map[string]string{"maps/World.canvas": "{}"})
	r := CanvasResolver(store)
	if !r("maps/World") || !r("maps/World.canvas") {
		t.Error("existing canvas should resolve")
	}
	if r("World") || r("") || r("../etc") {
		t.Error("missing canvas should not resolve")
	}
}

func TestRewrite(t *testing.T) {
	svc, store, _ := newTestService(t, map[string]string{
		"r.md": "Heading\n-------\n+ item",
	})
	data, _ := store.Read("r.md")

	if _, err := svc.Rewrite(context.Background(), "r.md", serializer.DefaultOptions(), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	item, err := svc.Rewrite(context.Background(), "r.md", serializer.DefaultOptions(), storage.Checksum(data))
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	got, _ := store.Read("r.md")
	if string(got) != "## Heading\n\n- item\n" {
		t.Errorf("rewritten = %q", got)
	}
	if item.Title != "" || item.Checksum != storage.Checksum(got) {
		t.Errorf("item = %+v", item)
	}
}
