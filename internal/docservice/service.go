// Package docservice coordinates the vault, the conversion engine and the
// link index for the API, MCP and CLI surfaces.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/engine"
	"github.com/starford/mdbridge/internal/export"
	"github.com/starford/mdbridge/internal/index"
	"github.com/starford/mdbridge/internal/markdown"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/richtext"
	"github.com/starford/mdbridge/internal/serializer"
	"github.com/starford/mdbridge/internal/storage"
)

// NoteTree is a note converted to a rich content tree, with its links.
type NoteTree struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Tree        *richtext.Node `json:"tree"`
	Links       []models.Link  `json:"links"`
	Backlinks   []models.Link  `json:"backlinks"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Checksum string   `json:"checksum"`
	Tags     []string `json:"tags"`
}

// Publisher is notified when an export finishes. *sse.Broker satisfies it.
type Publisher interface {
	PublishExport(id string, files int)
}

// Service coordinates storage, engine and index operations.
type Service struct {
	store     storage.Provider
	db        index.NoteIndex
	engine    *engine.Engine
	exporter  *export.Exporter
	publisher Publisher
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the receiver of export events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new document service.
func NewService(store storage.Provider, db index.NoteIndex, eng *engine.Engine, exp *export.Exporter, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		engine:   eng,
		exporter: exp,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Engine returns the conversion engine the service uses.
func (s *Service) Engine() *engine.Engine { return s.engine }

// GetTree reads a note and converts it to a tree enriched with backlinks.
func (s *Service) GetTree(_ context.Context, p string) (*NoteTree, error) {
	data, err := s.read(p)
	if err != nil {
		return nil, err
	}
	note := s.engine.Analyze(data)
	bl, err := s.db.Backlinks(backlinkTargets(p)...)
	if err != nil {
		return nil, err
	}
	return &NoteTree{
		Path:        p,
		Title:       note.Title,
		Checksum:    storage.Checksum(data),
		Tags:        nonNilSlice(note.Tags),
		Frontmatter: note.Frontmatter,
		Tree:        note.Tree,
		Links:       nonNilSlice(note.Links),
		Backlinks:   nonNilSlice(bl),
	}, nil
}

// Normalize reads a note and returns it re-serialized through the tree.
func (s *Service) Normalize(_ context.Context, p string, opts serializer.Options) (string, error) {
	data, err := s.read(p)
	if err != nil {
		return "", err
	}
	return s.engine.Normalize(string(data), opts)
}

// Rewrite normalizes a note in place. When ifMatch is set it must equal the
// checksum of the current content. The note is re-indexed after the write.
func (s *Service) Rewrite(_ context.Context, p string, opts serializer.Options, ifMatch string) (*NoteListItem, error) {
	data, err := s.read(p)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != storage.Checksum(data) {
		return nil, apperr.ErrConflict
	}
	md, err := s.engine.Normalize(string(data), opts)
	if err != nil {
		return nil, err
	}
	out := []byte(md)
	if md != "" {
		out = append(out, '\n')
	}
	if err := s.store.Write(p, out); err != nil {
		return nil, err
	}
	if err := s.IndexFile(p, out); err != nil {
		return nil, err
	}
	note := s.engine.Analyze(out)
	return &NoteListItem{
		Path:     p,
		Title:    note.Title,
		Checksum: storage.Checksum(out),
		Tags:     nonNilSlice(note.Tags),
	}, nil
}

// Tasks returns the task items of a note in document order.
func (s *Service) Tasks(_ context.Context, p string) ([]models.Task, error) {
	data, err := s.read(p)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(s.engine.Analyze(data).Tasks), nil
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:     r.Path,
			Title:    r.Title,
			Checksum: r.Checksum,
			Tags:     nonNilSlice(r.Tags),
		}
	}
	return items, total, nil
}

// Backlinks returns the links pointing at the note at p. A wiki link may name
// the note by full path, by path without extension or by base name.
func (s *Service) Backlinks(_ context.Context, p string) ([]models.Link, error) {
	bl, err := s.db.Backlinks(backlinkTargets(p)...)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(bl), nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// IndexFile analyzes data and upserts it into the index.
func (s *Service) IndexFile(p string, data []byte) error {
	return index.IndexFile(s.db, s.engine, p, data)
}

// Export writes the notes at paths (all notes when empty) to w as a ZIP
// archive. Archive order follows paths.
func (s *Service) Export(ctx context.Context, w io.Writer, paths []string, opts serializer.Options) (*export.Result, error) {
	docs, err := s.documents(paths)
	if err != nil {
		return nil, err
	}
	res, err := s.exporter.WriteZIP(ctx, w, docs, opts)
	if err != nil {
		return nil, err
	}
	s.finished(res)
	return res, nil
}

// ExportTo renders the notes at paths (all notes when empty) into dst.
func (s *Service) ExportTo(ctx context.Context, dst export.Store, paths []string, opts serializer.Options) (*export.Result, error) {
	docs, err := s.documents(paths)
	if err != nil {
		return nil, err
	}
	res, err := s.exporter.WriteTo(ctx, dst, docs, opts)
	if err != nil {
		return nil, err
	}
	s.finished(res)
	return res, nil
}

func (s *Service) finished(res *export.Result) {
	s.logger.Info("export completed",
		slog.String("id", res.ID),
		slog.Int("files", len(res.Files)))
	if s.publisher != nil {
		s.publisher.PublishExport(res.ID, len(res.Files))
	}
}

// documents loads and parses the notes to export, keeping the order of paths.
func (s *Service) documents(paths []string) ([]export.Document, error) {
	if len(paths) == 0 {
		metas, err := s.store.List("")
		if err != nil {
			return nil, err
		}
		for _, m := range metas {
			paths = append(paths, m.Path)
		}
	}
	docs := make([]export.Document, 0, len(paths))
	for _, p := range paths {
		data, err := s.read(p)
		if err != nil {
			return nil, fmt.Errorf("docservice: export %s: %w", p, err)
		}
		tree := s.engine.Analyze(data).Tree
		docs = append(docs, export.Document{Path: p, Tree: tree})
	}
	return docs, nil
}

func (s *Service) read(p string) ([]byte, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// CanvasResolver reports a canvas as present when "<name>.canvas" exists in
// the vault.
func CanvasResolver(store storage.Provider) markdown.CanvasResolver {
	return func(name string) bool {
		name = strings.TrimSpace(name)
		if name == "" {
			return false
		}
		if !strings.HasSuffix(name, storage.CanvasExt) {
			name += storage.CanvasExt
		}
		return store.Exists(name)
	}
}

// backlinkTargets lists the link targets that refer to the note at p.
func backlinkTargets(p string) []string {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	stem := strings.TrimSuffix(p, storage.NoteExt)
	out := []string{p}
	if stem != p {
		out = append(out, stem)
	}
	if base := path.Base(stem); base != stem {
		out = append(out, base)
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
