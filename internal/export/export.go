// Package export turns rich content trees into Markdown files: one at a
// time, as a ZIP archive, or written back into a vault. Documents are
// serialized in parallel; output order always follows input order.
package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mdbridge/internal/metrics"
	"github.com/starford/mdbridge/internal/richtext"
	"github.com/starford/mdbridge/internal/serializer"
	"github.com/starford/mdbridge/internal/storage"
)

// DefaultWorkers bounds parallel serialization when no limit is configured.
const DefaultWorkers = 4

// Serializer renders a tree as Markdown. *engine.Engine satisfies it.
type Serializer interface {
	Serialize(tree *richtext.Node, opts serializer.Options) (string, error)
}

// Store receives exported files.
type Store interface {
	Write(path string, content []byte) error
}

// Document is one tree to export under a vault-relative path.
type Document struct {
	Path string
	Tree *richtext.Node
}

// File is one rendered Markdown file.
type File struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Size     int    `json:"size"`
	Content  []byte `json:"-"`
}

// Result describes a finished export.
type Result struct {
	ID    string `json:"id"`
	Files []File `json:"files"`
}

// Exporter renders documents with bounded parallelism.
type Exporter struct {
	serializer Serializer
	workers    int
	logger     *slog.Logger
	recorder   metrics.Recorder
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithWorkers limits how many documents are serialized at once.
func WithWorkers(n int) Option {
	return func(x *Exporter) {
		if n > 0 {
			x.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Exporter) {
		if l != nil {
			x.logger = l
		}
	}
}

// WithRecorder reports export counts and durations to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(x *Exporter) {
		if r != nil {
			x.recorder = r
		}
	}
}

// New creates an Exporter over s.
func New(s Serializer, opts ...Option) *Exporter {
	x := &Exporter{
		serializer: s,
		workers:    DefaultWorkers,
		logger:     slog.Default(),
		recorder:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Render serializes docs and returns the files in input order. Paths are
// given a .md extension and made unique. The first serialization error
// cancels the remaining work.
func (x *Exporter) Render(ctx context.Context, docs []Document, opts serializer.Options) (*Result, error) {
	start := time.Now()
	res := &Result{ID: uuid.NewString(), Files: make([]File, len(docs))}
	paths := uniquePaths(docs)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for i, d := range docs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			md, err := x.serializer.Serialize(d.Tree, opts)
			if err != nil {
				return fmt.Errorf("export: %s: %w", d.Path, err)
			}
			content := fileContent(md)
			res.Files[i] = File{
				Path:     paths[i],
				Checksum: storage.Checksum(content),
				Size:     len(content),
				Content:  content,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		x.recorder.ObserveConversion(metrics.OpExport, time.Since(start), metrics.ResultError)
		x.logger.Warn("export failed", slog.String("export_id", res.ID), slog.String("error", err.Error()))
		return nil, err
	}

	x.recorder.ObserveConversion(metrics.OpExport, time.Since(start), metrics.ResultSuccess)
	x.recorder.AddExportedFiles(len(res.Files))
	x.logger.Info("export rendered",
		slog.String("export_id", res.ID),
		slog.Int("files", len(res.Files)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

// WriteSingle serializes one document to w.
func (x *Exporter) WriteSingle(w io.Writer, doc Document, opts serializer.Options) error {
	md, err := x.serializer.Serialize(doc.Tree, opts)
	if err != nil {
		return fmt.Errorf("export: %s: %w", doc.Path, err)
	}
	if _, err := w.Write(fileContent(md)); err != nil {
		return fmt.Errorf("export: write %s: %w", doc.Path, err)
	}
	x.recorder.AddExportedFiles(1)
	return nil
}

// WriteZIP renders docs into a ZIP archive on w. Archive entries follow the
// input order and the archive comment carries the export ID.
func (x *Exporter) WriteZIP(ctx context.Context, w io.Writer, docs []Document, opts serializer.Options) (*Result, error) {
	res, err := x.Render(ctx, docs, opts)
	if err != nil {
		return nil, err
	}
	zw := zip.NewWriter(w)
	if err := zw.SetComment("mdbridge export " + res.ID); err != nil {
		return nil, fmt.Errorf("export: zip comment: %w", err)
	}
	modified := time.Now()
	for _, f := range res.Files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Path,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("export: zip entry %s: %w", f.Path, err)
		}
		if _, err := fw.Write(f.Content); err != nil {
			return nil, fmt.Errorf("export: zip write %s: %w", f.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: close zip: %w", err)
	}
	return res, nil
}

// WriteTo renders docs and writes each file into store, in order.
func (x *Exporter) WriteTo(ctx context.Context, store Store, docs []Document, opts serializer.Options) (*Result, error) {
	res, err := x.Render(ctx, docs, opts)
	if err != nil {
		return nil, err
	}
	for _, f := range res.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := store.Write(f.Path, f.Content); err != nil {
			return nil, fmt.Errorf("export: write %s: %w", f.Path, err)
		}
	}
	return res, nil
}

// fileContent terminates non-empty Markdown with a newline.
func fileContent(md string) []byte {
	if md == "" {
		return nil
	}
	return []byte(md + "\n")
}

// uniquePaths normalizes document paths to clean, relative .md paths and
// suffixes later duplicates with -2, -3, ... Comparison ignores case.
func uniquePaths(docs []Document) []string {
	out := make([]string, len(docs))
	seen := make(map[string]bool, len(docs))
	for i, d := range docs {
		p := notePath(d.Path)
		stem := strings.TrimSuffix(p, storage.NoteExt)
		for n := 2; seen[strings.ToLower(p)]; n++ {
			p = stem + "-" + strconv.Itoa(n) + storage.NoteExt
		}
		seen[strings.ToLower(p)] = true
		out[i] = p
	}
	return out
}

// sourceExts are the document extensions replaced by .md on export. Any
// other dot in a name ("v1.2 notes") is part of the name.
var sourceExts = []string{storage.NoteExt, ".markdown", ".html", ".htm", ".txt"}

func notePath(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	for _, ext := range sourceExts {
		if len(p) > len(ext) && strings.EqualFold(p[len(p)-len(ext):], ext) {
			p = p[:len(p)-len(ext)]
			break
		}
	}
	if p == "" || strings.HasSuffix(p, "/") {
		p += "untitled"
	}
	return p + storage.NoteExt
}
