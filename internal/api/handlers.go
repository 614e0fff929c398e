package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/engine"
	"github.com/starford/mdbridge/internal/richtext"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
	eng *engine.Engine
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc, eng: svc.Engine()}
}

// notePath extracts the note path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ParseMarkdown handles POST /api/convert/parse.
//
//	@Summary		Convert Markdown to a rich content tree
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Markdown text"
//	@Success		200		{object}	TreeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert/parse [post]
func (h *Handler) ParseMarkdown(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !readJSON(w, r, &req) {
		return
	}
	md, err := engine.TextArg(req.Content)
	if err != nil {
		writeError(w, err, "parse")
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Tree: h.eng.Parse(md)})
}

// SerializeTree handles POST /api/convert/serialize.
//
//	@Summary		Convert a rich content tree to Markdown
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SerializeRequest	true	"Tree and options"
//	@Success		200		{object}	MarkdownResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert/serialize [post]
func (h *Handler) SerializeTree(w http.ResponseWriter, r *http.Request) {
	var req SerializeRequest
	if !readJSON(w, r, &req) {
		return
	}
	tree, err := richtext.Decode(req.Tree)
	if err != nil {
		writeError(w, err, "serialize")
		return
	}
	md, err := h.eng.Serialize(tree, req.Options.resolve(h.eng.Defaults()))
	if err != nil {
		writeError(w, err, "serialize")
		return
	}
	writeJSON(w, http.StatusOK, MarkdownResponse{Markdown: md})
}

// ConvertHTML handles POST /api/convert/html.
//
//	@Summary		Convert editor HTML to Markdown
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"HTML in content"
//	@Success		200		{object}	MarkdownResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert/html [post]
func (h *Handler) ConvertHTML(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !readJSON(w, r, &req) {
		return
	}
	html, err := engine.TextArg(req.Content)
	if err != nil {
		writeError(w, err, "convert html")
		return
	}
	md, err := h.eng.ConvertHTML(html, req.Options.resolve(h.eng.Defaults()))
	if err != nil {
		writeError(w, err, "convert html")
		return
	}
	writeJSON(w, http.StatusOK, MarkdownResponse{Markdown: md})
}

// NormalizeMarkdown handles POST /api/convert/normalize.
//
//	@Summary		Re-emit Markdown through the tree
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Markdown text"
//	@Success		200		{object}	MarkdownResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert/normalize [post]
func (h *Handler) NormalizeMarkdown(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !readJSON(w, r, &req) {
		return
	}
	md, err := engine.TextArg(req.Content)
	if err != nil {
		writeError(w, err, "normalize")
		return
	}
	out, err := h.eng.Normalize(md, req.Options.resolve(h.eng.Defaults()))
	if err != nil {
		writeError(w, err, "normalize")
		return
	}
	writeJSON(w, http.StatusOK, MarkdownResponse{Markdown: out})
}

// Detect handles POST /api/detect.
//
//	@Summary		Report whether text looks like Markdown
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Text"
//	@Success		200		{object}	DetectResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/detect [post]
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !readJSON(w, r, &req) {
		return
	}
	text, err := engine.TextArg(req.Content)
	if err != nil {
		writeError(w, err, "detect")
		return
	}
	writeJSON(w, http.StatusOK, DetectResponse{
		Markdown: h.eng.IsMarkdown(text),
		Mode:     string(h.eng.DetectorMode()),
	})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset, q.Get("tag"))
	if err != nil {
		writeError(w, err, "list notes")
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNoteTree handles GET /api/notes/*.
//
//	@Summary		Get a note as a rich content tree
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteTree
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNoteTree(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetTree(r.Context(), path)
	if err != nil {
		writeError(w, err, "get note", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RewriteNote handles POST /api/normalize/*.
//
//	@Summary		Normalize a vault note in place
//	@Tags			notes
//	@Produce		json
//	@Param			path		path	string	true	"Note path"
//	@Param			If-Match	header	string	false	"SHA-256 checksum for optimistic concurrency"
//	@Param			wikiLinks	query	bool	false	"Keep wiki-link syntax"
//	@Success		200		{object}	NoteListItem
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/normalize/{path} [post]
func (h *Handler) RewriteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	opts := h.eng.Defaults()
	if v := r.URL.Query().Get("wikiLinks"); v != "" {
		keep, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("wikiLinks must be a boolean"))
			return
		}
		opts.PreserveWikiLinks = keep
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	item, err := h.svc.Rewrite(r.Context(), path, opts, ifMatch)
	if err != nil {
		writeError(w, err, "rewrite note", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Tasks handles GET /api/tasks/*.
//
//	@Summary		List the task items of a note
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	TasksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{path} [get]
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	tasks, err := h.svc.Tasks(r.Context(), path)
	if err != nil {
		writeError(w, err, "tasks", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, TasksResponse{Path: path, Tasks: tasks})
}

// Backlinks handles GET /api/backlinks.
//
//	@Summary		List links pointing at a note
//	@Tags			notes
//	@Produce		json
//	@Param			path	query		string	true	"Note path"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	links, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		writeError(w, err, "backlinks", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Path: path, Backlinks: links})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Export handles POST /api/export.
//
//	@Summary		Export notes as a ZIP archive of Markdown files
//	@Tags			export
//	@Accept			json
//	@Produce		application/zip
//	@Param			body	body	ExportRequest	true	"Note paths (all notes when empty)"
//	@Success		200		"ZIP archive"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !readJSON(w, r, &req) {
		return
	}
	var buf bytes.Buffer
	res, err := h.svc.Export(r.Context(), &buf, req.Paths, req.Options.resolve(h.eng.Defaults()))
	if err != nil {
		writeError(w, err, "export")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="mdbridge-export-`+res.ID+`.zip"`)
	w.Header().Set("X-Export-Id", res.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
