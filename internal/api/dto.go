package api

import (
	"encoding/json"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/index"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/richtext"
	"github.com/starford/mdbridge/internal/serializer"
)

// ConvertOptions mirrors serializer.Options; unset fields take the server defaults.
type ConvertOptions struct {
	PreserveWikiLinks *bool `json:"preserveWikiLinks,omitempty"`
	IncludeMetadata   *bool `json:"includeMetadata,omitempty"`
}

func (o *ConvertOptions) resolve(def serializer.Options) serializer.Options {
	if o == nil {
		return def
	}
	if o.PreserveWikiLinks != nil {
		def.PreserveWikiLinks = *o.PreserveWikiLinks
	}
	if o.IncludeMetadata != nil {
		def.IncludeMetadata = *o.IncludeMetadata
	}
	return def
}

// TextRequest carries Markdown or HTML text. Content is decoded loosely so
// that a non-string value can be reported as an invalid argument.
type TextRequest struct {
	Content any             `json:"content" example:"# Hello\n- [x] done" validate:"required"`
	Options *ConvertOptions `json:"options,omitempty"`
}

// Validate implements validation.Validatable.
func (r TextRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// SerializeRequest is the request body for POST /convert/serialize.
type SerializeRequest struct {
	Tree    json.RawMessage `json:"tree" validate:"required"`
	Options *ConvertOptions `json:"options,omitempty"`
}

// Validate implements validation.Validatable.
func (r SerializeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tree, validation.Required),
	)
}

// ExportRequest is the request body for POST /export.
type ExportRequest struct {
	Paths   []string        `json:"paths" example:"daily.md,projects/plan.md"`
	Options *ConvertOptions `json:"options,omitempty"`
}

// Validate implements validation.Validatable.
func (r ExportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Paths, validation.Each(
			validation.Required,
			validation.Length(1, 1024),
			validation.By(notePathRule),
		)),
	)
}

func notePathRule(value any) error {
	p, _ := value.(string)
	if !strings.HasSuffix(p, ".md") {
		return validation.NewError("validation_note_path", "must be a .md note path")
	}
	return nil
}

// TreeResponse wraps a rich content tree.
type TreeResponse struct {
	Tree *richtext.Node `json:"tree" validate:"required"`
}

// MarkdownResponse wraps serialized Markdown.
type MarkdownResponse struct {
	Markdown string `json:"markdown" example:"# Hello" validate:"required"`
}

// DetectResponse is the response for POST /detect.
type DetectResponse struct {
	Markdown bool   `json:"markdown" validate:"required"`
	Mode     string `json:"mode" example:"aggressive" validate:"required"`
}

// NoteTree is the tree view of a vault note (aliased from the domain layer).
type NoteTree = docservice.NoteTree

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = docservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// TasksResponse lists the task items of a note.
type TasksResponse struct {
	Path  string        `json:"path" example:"projects/plan.md" validate:"required"`
	Tasks []models.Task `json:"tasks" validate:"required"`
}

// BacklinksResponse lists links pointing at a note.
type BacklinksResponse struct {
	Path      string        `json:"path" example:"projects/plan.md" validate:"required"`
	Backlinks []models.Link `json:"backlinks" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
