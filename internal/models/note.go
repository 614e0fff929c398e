// Package models defines the value types shared between the parser, the
// index and the outer surfaces.
package models

import "time"

// Link kinds recorded for a note.
const (
	LinkWiki           = "wiki"
	LinkEmbed          = "embed"
	LinkCanvas         = "canvas"
	LinkEmbeddedCanvas = "embedded-canvas"
)

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link represents a directed reference from a note to a note, canvas or
// canvas fragment.
type Link struct {
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// Task is a task item found in a note.
type Task struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	State  string `json:"state"`
	Symbol string `json:"symbol"`
	Done   bool   `json:"done"`
}
