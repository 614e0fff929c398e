package index

import (
	"github.com/starford/mdbridge/internal/markdown"
	"github.com/starford/mdbridge/internal/models"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string, links []models.Link) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*NoteRow, error)
	ListNotes(limit, offset int, tag string) ([]NoteRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Links(source string) ([]models.Link, error)
	Backlinks(targets ...string) ([]models.Link, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)

// Analyzer extracts the indexable facts of a note. *engine.Engine
// satisfies it.
type Analyzer interface {
	Analyze(data []byte) *markdown.Note
}

// Watcher callback kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)
