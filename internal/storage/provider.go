// Package storage reads and writes workspace files. The conversion engine
// never touches files itself; everything that needs note text goes through
// a Provider.
package storage

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/starford/mdbridge/internal/models"
)

// Provider is the interface for vault file operations. Paths are relative to
// the vault root and use forward slashes.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path. A missing file yields
	// an error matching os.ErrNotExist.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
