// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument marks input of the wrong type, such as a non-string
	// where Markdown text is expected. Content that merely looks odd is never
	// an error.
	ErrInvalidArgument = errors.New("invalid argument")
)
