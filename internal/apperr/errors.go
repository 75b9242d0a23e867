// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalid    = errors.New("invalid")
	ErrOutOfRange = errors.New("index out of range")

	// ErrNeedsRegrant means directory access was granted once but must be
	// granted again through a user action before the file can be written.
	ErrNeedsRegrant = errors.New("directory permission needs re-grant")
	// ErrPermissionDenied means the user refused directory access.
	ErrPermissionDenied = errors.New("directory permission denied")
	ErrNoDirectory      = errors.New("no directory configured")

	// ErrUnavailable means the fast storage tier could not be written.
	ErrUnavailable = errors.New("storage unavailable")
)
