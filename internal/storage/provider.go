// Package storage defines the directory capability the on-disk mirror is
// written through.
package storage

// DataFile is the document file name inside a configured directory.
const DataFile = "tablero-data.json"

// Permission is the access state of a Directory.
type Permission string

const (
	PermissionGranted Permission = "granted"
	// PermissionPrompt means access must be (re-)granted by a user action.
	PermissionPrompt Permission = "prompt"
	PermissionDenied Permission = "denied"
)

// Directory is a user-granted handle to one directory. Callers query the
// permission before background IO and only request it from a user action.
type Directory interface {
	// Name returns a display name for the directory.
	Name() string
	// ReadFile returns the bytes of name. A missing file yields an error
	// matching fs.ErrNotExist.
	ReadFile(name string) ([]byte, error)
	// WriteFile replaces name with data in full.
	WriteFile(name string, data []byte) error
	// QueryPermission reports the current state without prompting.
	QueryPermission() (Permission, error)
	// RequestPermission asks for access; only call it from a user action.
	RequestPermission() (Permission, error)
}
