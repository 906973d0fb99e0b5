// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/luhmann/internal/models"

// Provider is the interface for vault file operations. All paths are
// slash-separated and relative to the vault root.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// Extension returns the note file extension, e.g. ".md".
	Extension() string
	// List returns metadata for every note file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Find returns the note files under dir whose base name matches the
	// regular expression pattern. Without recursive only dir itself is scanned.
	Find(dir string, recursive bool, pattern string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Create writes content to path only if nothing exists there yet.
	Create(path string, content []byte) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

var _ Provider = (*FS)(nil)
