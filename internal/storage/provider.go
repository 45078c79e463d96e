// Package storage defines the notebook directory abstraction.
package storage

import "github.com/starford/tissue/internal/models"

// Provider is the interface for notebook file operations. Names are plain
// file names directly under the notebook root; nesting is not recognised.
type Provider interface {
	// Root returns the absolute notebook directory.
	Root() string
	// List returns metadata for every .md file directly under the root.
	List() ([]models.FileMeta, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically creates or replaces the named file.
	Write(name string, content []byte) error
	// Delete removes the named file.
	Delete(name string) error
}
