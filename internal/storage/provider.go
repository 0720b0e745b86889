// Package storage defines the file-system abstraction collections are read
// from and written to.
package storage

import (
	"io/fs"

	"github.com/starford/ont/internal/models"
)

// Provider is the interface for collection file operations. All paths are
// slash-separated and relative to the provider root.
type Provider interface {
	// Root identifies the directory the provider is bound to.
	Root() string
	// ReadDir lists dir without following symlinks, sorted by name.
	ReadDir(dir string) ([]fs.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Mkdir creates dir and any missing parents. An existing directory is
	// not an error.
	Mkdir(dir string) error
	// Chmod changes the mode of the file at path.
	Chmod(path string, mode fs.FileMode) error
	// Delete removes the file at path.
	Delete(path string) error
	// TidyDelete removes the file at path, then every ancestor directory
	// that became empty, stopping below the root.
	TidyDelete(path string) error
	// List returns metadata for every file under dir whose name ends in ext.
	List(dir, ext string) ([]models.FileMeta, error)
}
