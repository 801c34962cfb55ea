// Package storage provides a rooted file-system store for project documents
// and exported diagrams.
package storage

import "time"

// Entry describes one stored project document or export.
type Entry struct {
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Provider reads and writes files under a single root. Paths are slash
// separated and relative to that root; paths leaving it are rejected.
type Provider interface {
	// List returns the JSON and YAML files below dir, sorted by path.
	List(dir string) ([]Entry, error)
	Read(path string) ([]byte, error)
	// Exists reports whether a regular file is stored at path.
	Exists(path string) (bool, error)
	// Write replaces the file at path atomically, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path. A missing file yields os.ErrNotExist.
	Delete(path string) error
	Root() string
}
