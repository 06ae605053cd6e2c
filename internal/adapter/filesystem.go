package adapter

import (
	"io"
	"os"
)

// FileSystem defines an interface for file system operations to enable mocking
//
//go:generate mockgen -source=filesystem.go -destination=../mocks/filesystem.go -package=mocks -mock_names=FileSystem=MockFileSystem
type FileSystem interface {
	// Create creates or truncates the named file
	Create(name string) (io.WriteCloser, error)

	// Open opens the named file for reading
	Open(name string) (io.ReadCloser, error)

	// MkdirAll creates a directory along with any necessary parents
	MkdirAll(path string) error
}

// RealFileSystem implements FileSystem using the standard os package
type RealFileSystem struct{}

// NewFileSystem creates a new real file system
func NewFileSystem() FileSystem {
	return &RealFileSystem{}
}

// Create creates or truncates the named file
func (fs *RealFileSystem) Create(name string) (io.WriteCloser, error) {
	return os.Create(name) //nolint:gosec,G304
}

// Open opens the named file for reading
func (fs *RealFileSystem) Open(name string) (io.ReadCloser, error) {
	return os.Open(name) //nolint:gosec,G304
}

// MkdirAll creates a directory along with any necessary parents
func (fs *RealFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}
