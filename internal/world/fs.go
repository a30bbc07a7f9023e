package world

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the read-only view of the disk the walker needs.
// OSFileSystem is the production implementation; tests wrap it to inject
// failures without depending on file permissions.
type FileSystem interface {
	// ReadDir lists a directory in name order.
	ReadDir(name string) ([]fs.DirEntry, error)
	// Stat follows symlinks.
	Stat(name string) (fs.FileInfo, error)
	// Lstat does not follow symlinks.
	Lstat(name string) (fs.FileInfo, error)
	// EvalSymlinks resolves a path to its real location.
	EvalSymlinks(name string) (string, error)
}

// OSFileSystem reads the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFileSystem) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSFileSystem) Lstat(name string) (fs.FileInfo, error)     { return os.Lstat(name) }
func (OSFileSystem) EvalSymlinks(name string) (string, error)   { return filepath.EvalSymlinks(name) }
