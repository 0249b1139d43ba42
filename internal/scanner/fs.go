package scanner

import (
	"errors"
	"io"
	"io/fs"
)

// ErrReadOnly is returned by file systems that cannot open files for writing.
var ErrReadOnly = errors.New("file system is read-only")

// File is a readable, seekable file handle.
type File interface {
	io.ReadSeekCloser
}

// ReadWriteFile is a file handle opened for in-place updates.
type ReadWriteFile interface {
	io.ReadWriteSeeker
	io.Closer
	Truncate(size int64) error
}

// FileSystem abstracts every file-system call made by the pipeline so that
// walks and scans can run against fakes in tests.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	OpenRead(name string) (File, error)
	OpenReadWrite(name string) (ReadWriteFile, error)
	// EnumerateFiles lists regular files directly inside dir whose base name
	// matches pattern.
	EnumerateFiles(dir, pattern string) ([]string, error)
	Join(elem ...string) string
}
