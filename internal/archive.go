package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path"

	"github.com/mholt/archives"
	"github.com/sirupsen/logrus"

	"DepScanner/internal/scanner"
)

const (
	maxArchiveFiles     = 10000    // zip-bomb protection
	maxArchiveEntrySize = 64 << 20 // entries are buffered to keep them seekable
)

var errArchiveLimit = errors.New("archive file limit reached")

// ArchiveFileSystem exposes the contents of an archive as a read-only
// scanner.FileSystem. Paths are slash-separated and rooted at ".".
type ArchiveFileSystem struct {
	archive string
	fsys    iofs.FS
}

// NewArchiveFileSystem opens the archive at archivePath. Archives holding more
// than maxArchiveFiles files are refused before any scan starts.
func NewArchiveFileSystem(ctx context.Context, archivePath string) (*ArchiveFileSystem, error) {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archivePath, err)
	}

	count := 0
	err = iofs.WalkDir(fsys, ".", func(_ string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		if count++; count > maxArchiveFiles {
			return errArchiveLimit
		}
		return nil
	})
	if errors.Is(err, errArchiveLimit) {
		logrus.Warnf("Archive %s refused: too many files (> %d)", archivePath, maxArchiveFiles)
		return nil, fmt.Errorf("%s: %w", archivePath, errArchiveLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("list archive %s: %w", archivePath, err)
	}
	logrus.Debugf("Archive %s: %d files", archivePath, count)
	return &ArchiveFileSystem{archive: archivePath, fsys: fsys}, nil
}

// Close releases the archive if the backing file system holds it open.
func (a *ArchiveFileSystem) Close() error {
	if closer, ok := a.fsys.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (a *ArchiveFileSystem) Stat(name string) (iofs.FileInfo, error) {
	return iofs.Stat(a.fsys, name)
}

func (a *ArchiveFileSystem) ReadDir(name string) ([]iofs.DirEntry, error) {
	return iofs.ReadDir(a.fsys, name)
}

// OpenRead buffers the entry so the returned stream can be rewound.
func (a *ArchiveFileSystem) OpenRead(name string) (scanner.File, error) {
	f, err := a.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxArchiveEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxArchiveEntrySize {
		return nil, fmt.Errorf("%s: entry larger than %d bytes", name, maxArchiveEntrySize)
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

func (a *ArchiveFileSystem) OpenReadWrite(name string) (scanner.ReadWriteFile, error) {
	return nil, fmt.Errorf("%s in %s: %w", name, a.archive, scanner.ErrReadOnly)
}

func (a *ArchiveFileSystem) EnumerateFiles(dir, pattern string) ([]string, error) {
	return enumerateFiles(a, dir, pattern)
}

func (a *ArchiveFileSystem) Join(elem ...string) string { return path.Join(elem...) }

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }
