package internal

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"DepScanner/internal/scanner"
)

// IsArchive by extension. O(1) map lookup
var archiveExt = map[string]struct{}{
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {},
	".rar": {}, ".br": {}, ".lz4": {}, ".lz": {}, ".mz": {},
	".sz": {}, ".s2": {}, ".zz": {}, ".zst": {}, ".7z": {},
}

func IsArchive(path string) bool {
	_, ok := archiveExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// OSFileSystem is the scanner.FileSystem backed by the os package.
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFileSystem) Join(elem ...string) string                 { return filepath.Join(elem...) }

func (OSFileSystem) OpenRead(name string) (scanner.File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (OSFileSystem) OpenReadWrite(name string) (scanner.ReadWriteFile, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (o OSFileSystem) EnumerateFiles(dir, pattern string) ([]string, error) {
	return enumerateFiles(o, dir, pattern)
}

func enumerateFiles(fsys scanner.FileSystem, dir, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := doublestar.Match(pattern, e.Name()); ok {
			out = append(out, fsys.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// FileToScan is one unit of work: a file and the scanners that want it.
type FileToScan struct {
	Path     string
	Interest InterestSet
}

type dirFrame struct {
	path  string
	depth int
}

// walker enumerates a tree through a scanner.FileSystem and drops every file
// no scanner is interested in before any I/O happens on it.
type walker struct {
	fsys     scanner.FileSystem
	opts     *ScanOptions
	scanners []scanner.Scanner
	interest interestFunc
	stats    *AppStats
	log      *logrus.Entry
}

// Walk visits root depth-first. A file-system error on any entry aborts the
// walk; so does any error returned by visit.
func (w *walker) Walk(ctx context.Context, root string, visit func(FileToScan) error) error {
	stack := []dirFrame{{path: root}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := w.fsys.ReadDir(d.path)
		if err != nil {
			return &ScanError{Op: OpWalk, Path: d.path, Err: err}
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := scanner.Candidate{Root: root, Dir: d.path, Name: e.Name()}
			if e.IsDir() {
				if w.opts.recurse(c, d.depth+1) {
					stack = append(stack, dirFrame{path: w.fsys.Join(d.path, e.Name()), depth: d.depth + 1})
				} else {
					w.log.Debugf("Skip dir %s", w.fsys.Join(d.path, e.Name()))
				}
				continue
			}
			if !e.Type().IsRegular() {
				continue
			}
			w.stats.FilesFound.Add(1)

			set, idx, err := w.interest(c)
			if err != nil {
				return &ScanError{Op: OpMatch, Scanner: w.scanners[idx].Name(), Path: w.fsys.Join(d.path, e.Name()), Err: err}
			}
			if set.IsEmpty() {
				continue
			}
			w.stats.FilesMatched.Add(1)
			if err := visit(FileToScan{Path: w.fsys.Join(d.path, e.Name()), Interest: set}); err != nil {
				return err
			}
		}
	}
	return nil
}
