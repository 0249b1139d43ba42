package scanner

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// Candidate is a file-system entry being evaluated for scanner interest.
// It is passed by value and holds no heap data of its own, so evaluating a
// predicate against it does not allocate.
type Candidate struct {
	Root string // walk root
	Dir  string // directory containing the entry
	Name string // base name of the entry
}

// RelPath returns the slash-separated path of the candidate relative to Root.
func (c Candidate) RelPath() string {
	if c.Dir == c.Root {
		return c.Name
	}
	rel := c.Dir
	if c.Root != "." {
		rel = strings.TrimPrefix(c.Dir, c.Root)
	}
	rel = strings.TrimLeft(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return c.Name
	}
	return path.Join(rel, c.Name)
}

// Scanner recognizes one dependency-manifest ecosystem.
// Implementations must be safe for concurrent use against different files.
type Scanner interface {
	// Name identifies the scanner in errors and logs.
	Name() string
	// ShouldScan is cheap and performs no I/O.
	ShouldScan(c Candidate) (bool, error)
	// Scan reads the file through fc and reports dependencies with fc.Report.
	Scan(fc FileContext) error
}

// FileContext is handed to every scanner matched for a file.
type FileContext interface {
	Context() context.Context
	Path() string
	FileSystem() FileSystem
	// Content returns the file bytes. The stream is shared by all scanners of
	// the file and is positioned at zero when a scanner starts.
	Content() (io.ReadSeeker, error)
	Report(d Dependency)
}

// Dependency is an immutable value reported by a scanner.
type Dependency struct {
	Name     string
	Version  string
	Type     string
	Location Location
}

// Location points at the version string of a dependency inside its file.
type Location interface {
	FilePath() string
	Updatable() bool
	UpdateVersion(ctx context.Context, fsys FileSystem, version string) error
	String() string
}
