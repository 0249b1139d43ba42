package internal

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"DepScanner/internal/scanner"
)

const (
	DefaultThreads   = 16
	DefaultQueueSize = 2048
)

// DefaultExcludeDirs are never descended into unless ExcludeDirs is set.
var DefaultExcludeDirs = []string{".git", ".hg", ".svn"}

// ScanOptions configures one DependencyScanner.
type ScanOptions struct {
	// Scanners is the registry, in invocation order.
	Scanners []scanner.Scanner
	// Threads is the degree of parallelism. 1 selects the sequential mode.
	Threads int
	// Globs, when set, replace every scanner's ShouldScan for the whole run.
	Globs []string
	// Depth limits how deep files may sit below the root (0 - unlimited).
	Depth int
	// ExcludeDirs lists directory names that are never descended into.
	ExcludeDirs []string
	// ShouldRecurse is consulted for each directory after Depth and ExcludeDirs.
	ShouldRecurse func(dir scanner.Candidate) bool
	FileSystem    scanner.FileSystem
	QueueSize     int
	// StatsInterval enables periodic stats logging in parallel mode.
	StatsInterval time.Duration
	// Stats receives counters when set; otherwise each run keeps its own.
	Stats *AppStats

	exMap map[string]struct{}
}

// Validate checks invariants.
func (o *ScanOptions) Validate() error {
	if o.Threads < 0 {
		return fmt.Errorf("threads must be >= 1, got %d", o.Threads)
	}
	if o.Depth < 0 {
		return errors.New("depth must not be negative")
	}
	if o.QueueSize < 0 {
		return errors.New("queue size must not be negative")
	}
	for i, s := range o.Scanners {
		if s == nil {
			return fmt.Errorf("scanner %d is nil", i)
		}
	}
	for _, g := range o.Globs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid glob %q", g)
		}
	}
	return nil
}

// Prepare builds fast lookup structures and sensible defaults.
func (o *ScanOptions) Prepare() {
	if o.Threads <= 0 {
		o.Threads = DefaultThreads
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.FileSystem == nil {
		o.FileSystem = OSFileSystem{}
	}
	if o.ExcludeDirs == nil {
		o.ExcludeDirs = DefaultExcludeDirs
	}
	o.exMap = toSet(o.ExcludeDirs)
}

func toSet(s []string) map[string]struct{} {
	if len(s) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(s))
	for _, x := range s {
		m[x] = struct{}{}
	}
	return m
}

// recurse decides whether the walker descends into dir, whose own depth
// below the root is depth.
func (o *ScanOptions) recurse(dir scanner.Candidate, depth int) bool {
	if o.Depth > 0 && depth >= o.Depth {
		return false
	}
	if _, excluded := o.exMap[dir.Name]; excluded {
		return false
	}
	if o.ShouldRecurse != nil {
		return o.ShouldRecurse(dir)
	}
	return true
}
