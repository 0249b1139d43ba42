package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryNotFound is returned before any work starts when the scan
	// root is missing or is not a directory.
	ErrDirectoryNotFound = errors.New("directory not found")

	errConsumerStopped = errors.New("consumer stopped") // pull loop broke early
)

// Op names the pipeline operation that failed.
type Op string

const (
	OpWalk  Op = "walk"
	OpMatch Op = "match"
	OpScan  Op = "scan"
	OpReset Op = "reset"
	OpClose Op = "close"
)

// ScanError identifies the failing operation of an aborted scan.
// The original error stays reachable through errors.Is and errors.As.
type ScanError struct {
	Op      Op
	Scanner string
	Path    string
	Err     error
}

func (e *ScanError) Error() string {
	if e.Scanner != "" {
		return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Path, e.Scanner, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }
