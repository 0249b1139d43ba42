package internal

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// AppStats atomic counters for totals
type AppStats struct {
	start         atomic.Int64 // unix nanos of the latest Start
	FilesFound    atomic.Int64 // regular files seen by the walker
	FilesMatched  atomic.Int64 // files with at least one interested scanner
	FilesScanned  atomic.Int64
	StreamsOpened atomic.Int64
	Dependencies  atomic.Int64
}

// Start marks the beginning of a run. Runs sharing one AppStats add to the
// same counters; Elapsed is measured from the latest Start.
func (s *AppStats) Start() {
	s.start.Store(time.Now().UnixNano())
}

func (s *AppStats) Elapsed() time.Duration {
	return time.Since(time.Unix(0, s.start.Load()))
}

func (s *AppStats) String() string {
	return fmt.Sprintf("found=%s matched=%s scanned=%s opened=%s dependencies=%s",
		humanize.Comma(s.FilesFound.Load()),
		humanize.Comma(s.FilesMatched.Load()),
		humanize.Comma(s.FilesScanned.Load()),
		humanize.Comma(s.StreamsOpened.Load()),
		humanize.Comma(s.Dependencies.Load()),
	)
}
