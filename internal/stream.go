package internal

import (
	"io"

	"DepScanner/internal/scanner"
)

// sharedStream opens a file once and rewinds it before each reuse.
// It is owned by a single worker and is not safe for concurrent use.
type sharedStream struct {
	open   func() (scanner.File, error)
	file   scanner.File
	err    error
	opened bool
	closed bool
}

func newSharedStream(open func() (scanner.File, error)) *sharedStream {
	return &sharedStream{open: open}
}

// get opens the file on first call and memoizes the handle or the error.
func (s *sharedStream) get() (io.ReadSeeker, error) {
	if !s.opened {
		s.opened = true
		s.file, s.err = s.open()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.file, nil
}

// rewind seeks back to the start. It is a no-op if nothing was opened.
func (s *sharedStream) rewind() error {
	if s.file == nil || s.closed {
		return nil
	}
	_, err := s.file.Seek(0, io.SeekStart)
	return err
}

// close releases the handle exactly once.
func (s *sharedStream) close() error {
	if s.file == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
