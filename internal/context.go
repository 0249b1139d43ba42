package internal

import (
	"context"
	"io"

	"DepScanner/internal/scanner"
)

// fileContext is the per-file execution context shared by all scanners that
// matched one file. It lives on a single worker.
type fileContext struct {
	ctx    context.Context
	path   string
	fsys   scanner.FileSystem
	stream *sharedStream
	report func(scanner.Dependency)
}

func newFileContext(ctx context.Context, fsys scanner.FileSystem, path string, stats *AppStats, report func(scanner.Dependency)) *fileContext {
	return &fileContext{
		ctx:  ctx,
		path: path,
		fsys: fsys,
		stream: newSharedStream(func() (scanner.File, error) {
			stats.StreamsOpened.Add(1)
			return fsys.OpenRead(path)
		}),
		report: report,
	}
}

func (c *fileContext) Context() context.Context        { return c.ctx }
func (c *fileContext) Path() string                    { return c.path }
func (c *fileContext) FileSystem() scanner.FileSystem  { return c.fsys }
func (c *fileContext) Content() (io.ReadSeeker, error) { return c.stream.get() }
func (c *fileContext) Report(d scanner.Dependency)     { c.report(d) }
func (c *fileContext) rewind() error                   { return c.stream.rewind() }
func (c *fileContext) close() error                    { return c.stream.close() }
