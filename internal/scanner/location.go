package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrStaleLocation means the file changed since the dependency was reported.
var ErrStaleLocation = errors.New("location no longer matches file content")

// TextLocation addresses a byte range of a text file.
type TextLocation struct {
	Path    string
	Line    int   // 1-based
	Column  int   // 1-based, in bytes
	Offset  int64 // byte offset of the version text
	Length  int
	Text    string // version text as read
	CanEdit bool
}

func (l TextLocation) FilePath() string { return l.Path }
func (l TextLocation) Updatable() bool  { return l.CanEdit }

func (l TextLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// UpdateVersion replaces the addressed bytes with version.
func (l TextLocation) UpdateVersion(ctx context.Context, fsys FileSystem, version string) (err error) {
	if !l.CanEdit {
		return fmt.Errorf("%s: location is not updatable", l)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := fsys.OpenReadWrite(l.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	end := l.Offset + int64(l.Length)
	if l.Offset < 0 || end > int64(len(data)) || !bytes.Equal(data[l.Offset:end], []byte(l.Text)) {
		return fmt.Errorf("%s: %w", l, ErrStaleLocation)
	}

	out := make([]byte, 0, len(data)-l.Length+len(version))
	out = append(out, data[:l.Offset]...)
	out = append(out, version...)
	out = append(out, data[end:]...)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err = f.Write(out)
	return err
}
