package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"DepScanner/internal/scanner"
)

// memFS is an in-memory scanner.FileSystem that records every call.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	openErr    map[string]error
	readDirErr map[string]error

	stats    int
	readDirs int
	opens    map[string]int
	closes   int
}

func newMemFS() *memFS {
	return &memFS{
		files:      make(map[string][]byte),
		dirs:       map[string]bool{"/": true},
		openErr:    make(map[string]error),
		readDirErr: make(map[string]error),
		opens:      make(map[string]int),
	}
}

// add creates the file and every missing parent directory.
func (m *memFS) add(name, content string) *memFS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = []byte(content)
	for d := path.Dir(name); ; d = path.Dir(d) {
		m.dirs[d] = true
		if d == "/" || d == "." {
			break
		}
	}
	return m
}

func (m *memFS) content(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.files[name])
}

func (m *memFS) totalOpens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.opens {
		n += c
	}
	return n
}

func (m *memFS) openCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[name]
}

func (m *memFS) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

func (m *memFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats++
	if m.dirs[name] {
		return memInfo{name: path.Base(name), dir: true}, nil
	}
	if data, ok := m.files[name]; ok {
		return memInfo{name: path.Base(name), size: int64(len(data))}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (m *memFS) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDirs++
	if err := m.readDirErr[name]; err != nil {
		return nil, err
	}
	if !m.dirs[name] {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	var out []fs.DirEntry
	for d := range m.dirs {
		if d != name && path.Dir(d) == name {
			out = append(out, fs.FileInfoToDirEntry(memInfo{name: path.Base(d), dir: true}))
		}
	}
	for f, data := range m.files {
		if path.Dir(f) == name {
			out = append(out, fs.FileInfoToDirEntry(memInfo{name: path.Base(f), size: int64(len(data))}))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (m *memFS) OpenRead(name string) (scanner.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens[name]++
	if err := m.openErr[name]; err != nil {
		return nil, err
	}
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &memFile{Reader: bytes.NewReader(data), fs: m}, nil
}

func (m *memFS) OpenReadWrite(name string) (scanner.ReadWriteFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &memRWFile{fs: m, name: name, data: append([]byte(nil), data...)}, nil
}

func (m *memFS) EnumerateFiles(dir, pattern string) ([]string, error) {
	return enumerateFiles(m, dir, pattern)
}

func (m *memFS) Join(elem ...string) string { return path.Join(elem...) }

type memInfo struct {
	name string
	size int64
	dir  bool
}

func (i memInfo) Name() string { return i.name }
func (i memInfo) Size() int64  { return i.size }
func (i memInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.dir }
func (i memInfo) Sys() any           { return nil }

type memFile struct {
	*bytes.Reader
	fs *memFS
}

func (f *memFile) Close() error {
	f.fs.mu.Lock()
	f.fs.closes++
	f.fs.mu.Unlock()
	return nil
}

type memRWFile struct {
	fs   *memFS
	name string
	data []byte
	pos  int64
}

func (f *memRWFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memRWFile) Write(p []byte) (int, error) {
	end := f.pos + int64(len(p))
	if end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}
	copy(f.data[f.pos:], p)
	f.pos = end
	return len(p), nil
}

func (f *memRWFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.pos = offset
	case io.SeekCurrent:
		f.pos += offset
	case io.SeekEnd:
		f.pos = int64(len(f.data)) + offset
	}
	if f.pos < 0 {
		return 0, errors.New("negative position")
	}
	return f.pos, nil
}

func (f *memRWFile) Truncate(size int64) error {
	f.data = f.data[:size]
	return nil
}

func (f *memRWFile) Close() error {
	f.fs.mu.Lock()
	f.fs.files[f.name] = f.data
	f.fs.mu.Unlock()
	return nil
}

// testScanner is a Scanner assembled from funcs.
type testScanner struct {
	name  string
	match func(c scanner.Candidate) (bool, error)
	scan  func(fc scanner.FileContext) error

	mu      sync.Mutex
	matched int
	scanned int
}

func (s *testScanner) Name() string { return s.name }

func (s *testScanner) ShouldScan(c scanner.Candidate) (bool, error) {
	s.mu.Lock()
	s.matched++
	s.mu.Unlock()
	if s.match == nil {
		return false, nil
	}
	return s.match(c)
}

func (s *testScanner) Scan(fc scanner.FileContext) error {
	s.mu.Lock()
	s.scanned++
	s.mu.Unlock()
	if s.scan == nil {
		return nil
	}
	return s.scan(fc)
}

func (s *testScanner) scanCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanned
}

func (s *testScanner) matchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matched
}

func bySuffix(suffix string) func(scanner.Candidate) (bool, error) {
	return func(c scanner.Candidate) (bool, error) {
		return strings.HasSuffix(c.Name, suffix), nil
	}
}

// reportContent reports one dependency per file carrying the whole file as
// its version.
func reportContent(typ string) func(fc scanner.FileContext) error {
	return func(fc scanner.FileContext) error {
		r, err := fc.Content()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		fc.Report(scanner.Dependency{Name: fc.Path(), Version: string(data), Type: typ})
		return nil
	}
}

// stubContext is a FileContext over an in-memory string.
type stubContext struct {
	ctx  context.Context
	path string
	r    io.ReadSeeker
	deps []scanner.Dependency
}

func newStubContext(path, content string) *stubContext {
	return &stubContext{ctx: context.Background(), path: path, r: strings.NewReader(content)}
}

func (c *stubContext) Context() context.Context        { return c.ctx }
func (c *stubContext) Path() string                    { return c.path }
func (c *stubContext) FileSystem() scanner.FileSystem  { return nil }
func (c *stubContext) Content() (io.ReadSeeker, error) { return c.r, nil }
func (c *stubContext) Report(d scanner.Dependency)     { c.deps = append(c.deps, d) }
