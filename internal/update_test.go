package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DepScanner/internal/scanner"
)

const packageJSON = `{
  "dependencies": {
    "left-pad": "^1.3.0",
    "lodash": "4.17.21"
  }
}
`

func npmScanner(t testing.TB, updatable bool) scanner.Scanner {
	return mustRule(t, Rule{
		Name:      "npm",
		Files:     []string{"package.json"},
		Pattern:   `"(?P<name>[\w.-]+)"\s*:\s*"(?P<version>[~^]?\d[^"]*)"`,
		Updatable: updatable,
	})
}

func scanDir(t *testing.T, dir string, s scanner.Scanner) []scanner.Dependency {
	t.Helper()
	ds, err := NewDependencyScanner(ScanOptions{Scanners: []scanner.Scanner{s}, Threads: 2})
	require.NoError(t, err)
	deps, err := ds.Collect(context.Background(), dir)
	require.NoError(t, err)
	return deps
}

func TestUpdateAll_RewritesEveryLocationInFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app", "package.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
	require.NoError(t, os.WriteFile(file, []byte(packageJSON), 0644))

	deps := scanDir(t, dir, npmScanner(t, true))
	require.Len(t, deps, 2)

	n, err := UpdateAll(context.Background(), OSFileSystem{}, deps, "10.0.0-rc.1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, `{
  "dependencies": {
    "left-pad": "10.0.0-rc.1",
    "lodash": "10.0.0-rc.1"
  }
}
`, string(got))

	// a fresh scan sees the new versions
	for _, d := range scanDir(t, dir, npmScanner(t, true)) {
		assert.Equal(t, "10.0.0-rc.1", d.Version)
	}
}

func TestUpdateAll_StaleLocation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "package.json")
	require.NoError(t, os.WriteFile(file, []byte(packageJSON), 0644))
	deps := scanDir(t, dir, npmScanner(t, true))

	require.NoError(t, os.WriteFile(file, []byte("{}\n"), 0644))
	n, err := UpdateAll(context.Background(), OSFileSystem{}, deps, "2.0.0")
	assert.ErrorIs(t, err, scanner.ErrStaleLocation)
	assert.Zero(t, n)

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(got))
}

func TestUpdateAll_SkipsReadOnlyAndCurrent(t *testing.T) {
	fsys := newMemFS().add("/r/package.json", packageJSON)
	ds, err := NewDependencyScanner(ScanOptions{Scanners: []scanner.Scanner{npmScanner(t, false)}, FileSystem: fsys})
	require.NoError(t, err)
	deps, err := ds.Collect(context.Background(), "/r")
	require.NoError(t, err)
	require.Len(t, deps, 2)

	n, err := UpdateAll(context.Background(), fsys, deps, "9.9.9")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, packageJSON, fsys.content("/r/package.json"))

	ds, err = NewDependencyScanner(ScanOptions{Scanners: []scanner.Scanner{npmScanner(t, true)}, FileSystem: fsys})
	require.NoError(t, err)
	deps, err = ds.Collect(context.Background(), "/r")
	require.NoError(t, err)

	n, err = UpdateAll(context.Background(), fsys, append(deps, deps...), "4.17.21")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "lodash is already current and duplicates collapse")
	assert.Contains(t, fsys.content("/r/package.json"), `"left-pad": "4.17.21"`)
}

func TestTextLocation_NotUpdatable(t *testing.T) {
	loc := scanner.TextLocation{Path: "/r/x", Line: 1, Column: 1, Text: "1"}
	err := loc.UpdateVersion(context.Background(), newMemFS().add("/r/x", "1"), "2")
	assert.Error(t, err)
}
