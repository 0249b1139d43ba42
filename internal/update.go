package internal

import (
	"cmp"
	"context"
	"slices"

	"github.com/sirupsen/logrus"

	"DepScanner/internal/scanner"
)

// UpdateAll sets every updatable dependency in deps to version, one location
// at a time. Within a file, locations are applied from the highest offset
// down so earlier offsets stay valid. It stops at the first failure and
// returns how many locations were rewritten.
func UpdateAll(ctx context.Context, fsys scanner.FileSystem, deps []scanner.Dependency, version string) (int, error) {
	todo := make([]scanner.Dependency, 0, len(deps))
	seen := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		if d.Location == nil || !d.Location.Updatable() {
			continue
		}
		key := d.Location.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		todo = append(todo, d)
	}
	slices.SortStableFunc(todo, func(a, b scanner.Dependency) int {
		if c := cmp.Compare(a.Location.FilePath(), b.Location.FilePath()); c != 0 {
			return c
		}
		return cmp.Compare(offsetOf(b.Location), offsetOf(a.Location))
	})

	updated := 0
	for _, d := range todo {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if d.Version == version {
			continue
		}
		if err := d.Location.UpdateVersion(ctx, fsys, version); err != nil {
			return updated, err
		}
		logrus.WithFields(logrus.Fields{"dependency": d.Name, "from": d.Version, "to": version}).Infof("Updated %s", d.Location)
		updated++
	}
	return updated, nil
}

func offsetOf(l scanner.Location) int64 {
	if t, ok := l.(scanner.TextLocation); ok {
		return t.Offset
	}
	return 0
}
