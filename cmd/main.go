package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"DepScanner/internal"
	"DepScanner/internal/scanner"
)

var commonFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "rules",
		Usage:    "Path to TOML rules file ([[rule]] name, type, files, pattern, updatable)",
		Required: true,
	},
	&cli.IntFlag{
		Name:  "threads",
		Usage: "Max concurrent file workers (1 - sequential)",
		Value: internal.DefaultThreads,
	},
	&cli.StringSliceFlag{
		Name:  "glob",
		Usage: "Only scan files matching these globs, with every rule (overrides rule files)",
	},
	&cli.IntFlag{
		Name:  "depth",
		Usage: "Max directory depth (0 - unlimited)",
	},
	&cli.StringSliceFlag{
		Name:  "exclude-dir",
		Usage: "Directory names to skip (default .git,.hg,.svn)",
	},
	&cli.BoolFlag{
		Name:  "archives",
		Usage: "Treat the root as an archive (.zip,.tar,.gz,...) and scan inside it",
	},
	&cli.DurationFlag{
		Name:  "timeout",
		Usage: "Global timeout for scan (e.g. 10m, 1h)",
	},
	&cli.DurationFlag{
		Name:  "stats-interval",
		Usage: "Log progress stats at this interval (0 - off)",
	},
	&cli.StringFlag{
		Name:  "logfile",
		Usage: "Write logs into file instead of stderr",
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
		Value: "info",
	},
}

func main() {
	app := &cli.App{
		Name:  "depscan",
		Usage: "Find dependency declarations across a directory tree",
		Commands: []*cli.Command{
			{
				Name:      "scan",
				Usage:     "List dependencies",
				ArgsUsage: "[root]",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON lines instead of text"},
				}, commonFlags...),
				Action: scanAction,
			},
			{
				Name:      "update",
				Usage:     "Set matching dependencies to a version in place",
				ArgsUsage: "[root]",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "name", Usage: "Dependency names to update", Required: true},
					&cli.StringFlag{Name: "to", Usage: "New version", Required: true},
					&cli.BoolFlag{Name: "dry-run", Usage: "Only print what would change"},
				}, commonFlags...),
				Action: updateAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

// session is the per-command setup shared by scan and update.
type session struct {
	ctx     context.Context
	root    string
	fsys    scanner.FileSystem
	scanner *internal.DependencyScanner
	stats   *internal.AppStats
	cleanup func()
}

func newSession(c *cli.Context) (*session, error) {
	internal.InitLogger(c.String("logfile"), c.String("log-level"))

	// ctx with timeout + OS signals
	base := context.Background()
	var cancel context.CancelFunc
	if t := c.Duration("timeout"); t > 0 {
		base, cancel = context.WithTimeout(base, t)
	} else {
		base, cancel = context.WithCancel(base)
	}
	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	closers := []func(){stop, cancel}

	cleanup := func() {
		for _, f := range closers {
			f()
		}
	}

	rules, err := internal.LoadRules(c.String("rules"))
	if err != nil {
		cleanup()
		return nil, cli.Exit(err.Error(), 1)
	}

	root := c.Args().First()
	if root == "" {
		root = "."
	}

	var fsys scanner.FileSystem = internal.OSFileSystem{}
	if c.Bool("archives") {
		if !internal.IsArchive(root) {
			cleanup()
			return nil, cli.Exit(fmt.Sprintf("not an archive: %s", root), 1)
		}
		afs, err := internal.NewArchiveFileSystem(ctx, root)
		if err != nil {
			cleanup()
			return nil, cli.Exit(err.Error(), 1)
		}
		closers = append([]func(){func() { _ = afs.Close() }}, closers...)
		fsys, root = afs, "."
	}

	var excludes []string
	if c.IsSet("exclude-dir") {
		excludes = c.StringSlice("exclude-dir")
	}

	stats := new(internal.AppStats)
	ds, err := internal.NewDependencyScanner(internal.ScanOptions{
		Scanners:      rules,
		Threads:       c.Int("threads"),
		Globs:         c.StringSlice("glob"),
		Depth:         c.Int("depth"),
		ExcludeDirs:   excludes,
		FileSystem:    fsys,
		StatsInterval: c.Duration("stats-interval"),
		Stats:         stats,
	})
	if err != nil {
		cleanup()
		return nil, cli.Exit(err.Error(), 1)
	}

	return &session{ctx: ctx, root: root, fsys: fsys, scanner: ds, stats: stats, cleanup: cleanup}, nil
}

func (s *session) summary() {
	fmt.Fprintf(os.Stderr,
		"\n======= Scan finished in %s =======\nFiles scanned: %s\nDependencies found: %s\n",
		s.stats.Elapsed(), humanize.Comma(s.stats.FilesScanned.Load()), humanize.Comma(s.stats.Dependencies.Load()),
	)
}

func scanAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.cleanup()

	if err := s.scanner.Scan(s.ctx, s.root, internal.NewResultSink(os.Stdout, c.Bool("json"))); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	s.summary()
	return nil
}

func updateAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.cleanup()

	names := make(map[string]struct{})
	for _, n := range c.StringSlice("name") {
		names[n] = struct{}{}
	}

	var matched []scanner.Dependency
	for d, err := range s.scanner.Dependencies(s.ctx, s.root) {
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if _, ok := names[d.Name]; ok {
			matched = append(matched, d)
		}
	}

	version := c.String("to")
	if c.Bool("dry-run") {
		sink := internal.NewResultSink(os.Stdout, false)
		for _, d := range matched {
			if d.Location != nil && d.Location.Updatable() && d.Version != version {
				sink(d)
			}
		}
		return nil
	}

	n, err := internal.UpdateAll(s.ctx, s.fsys, matched, version)
	if err != nil {
		return cli.Exit(fmt.Sprintf("updated %d before failure: %v", n, err), 1)
	}
	logrus.Infof("Updated %d of %d matched dependencies to %s", n, len(matched), version)
	return nil
}
