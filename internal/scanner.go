package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"DepScanner/internal/scanner"
)

// DependencyScanner applies a fixed registry of scanners to every file of a
// directory tree. A DependencyScanner may be used for several runs, including
// concurrent ones; no state is shared between runs except Options.Stats.
type DependencyScanner struct {
	opts     ScanOptions
	scanners []scanner.Scanner
	fsys     scanner.FileSystem
	interest interestFunc
}

// NewDependencyScanner validates opts and freezes the scanner registry.
func NewDependencyScanner(opts ScanOptions) (*DependencyScanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Prepare()
	scanners := append([]scanner.Scanner(nil), opts.Scanners...)
	opts.Scanners = scanners
	return &DependencyScanner{
		opts:     opts,
		scanners: scanners,
		fsys:     opts.FileSystem,
		interest: newInterestFunc(scanners, opts.Globs),
	}, nil
}

// run is the single event-producing core behind every sink adapter. emit is
// only ever called from the calling goroutine; returning false stops the run
// with errConsumerStopped.
func (s *DependencyScanner) run(ctx context.Context, root string, emit func(scanner.Dependency) bool) error {
	if len(s.scanners) == 0 {
		return nil
	}
	root = s.fsys.Join(root)
	st, err := s.fsys.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %w", ErrDirectoryNotFound, root, err)
	case err != nil:
		return &ScanError{Op: OpWalk, Path: root, Err: err}
	case !st.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, root)
	}

	stats := s.opts.Stats
	if stats == nil {
		stats = new(AppStats)
	}
	stats.Start()
	log := logrus.WithFields(logrus.Fields{"run": uuid.NewString(), "root": root})
	w := &walker{
		fsys:     s.fsys,
		opts:     &s.opts,
		scanners: s.scanners,
		interest: s.interest,
		stats:    stats,
		log:      log,
	}
	emitCounted := func(d scanner.Dependency) bool {
		stats.Dependencies.Add(1)
		return emit(d)
	}

	log.WithField("threads", s.opts.Threads).Debug("Scan started")
	if s.opts.Threads == 1 {
		err = s.runSequential(ctx, root, w, stats, emitCounted)
	} else {
		err = s.runParallel(ctx, root, w, stats, log, emitCounted)
	}
	switch {
	case err == nil:
		log.Infof("Scan finished in %s: %s", stats.Elapsed().Round(time.Millisecond), stats)
	case errors.Is(err, errConsumerStopped):
	case ctx.Err() != nil:
		log.WithError(err).Warn("Scan cancelled")
	default:
		log.WithError(err).Error("Scan failed")
	}
	return err
}

// runSequential walks and scans on the calling goroutine.
func (s *DependencyScanner) runSequential(ctx context.Context, root string, w *walker, stats *AppStats, emit func(scanner.Dependency) bool) error {
	stopped := false
	report := func(d scanner.Dependency) {
		if !stopped && !emit(d) {
			stopped = true
		}
	}
	return w.Walk(ctx, root, func(f FileToScan) error {
		if err := s.scanFile(ctx, f, stats, report); err != nil {
			return err
		}
		if stopped {
			return errConsumerStopped
		}
		return nil
	})
}

// runParallel connects the walker to Threads workers through a bounded
// channel and drains their results on the calling goroutine.
func (s *DependencyScanner) runParallel(ctx context.Context, root string, w *walker, stats *AppStats, log *logrus.Entry, emit func(scanner.Dependency) bool) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	fileCh := make(chan FileToScan, s.opts.QueueSize)
	results := newResultQueue()

	var workers sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(s.opts.Threads, func(interface{}) {
		defer workers.Done()
		// recover before Done so the cause is set before the results close
		defer func() {
			if v := recover(); v != nil {
				cancel(fmt.Errorf("scanner panic: %v", v))
			}
		}()
		for {
			select {
			case <-runCtx.Done():
				return
			case f, ok := <-fileCh:
				if !ok {
					return
				}
				if err := s.scanFile(runCtx, f, stats, results.push); err != nil {
					cancel(err)
					return
				}
			}
		}
	}, ants.WithPreAlloc(true))
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	defer pool.Release()

	g, gctx := errgroup.WithContext(runCtx)

	// walker
	g.Go(func() error {
		defer close(fileCh)
		err := w.Walk(gctx, root, func(f FileToScan) error {
			select {
			case fileCh <- f:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil {
			cancel(err)
		}
		return err
	})

	workers.Add(s.opts.Threads)
	for i := 0; i < s.opts.Threads; i++ {
		if err := pool.Invoke(i); err != nil {
			workers.Done()
			cancel(fmt.Errorf("submit worker: %w", err))
		}
	}

	// the result queue closes only after every worker has returned
	g.Go(func() error {
		workers.Wait()
		results.close()
		return nil
	})

	var tick <-chan time.Time
	if s.opts.StatsInterval > 0 {
		ticker := time.NewTicker(s.opts.StatsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

drain:
	for {
		batch, closed := results.drain()
		for _, d := range batch {
			if runCtx.Err() != nil {
				break drain
			}
			if !emit(d) {
				cancel(errConsumerStopped)
				break drain
			}
		}
		if closed {
			break
		}
		select {
		case <-results.ready():
		case <-runCtx.Done():
			break drain
		case <-tick:
			log.Infof("Stats: %s", stats)
		}
	}

	werr := g.Wait()
	if cause := context.Cause(runCtx); cause != nil {
		return cause
	}
	return werr
}

// scanFile runs every interested scanner on one file in registry order,
// sharing one lazily opened stream that is rewound between scanners and
// closed on every exit path.
func (s *DependencyScanner) scanFile(ctx context.Context, f FileToScan, stats *AppStats, report func(scanner.Dependency)) (err error) {
	stats.FilesScanned.Add(1)
	fc := newFileContext(ctx, s.fsys, f.Path, stats, report)
	defer func() {
		if cerr := fc.close(); cerr != nil && err == nil {
			err = &ScanError{Op: OpClose, Path: f.Path, Err: cerr}
		}
	}()

	first := true
	for i, sc := range s.scanners {
		if !f.Interest.Get(i) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !first {
			if err := fc.rewind(); err != nil {
				return &ScanError{Op: OpReset, Scanner: sc.Name(), Path: f.Path, Err: err}
			}
		}
		first = false
		if err := sc.Scan(fc); err != nil {
			return &ScanError{Op: OpScan, Scanner: sc.Name(), Path: f.Path, Err: err}
		}
	}
	return nil
}
