package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/sirupsen/logrus"

	"DepScanner/internal/scanner"
)

// resultQueue is an unbounded multi-producer, single-consumer queue.
// push never blocks; the consumer drains in batches.
type resultQueue struct {
	mu     sync.Mutex
	items  []scanner.Dependency
	closed bool
	signal chan struct{}
}

func newResultQueue() *resultQueue {
	return &resultQueue{signal: make(chan struct{}, 1)}
}

func (q *resultQueue) push(d scanner.Dependency) {
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()
	q.notify()
}

func (q *resultQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notify()
}

func (q *resultQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// ready fires after a push or close that happened since the last drain.
func (q *resultQueue) ready() <-chan struct{} { return q.signal }

// drain takes everything queued so far. When closed is true the batch is
// the last one.
func (q *resultQueue) drain() (batch []scanner.Dependency, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch, q.items = q.items, nil
	return batch, q.closed
}

// Scan pushes every discovered dependency to onDependency, which is called
// from the calling goroutine. The order across files is unspecified.
func (s *DependencyScanner) Scan(ctx context.Context, root string, onDependency func(scanner.Dependency)) error {
	return s.run(ctx, root, func(d scanner.Dependency) bool {
		onDependency(d)
		return true
	})
}

// Dependencies returns a lazy sequence of dependencies. A scan failure is
// yielded once as the final element; breaking out of the loop stops the scan.
func (s *DependencyScanner) Dependencies(ctx context.Context, root string) iter.Seq2[scanner.Dependency, error] {
	return func(yield func(scanner.Dependency, error) bool) {
		stopped := false
		err := s.run(ctx, root, func(d scanner.Dependency) bool {
			if !yield(d, nil) {
				stopped = true
			}
			return !stopped
		})
		if err != nil && !stopped && !errors.Is(err, errConsumerStopped) {
			yield(scanner.Dependency{}, err)
		}
	}
}

// Collect materializes all dependencies of root.
func (s *DependencyScanner) Collect(ctx context.Context, root string) ([]scanner.Dependency, error) {
	var out []scanner.Dependency
	for d, err := range s.Dependencies(ctx, root) {
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

type dependencyRecord struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Location  string `json:"location,omitempty"`
	Updatable bool   `json:"updatable"`
}

// NewResultSink returns a callback writing one line per dependency to w,
// as tab-separated text or as JSON lines.
func NewResultSink(w io.Writer, asJSON bool) func(scanner.Dependency) {
	var mu sync.Mutex
	enc := json.NewEncoder(w)

	return func(d scanner.Dependency) {
		rec := dependencyRecord{Type: d.Type, Name: d.Name, Version: d.Version}
		if d.Location != nil {
			rec.Location = d.Location.String()
			rec.Updatable = d.Location.Updatable()
		}

		mu.Lock()
		defer mu.Unlock()
		var err error
		if asJSON {
			err = enc.Encode(rec)
		} else {
			_, err = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Type, rec.Name, rec.Version, rec.Location)
		}
		if err != nil {
			logrus.WithError(err).Error("write result")
		}
	}
}
