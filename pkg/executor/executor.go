// Package executor implements the Progress Executor: a bounded-concurrency
// map over a work set that accounts bytes and items processed, emitting
// periodic metrics through injected display callbacks as tasks are
// enqueued and completed, plus a single completion callback when the whole
// run finishes.
package executor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"zipsplat/pkg/metrics"
)

// defaultDisplayInterval throttles Enqueue/Dequeue when the caller leaves
// Options.DisplayInterval unset. Firing on every single task would flood a
// progress bar on a sync moving thousands of small files.
const defaultDisplayInterval = 200 * time.Millisecond

// Result pairs a work item's index with its output and any error, so callers
// can recover correspondence between input and output even though tasks may
// complete out of order.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Callbacks report a Run call's progress. Enqueue and Dequeue are display
// callbacks: Run fires each at most once per Options.DisplayInterval,
// regardless of how many tasks actually transition in that window. Complete
// fires exactly once, after every task has finished, carrying the run's
// total elapsed time. Any of the three may be nil, and all must be safe for
// concurrent use.
type Callbacks struct {
	// Enqueue reports how many additional tasks have been handed to a
	// worker since the last Enqueue call, alongside the run's total task
	// count.
	Enqueue func(delta, total int)
	// Dequeue reports how many additional tasks have finished, and how
	// many additional bytes they processed, since the last Dequeue call.
	Dequeue func(itemsDelta int, bytesDelta int64)
	// Complete reports the run's total wall-clock duration.
	Complete func(elapsed time.Duration)
}

// Options configures a Run call.
type Options struct {
	// Concurrency caps the number of tasks running at once. Zero or
	// negative means unlimited.
	Concurrency int
	// DisplayInterval throttles Callbacks.Enqueue and Callbacks.Dequeue.
	// Zero means defaultDisplayInterval.
	DisplayInterval time.Duration
	Callbacks       Callbacks
}

// Task is one unit of work submitted to Run. It returns the bytes it
// processed (for progress accounting) alongside its result.
type Task[T, R any] func(ctx context.Context, item T) (result R, bytesProcessed int64, err error)

// Run executes fn over items with bounded concurrency, returning one Result
// per item in input order. Run itself does not fail when individual tasks
// fail — each failure is captured in that item's Result.Err — but it does
// stop launching new tasks and returns early if ctx is canceled.
func Run[T, R any](ctx context.Context, items []T, opts Options, fn Task[T, R]) ([]Result[R], error) {
	start := time.Now()
	results := make([]Result[R], len(items))

	interval := opts.DisplayInterval
	if interval <= 0 {
		interval = defaultDisplayInterval
	}
	disp := newDispatcher(interval, len(items), opts.Callbacks)

	group, groupCtx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		group.SetLimit(opts.Concurrency)
	}

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		i, item := i, item

		group.Go(func() error {
			disp.enqueued()

			value, bytesProcessed, err := fn(groupCtx, item)
			results[i] = Result[R]{Index: i, Value: value, Err: err}

			disp.dequeued(bytesProcessed)

			return nil
		})
	}

	runErr := group.Wait()

	if opts.Callbacks.Complete != nil {
		opts.Callbacks.Complete(time.Since(start))
	}

	if runErr != nil {
		return results, runErr
	}

	return results, ctx.Err()
}

// dispatcher tracks cumulative enqueue/dequeue counts across worker
// goroutines and throttles the corresponding display callback to fire at
// most once per interval. The final enqueue and the final dequeue always
// fire, so a caller driving a progress bar off these callbacks is
// guaranteed to see 100% even if the run finishes inside one interval.
type dispatcher struct {
	mu       sync.Mutex
	interval time.Duration
	total    int
	cb       Callbacks

	enqueuedCount    int
	enqueuedReported int
	lastEnqueueEmit  time.Time

	completedCount    int
	bytesCount        int64
	completedReported int
	bytesReported     int64
	lastDequeueEmit   time.Time
}

func newDispatcher(interval time.Duration, total int, cb Callbacks) *dispatcher {
	return &dispatcher{interval: interval, total: total, cb: cb}
}

func (d *dispatcher) enqueued() {
	d.mu.Lock()
	d.enqueuedCount++
	count := d.enqueuedCount
	fire := d.cb.Enqueue != nil && (d.lastEnqueueEmit.IsZero() || time.Since(d.lastEnqueueEmit) >= d.interval || count == d.total)

	var delta int
	if fire {
		clamped, _ := metrics.ClampProgress(count, d.total)
		delta = clamped - d.enqueuedReported
		d.enqueuedReported = clamped
		d.lastEnqueueEmit = time.Now()
	}
	d.mu.Unlock()

	if fire && delta > 0 {
		d.cb.Enqueue(delta, d.total)
	}
}

func (d *dispatcher) dequeued(bytesProcessed int64) {
	d.mu.Lock()
	d.completedCount++
	d.bytesCount += bytesProcessed
	count := d.completedCount
	bytes := d.bytesCount
	fire := d.cb.Dequeue != nil && (d.lastDequeueEmit.IsZero() || time.Since(d.lastDequeueEmit) >= d.interval || count == d.total)

	var itemsDelta int
	var bytesDelta int64
	if fire {
		clamped, _ := metrics.ClampProgress(count, d.total)
		itemsDelta = clamped - d.completedReported
		bytesDelta = bytes - d.bytesReported
		d.completedReported = clamped
		d.bytesReported = bytes
		d.lastDequeueEmit = time.Now()
	}
	d.mu.Unlock()

	if fire && (itemsDelta > 0 || bytesDelta > 0) {
		d.cb.Dequeue(itemsDelta, bytesDelta)
	}
}
