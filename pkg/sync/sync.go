// Package sync implements the Sync Orchestrator: it drives the full
// ambiguity cascade — scan the destination, collect every source entry,
// drop what is already present, then resolve by name, by CRC32, and
// finally by perceptual image hash — writing each stage's unambiguous
// entries before advancing. Anything still ambiguous or unprocessed when
// the cascade is exhausted fails the run loudly.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"zipsplat/pkg/archive"
	"zipsplat/pkg/collector"
	"zipsplat/pkg/config"
	"zipsplat/pkg/destscan"
	"zipsplat/pkg/executor"
	"zipsplat/pkg/filelock"
	"zipsplat/pkg/internalpath"
	"zipsplat/pkg/journal"
	"zipsplat/pkg/metrics"
	"zipsplat/pkg/partition"
	"zipsplat/pkg/runmeta"
	"zipsplat/pkg/safepath"
	"zipsplat/pkg/splat"
	"zipsplat/pkg/writer"
)

// ErrUnresolvedAmbiguity is returned when the cascade exhausts every
// partition strategy and entries remain ambiguous or unprocessed.
var ErrUnresolvedAmbiguity = errors.New("sync: unresolved ambiguity remains")

// ErrNoArchives is returned when opts.Sources is empty.
var ErrNoArchives = errors.New("sync: no source directories configured")

// Options configures a sync run.
type Options struct {
	Destination string
	Sources     []string

	// SimilarityThreshold is the maximum perceptual-hash Hamming distance
	// the by-image-hash stage accepts as a match.
	SimilarityThreshold int

	// Concurrency caps entry collection and writing. Zero means unlimited.
	Concurrency int

	// ImageHashBudgetPerPass bounds how many images a single image-hash
	// partition pass decodes before deferring the rest to the next pass.
	// Zero means unlimited (a single pass resolves everything it can); a
	// negative value forces a literal zero-item budget, deferring every
	// image group without decoding anything — real callers should leave
	// this at zero and only use a negative value to test budget exhaustion.
	ImageHashBudgetPerPass int

	// ImageHashMaxDurationPerPass bounds how long a single image-hash
	// partition pass spends decoding before deferring the rest to the next
	// pass. Zero means unlimited; a negative value forces a literal
	// zero-duration budget, deferring every image group immediately.
	ImageHashMaxDurationPerPass time.Duration

	// ProgressDisplayInterval throttles OnProgress to fire at most once per
	// interval, via the Progress Executor's display callbacks. Zero uses
	// the executor's default.
	ProgressDisplayInterval time.Duration

	Logger *slog.Logger

	// OnProgress, if set, is invoked at most once per ProgressDisplayInterval
	// while entries are being written, with the run's cumulative progress
	// snapshot. Callers use this to render a live progress bar via
	// pkg/metrics; it may be called concurrently with writer goroutines.
	OnProgress func(metrics.Progress)
}

// progressTracker serializes updates to an immutable metrics.Progress value.
// It is fed through the Progress Executor's already-throttled Dequeue
// callback, so onUpdate fires at most once per display interval no matter
// how many writes land in between — see writeUnambiguous.
type progressTracker struct {
	mu       sync.Mutex
	progress metrics.Progress
	onUpdate func(metrics.Progress)
}

func newProgressTracker(totalItems int, totalBytes int64, onUpdate func(metrics.Progress)) *progressTracker {
	return &progressTracker{
		progress: metrics.Progress{
			TotalItems: totalItems,
			TotalBytes: totalBytes,
			Start:      time.Now(),
		},
		onUpdate: onUpdate,
	}
}

func (t *progressTracker) record(itemsDelta int, bytesDelta int64) {
	t.mu.Lock()
	t.progress = t.progress.Track(itemsDelta, bytesDelta, time.Now())
	snapshot := t.progress
	t.mu.Unlock()

	if t.onUpdate != nil {
		t.onUpdate(snapshot)
	}
}

// Report summarizes a completed (or failed) run.
type Report struct {
	Written        int
	WrittenBytes   int64
	AlreadyPresent int

	Ambiguous      map[internalpath.Path][]archive.Entry
	Unprocessed    map[internalpath.Path][]archive.Entry
	FailedArchives []collector.ArchiveError
}

// Succeeded reports whether the run resolved every entry, i.e. the report
// carries no residual ambiguous or unprocessed entries.
func (r Report) Succeeded() bool {
	return len(r.Ambiguous) == 0 && len(r.Unprocessed) == 0
}

// Run executes one full sync against opts.Destination from opts.Sources.
func Run(ctx context.Context, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if len(opts.Sources) == 0 {
		return Report{}, ErrNoArchives
	}

	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = config.DefaultSimilarityThreshold
	}

	if err := os.MkdirAll(opts.Destination, 0o755); err != nil {
		return Report{}, fmt.Errorf("sync: create destination %s: %w", opts.Destination, err)
	}

	validator, err := safepath.New(opts.Destination)
	if err != nil {
		return Report{}, fmt.Errorf("sync: validate destination %s: %w", opts.Destination, err)
	}

	metaDir, err := runmeta.Init(opts.Destination, validator)
	if err != nil {
		return Report{}, fmt.Errorf("sync: init run metadata: %w", err)
	}

	lock, err := filelock.Acquire(metaDir.LockPath())
	if err != nil {
		return Report{}, fmt.Errorf("sync: another run already holds the destination lock: %w", err)
	}
	defer lock.Close()

	runID := metaDir.RunID("sync")
	journalPath := metaDir.JournalPath(runID)
	if err := os.MkdirAll(parentDir(journalPath), 0o755); err != nil {
		return Report{}, fmt.Errorf("sync: create journal directory: %w", err)
	}

	journalWriter, err := journal.NewWriter(journalPath)
	if err != nil {
		return Report{}, fmt.Errorf("sync: open journal: %w", err)
	}
	defer journalWriter.Close()

	interner := internalpath.NewInterner()
	arena := archive.NewArena()
	w := writer.New(arena, journalWriter, logger)

	report := Report{}

	// SCAN-DESTINATION
	existing, err := destscan.Scan(opts.Destination, interner)
	if err != nil {
		return Report{}, fmt.Errorf("sync: scan destination: %w", err)
	}
	existingByPath := destscan.ByInternalPath(existing)

	// COLLECT-ENTRIES
	col := collector.New(collector.Options{})
	archives, err := col.FindArchives(opts.Sources)
	if err != nil {
		return Report{}, fmt.Errorf("sync: find source archives: %w", err)
	}

	entries, failedArchives, err := collector.CollectEntries(ctx, arena, interner, archives, opts.Concurrency)
	if err != nil {
		return Report{}, fmt.Errorf("sync: collect entries: %w", err)
	}
	report.FailedArchives = failedArchives

	// FILTER-PRESENT: resume semantics.
	pending := make([]archive.Entry, 0, len(entries))
	for _, e := range entries {
		if _, present := existingByPath[e.Internal]; present {
			report.AlreadyPresent++
			continue
		}
		pending = append(pending, e)
	}

	progress := newProgressTracker(len(pending), sumUncompressedBytes(pending), opts.OnProgress)

	// PARTITION-BY-NAME
	byName, err := partition.ByName{}.Partition(ctx, partition.GroupByInternalPath(pending))
	if err != nil {
		return Report{}, fmt.Errorf("sync: partition by name: %w", err)
	}
	if err := writeUnambiguous(ctx, w, byName.Unambiguous, &report, opts.Destination, opts.Concurrency, opts.ProgressDisplayInterval, progress); err != nil {
		return Report{}, err
	}

	if len(byName.Ambiguous) == 0 {
		return report, nil
	}

	// PARTITION-BY-CRC32
	byCRC32, err := partition.ByCRC32{}.Partition(ctx, byName.Ambiguous)
	if err != nil {
		return Report{}, fmt.Errorf("sync: partition by crc32: %w", err)
	}
	if err := writeUnambiguous(ctx, w, byCRC32.Unambiguous, &report, opts.Destination, opts.Concurrency, opts.ProgressDisplayInterval, progress); err != nil {
		return Report{}, err
	}

	if len(byCRC32.Ambiguous) == 0 {
		return report, nil
	}

	// PARTITION-BY-IMAGE-HASH, looping while the budget permits and
	// progress is being made.
	finalAmbiguous := make(map[internalpath.Path][]archive.Entry)
	finalUnprocessed := make(map[internalpath.Path][]archive.Entry)
	remaining := byCRC32.Ambiguous

	strategy := partition.ByImageHash{
		Arena:       arena,
		Threshold:   opts.SimilarityThreshold,
		StopAfter:   opts.ImageHashBudgetPerPass,
		MaxDuration: opts.ImageHashMaxDurationPerPass,
	}

	for len(remaining) > 0 {
		byHash, err := strategy.Partition(ctx, remaining)
		if err != nil {
			return Report{}, fmt.Errorf("sync: partition by image hash: %w", err)
		}

		if err := writeUnambiguous(ctx, w, byHash.Unambiguous, &report, opts.Destination, opts.Concurrency, opts.ProgressDisplayInterval, progress); err != nil {
			return Report{}, err
		}

		for path, group := range byHash.Ambiguous {
			finalAmbiguous[path] = group
		}

		madeProgress := len(byHash.Unprocessed) < len(remaining)
		remaining = byHash.Unprocessed

		if len(remaining) == 0 || !madeProgress {
			break
		}
	}
	for path, group := range remaining {
		finalUnprocessed[path] = group
	}

	report.Ambiguous = finalAmbiguous
	report.Unprocessed = finalUnprocessed

	if !report.Succeeded() {
		return report, fmt.Errorf("%w: %d ambiguous, %d unprocessed",
			ErrUnresolvedAmbiguity, len(report.Ambiguous), len(report.Unprocessed))
	}

	return report, nil
}

// writeUnambiguous writes every winner a partition stage resolved, fanning
// the writes out through the Progress Executor. The cascade never
// disambiguates its own writes with the source archive name — that layout is
// reserved for a future interactive conflict-resolution flow (see the Splat
// Path Computer) — so every winner, regardless of which stage resolved it,
// lands at the plain destRoot/InternalPath.
func writeUnambiguous(
	ctx context.Context,
	w *writer.Writer,
	unambiguous map[internalpath.Path]archive.Entry,
	report *Report,
	destRoot string,
	concurrency int,
	displayInterval time.Duration,
	progress *progressTracker,
) error {
	entries := make([]archive.Entry, 0, len(unambiguous))
	for _, entry := range unambiguous {
		entries = append(entries, entry)
	}

	results, err := executor.Run(ctx, entries, executor.Options{
		Concurrency:     concurrency,
		DisplayInterval: displayInterval,
		Callbacks: executor.Callbacks{
			Dequeue: func(itemsDelta int, bytesDelta int64) {
				progress.record(itemsDelta, bytesDelta)
			},
		},
	},
		func(_ context.Context, entry archive.Entry) (bool, int64, error) {
			destPath, err := splat.Path(entry.Internal, destRoot, nil)
			if err != nil {
				return false, 0, fmt.Errorf("compute destination path for %s: %w", entry.Internal, err)
			}

			wrote, err := w.Write(entry, destPath)
			if err != nil {
				return false, 0, fmt.Errorf("write %s: %w", destPath, err)
			}

			var bytesWritten int64
			if wrote {
				bytesWritten = int64(entry.UncompressedSize)
			}

			return wrote, bytesWritten, nil
		})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	for i, r := range results {
		if r.Err != nil {
			return fmt.Errorf("sync: %w", r.Err)
		}
		if r.Value {
			report.Written++
			report.WrittenBytes += int64(entries[i].UncompressedSize)
		}
	}

	return nil
}

func sumUncompressedBytes(entries []archive.Entry) int64 {
	var total int64
	for _, e := range entries {
		total += int64(e.UncompressedSize)
	}
	return total
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}
