// Package metrics computes progress metrics — percent complete, processed
// and remaining items/bytes, throughput rates, and ETAs — as pure functions
// over a Progress snapshot's history log. None of these functions hold
// state themselves; callers append to History and read metrics as often as
// they like.
package metrics

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// warmupWindow is how long a run must have been executing, and how many
// items it must have processed, before an ETA is reported. Extrapolating a
// rate from a handful of samples in the first instant produces wild,
// misleading estimates.
const (
	warmupWindow   = 1200 * time.Millisecond
	warmupMinItems = 1
)

// HistoryEntry records one delta of progress at a point in time.
type HistoryEntry struct {
	Timestamp            time.Time
	ProcessedItemsDelta   int
	ProcessedBytesDelta   int64
}

// Progress is an immutable snapshot of a run's totals, start time, and
// monotonically appended history.
type Progress struct {
	TotalItems int
	TotalBytes int64
	Start      time.Time
	History    []HistoryEntry
}

// Track appends a delta to the history, returning the updated Progress. The
// receiver is not mutated; callers reassign their Progress variable.
func (p Progress) Track(itemsDelta int, bytesDelta int64, at time.Time) Progress {
	p.History = append(p.History, HistoryEntry{
		Timestamp:           at,
		ProcessedItemsDelta: itemsDelta,
		ProcessedBytesDelta: bytesDelta,
	})
	return p
}

// ProcessedItems sums every recorded item delta.
func (p Progress) ProcessedItems() int {
	total := 0
	for _, h := range p.History {
		total += h.ProcessedItemsDelta
	}
	return total
}

// ProcessedBytes sums every recorded byte delta.
func (p Progress) ProcessedBytes() int64 {
	var total int64
	for _, h := range p.History {
		total += h.ProcessedBytesDelta
	}
	return total
}

// ClampProgress bounds processed into [0, total], the same defensive clamp
// every progress snapshot needs when a delayed callback reports a count
// that has drifted outside its nominal range. It reports false when total
// is non-positive, signaling there is nothing meaningful to report.
func ClampProgress(processed, total int) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	if processed < 0 {
		processed = 0
	}
	if processed > total {
		processed = total
	}
	return processed, true
}

// RemainingItems returns TotalItems minus everything processed so far,
// floored at zero.
func (p Progress) RemainingItems() int {
	remaining := p.TotalItems - p.ProcessedItems()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingBytes returns TotalBytes minus everything processed so far,
// floored at zero.
func (p Progress) RemainingBytes() int64 {
	remaining := p.TotalBytes - p.ProcessedBytes()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PercentComplete returns processed items as a percentage of total items.
// It returns 0 when TotalItems is non-positive rather than dividing by zero.
func (p Progress) PercentComplete() float64 {
	processed, ok := ClampProgress(p.ProcessedItems(), p.TotalItems)
	if !ok {
		return 0
	}
	return 100 * float64(processed) / float64(p.TotalItems)
}

// ElapsedTime returns how long the run has been executing as of now.
func (p Progress) ElapsedTime(now time.Time) time.Duration {
	if p.Start.IsZero() {
		return 0
	}
	return now.Sub(p.Start)
}

// ItemsPerSecond returns the run's average item throughput as of now. It
// returns 0 if no time has elapsed.
func (p Progress) ItemsPerSecond(now time.Time) float64 {
	elapsed := p.ElapsedTime(now).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.ProcessedItems()) / elapsed
}

// BytesPerSecond returns the run's average byte throughput as of now. It
// returns 0 if no time has elapsed.
func (p Progress) BytesPerSecond(now time.Time) float64 {
	elapsed := p.ElapsedTime(now).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.ProcessedBytes()) / elapsed
}

// EstimatedTimeRemaining extrapolates the current item rate across
// RemainingItems. The second return value is false during the warm-up
// window — before warmupWindow has elapsed or before warmupMinItems items
// have processed — when the rate is too noisy to extrapolate usefully.
func (p Progress) EstimatedTimeRemaining(now time.Time) (time.Duration, bool) {
	if p.ElapsedTime(now) < warmupWindow || p.ProcessedItems() < warmupMinItems {
		return 0, false
	}

	rate := p.ItemsPerSecond(now)
	if rate <= 0 {
		return 0, false
	}

	seconds := float64(p.RemainingItems()) / rate
	return time.Duration(seconds * float64(time.Second)), true
}

// EstimatedCompletionTime returns now plus EstimatedTimeRemaining, when that
// estimate is available.
func (p Progress) EstimatedCompletionTime(now time.Time) (time.Time, bool) {
	remaining, ok := p.EstimatedTimeRemaining(now)
	if !ok {
		return time.Time{}, false
	}
	return now.Add(remaining), true
}

// FormatBytes renders a byte count the way the rest of this module's
// dependency family already does: via go-humanize rather than hand-rolled
// KB/MB/GB arithmetic.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// FormatDuration renders a duration rounded to whole seconds. No library in
// this module's dependency family humanizes durations the way go-humanize
// humanizes byte counts, so this uses time.Duration's own formatting.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}

// FormatRate renders an items-per-second rate to two decimal places.
func FormatRate(itemsPerSecond float64) string {
	return fmt.Sprintf("%.2f/s", itemsPerSecond)
}
