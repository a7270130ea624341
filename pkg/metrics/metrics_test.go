package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zipsplat/pkg/metrics"
)

func TestProcessedAndRemaining(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := metrics.Progress{TotalItems: 10, TotalBytes: 1000, Start: start}
	p = p.Track(3, 300, start.Add(time.Second))
	p = p.Track(2, 200, start.Add(2*time.Second))

	require.Equal(t, 5, p.ProcessedItems())
	require.EqualValues(t, 500, p.ProcessedBytes())
	require.Equal(t, 5, p.RemainingItems())
	require.EqualValues(t, 500, p.RemainingBytes())
	require.InDelta(t, 50.0, p.PercentComplete(), 0.001)
}

func TestPercentCompleteClampsAndAvoidsDivideByZero(t *testing.T) {
	zero := metrics.Progress{}
	require.Equal(t, float64(0), zero.PercentComplete())

	over := metrics.Progress{TotalItems: 2}
	over = over.Track(5, 0, time.Now())
	require.Equal(t, float64(100), over.PercentComplete())
}

func TestEstimatedTimeRemainingSkipsWarmupWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := metrics.Progress{TotalItems: 100, Start: start}
	p = p.Track(10, 0, start.Add(500*time.Millisecond))

	_, ok := p.EstimatedTimeRemaining(start.Add(500 * time.Millisecond))
	require.False(t, ok, "should not estimate before the warm-up window elapses")

	later := start.Add(5 * time.Second)
	p = p.Track(40, 0, later)
	eta, ok := p.EstimatedTimeRemaining(later)
	require.True(t, ok)
	require.Greater(t, eta, time.Duration(0))
}

func TestRatesAreZeroWithoutElapsedTime(t *testing.T) {
	p := metrics.Progress{TotalItems: 10}
	require.Equal(t, float64(0), p.ItemsPerSecond(time.Time{}))
	require.Equal(t, float64(0), p.BytesPerSecond(time.Time{}))
}

func TestFormatBytesUsesHumanizedUnits(t *testing.T) {
	require.Equal(t, "1.0 kB", metrics.FormatBytes(1000))
}

func TestClampProgressRejectsNonPositiveTotal(t *testing.T) {
	_, ok := metrics.ClampProgress(5, 0)
	require.False(t, ok)

	_, ok = metrics.ClampProgress(5, -1)
	require.False(t, ok)
}

func TestClampProgressClampsToRange(t *testing.T) {
	got, ok := metrics.ClampProgress(-5, 10)
	require.True(t, ok)
	require.Equal(t, 0, got)

	got, ok = metrics.ClampProgress(15, 10)
	require.True(t, ok)
	require.Equal(t, 10, got)

	got, ok = metrics.ClampProgress(5, 10)
	require.True(t, ok)
	require.Equal(t, 5, got)
}
