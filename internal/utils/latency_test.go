package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyTrackerSummary(t *testing.T) {
	t.Parallel()

	tracker := NewLatencyTracker(8)
	for _, d := range []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		500 * time.Millisecond,
	} {
		tracker.Observe(d)
	}

	summary := tracker.Summary()
	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, 500*time.Millisecond, summary.Max)
	assert.LessOrEqual(t, summary.P50, summary.P95)
}

func TestLatencyTrackerBoundsSamples(t *testing.T) {
	t.Parallel()

	tracker := NewLatencyTracker(4)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	assert.Equal(t, 4, tracker.Count())

	// Oldest samples were dropped; max reflects the newest window.
	assert.Equal(t, 9*time.Millisecond, tracker.Summary().Max)
}

func TestLatencyTrackerEmpty(t *testing.T) {
	t.Parallel()

	tracker := NewLatencyTracker(4)
	assert.Equal(t, LatencySummary{}, tracker.Summary())
}
