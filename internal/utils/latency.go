package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencySummary condenses the recorded samples for end-of-run logging.
type LatencySummary struct {
	Count int
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// LatencyTracker records search round-trip durations for a single run.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &LatencyTracker{maxSize: maxSize}
}

// Observe records a new duration, dropping the oldest sample once full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.samples = append(l.samples, d)
	if len(l.samples) > l.maxSize {
		copy(l.samples[0:], l.samples[1:])
		l.samples = l.samples[:l.maxSize]
	}
}

// Count returns the number of samples recorded.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.samples)
}

// Summary computes count, p50, p95, and max over the recorded samples.
func (l *LatencyTracker) Summary() LatencySummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.samples) == 0 {
		return LatencySummary{}
	}

	sorted := append([]time.Duration(nil), l.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencySummary{
		Count: len(sorted),
		P50:   percentileOf(sorted, 50),
		P95:   percentileOf(sorted, 95),
		Max:   sorted[len(sorted)-1],
	}
}

func percentileOf(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := int((p / 100.0) * float64(len(sorted)-1))
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
