package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
}

func TestLatencyTrackerWindowOverwritesOldest(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
	summary := tracker.Summary()
	if summary.Max != 10*time.Millisecond {
		t.Fatalf("expected max 10ms, got %v", summary.Max)
	}
	if tracker.Percentile(0) != 8*time.Millisecond {
		t.Fatalf("expected oldest retained sample 8ms, got %v", tracker.Percentile(0))
	}
}

func TestLatencyTrackerEmptySummary(t *testing.T) {
	if got := NewLatencyTracker(4).Summary(); got.Samples != 0 || got.P95 != 0 {
		t.Fatalf("expected empty summary, got %+v", got)
	}
}
