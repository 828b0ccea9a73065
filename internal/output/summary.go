package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Summary aggregates the averages of every reported interval across a run
// into a histogram, so the tail of the per-interval latency distribution is
// visible at the end.
type Summary struct {
	mu        sync.Mutex
	hist      *hdrhistogram.Histogram
	intervals int64
	alarms    int64
	start     time.Time
}

// NewSummary creates an empty run summary.
func NewSummary() *Summary {
	// Track interval averages from 1µs up to 60s with 3 significant figures.
	return &Summary{
		hist:  hdrhistogram.New(1, 60_000_000, 3),
		start: time.Now(),
	}
}

// RecordInterval folds one reported interval average into the summary.
func (s *Summary) RecordInterval(average time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals++

	us := average.Microseconds()
	if us < s.hist.LowestTrackableValue() {
		us = s.hist.LowestTrackableValue()
	}
	if us > s.hist.HighestTrackableValue() {
		us = s.hist.HighestTrackableValue()
	}
	_ = s.hist.RecordValue(us)
}

// RecordAlarm counts one alarm event.
func (s *Summary) RecordAlarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarms++
}

// Stats is the aggregated view of a run.
type Stats struct {
	Intervals int64
	Alarms    int64
	P50       time.Duration
	P90       time.Duration
	P99       time.Duration
}

// Stats computes the current aggregate.
func (s *Summary) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Intervals: s.intervals,
		Alarms:    s.alarms,
	}
	if s.hist.TotalCount() > 0 {
		stats.P50 = time.Duration(s.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90 = time.Duration(s.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99 = time.Duration(s.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	return stats
}

// Write renders the summary as text.
func (s *Summary) Write(w io.Writer) {
	stats := s.Stats()
	fmt.Fprintf(w, "intervals reported: %d\n", stats.Intervals)
	fmt.Fprintf(w, "alarm events:       %d\n", stats.Alarms)
	if stats.Intervals > 0 {
		fmt.Fprintf(w, "interval avg p50:   %s\n", stats.P50)
		fmt.Fprintf(w, "interval avg p90:   %s\n", stats.P90)
		fmt.Fprintf(w, "interval avg p99:   %s\n", stats.P99)
	}
}
