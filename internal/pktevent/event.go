// Package pktevent tracks the timestamped processing milestones of a single
// protocol exchange. Durations between pairs of named events are the samples
// the monitor aggregates.
package pktevent

import (
	"fmt"
	"time"
)

// Canonical event labels instrumented by the packet-processing path.
const (
	SocketReceived   = "socket_received"
	BufferRead       = "buffer_read"
	ProcessStarted   = "process_started"
	ProcessCompleted = "process_completed"
)

// Event is one named instrumentation point and when it occurred.
type Event struct {
	Label string
	At    time.Time
}

// Clock supplies the current time. Production code uses SystemClock; tests
// substitute a ManualClock to drive interval rollover deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a settable clock for tests.
type ManualClock struct {
	current time.Time
}

// NewManualClock starts a manual clock at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{current: start}
}

func (c *ManualClock) Now() time.Time { return c.current }

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.current = c.current.Add(d)
	return c.current
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) { c.current = t }

// ElapsedBetween returns the duration between the first occurrence of the
// start-labeled event and the first occurrence of the end-labeled event.
func ElapsedBetween(events []Event, startLabel, endLabel string) (time.Duration, error) {
	start, err := find(events, startLabel)
	if err != nil {
		return 0, err
	}
	end, err := find(events, endLabel)
	if err != nil {
		return 0, err
	}
	elapsed := end.At.Sub(start.At)
	if elapsed < 0 {
		return 0, fmt.Errorf("event %q precedes event %q", endLabel, startLabel)
	}
	return elapsed, nil
}

func find(events []Event, label string) (Event, error) {
	for _, ev := range events {
		if ev.Label == label {
			return ev, nil
		}
	}
	return Event{}, fmt.Errorf("event %q not found", label)
}
