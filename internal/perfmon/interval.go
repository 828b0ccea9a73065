package perfmon

import (
	"math"
	"time"
)

// Sentinel bounds for an interval that has seen no samples yet. The first
// sample replaces both.
const (
	emptyMin = time.Duration(math.MaxInt64)
	emptyMax = time.Duration(math.MinInt64)
)

// DurationDataInterval aggregates the samples observed during one fixed
// window: occurrence count, minimum, maximum, and running total. Once an
// interval leaves the store it is never mutated again; rollover replaces
// whole intervals rather than editing shared ones.
type DurationDataInterval struct {
	startTime   time.Time
	occurrences uint64
	minDuration time.Duration
	maxDuration time.Duration
	total       time.Duration
}

// NewDurationDataInterval opens an empty interval starting at start.
func NewDurationDataInterval(start time.Time) *DurationDataInterval {
	return &DurationDataInterval{
		startTime:   start,
		minDuration: emptyMin,
		maxDuration: emptyMax,
	}
}

func (i *DurationDataInterval) StartTime() time.Time { return i.startTime }

func (i *DurationDataInterval) Occurrences() uint64 { return i.occurrences }

// MinDuration returns the smallest sample seen, or the +inf sentinel while
// the interval is empty.
func (i *DurationDataInterval) MinDuration() time.Duration { return i.minDuration }

// MaxDuration returns the largest sample seen, or the -inf sentinel while
// the interval is empty.
func (i *DurationDataInterval) MaxDuration() time.Duration { return i.maxDuration }

func (i *DurationDataInterval) TotalDuration() time.Duration { return i.total }

// AddDuration folds one sample into the aggregate.
func (i *DurationDataInterval) AddDuration(d time.Duration) {
	i.occurrences++
	if d < i.minDuration {
		i.minDuration = d
	}
	if d > i.maxDuration {
		i.maxDuration = d
	}
	i.total += d
}

// AverageDuration returns total/occurrences, or zero for an empty interval.
func (i *DurationDataInterval) AverageDuration() time.Duration {
	if i.occurrences == 0 {
		return 0
	}
	return i.total / time.Duration(i.occurrences)
}

func (i *DurationDataInterval) copy() *DurationDataInterval {
	dup := *i
	return &dup
}
