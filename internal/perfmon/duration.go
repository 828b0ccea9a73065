package perfmon

import (
	"time"

	"github.com/PeterWatsonDavies/kea/internal/dhcp"
)

// MonitoredDuration aggregates samples for one DurationKey across rolling
// fixed-length windows. It is EMPTY until the first sample opens the current
// interval; after that it ACCUMULATES until a sample arrives past the window
// end, at which point the current interval is sealed as previous and a fresh
// one begins.
type MonitoredDuration struct {
	key              DurationKey
	intervalDuration time.Duration
	current          *DurationDataInterval
	previous         *DurationDataInterval
}

// NewMonitoredDuration builds the key from raw fields and validates it along
// with the interval width.
func NewMonitoredDuration(family dhcp.Family, queryType, responseType dhcp.MsgType,
	startEvent, endEvent string, subnetID dhcp.SubnetID,
	intervalDuration time.Duration) (*MonitoredDuration, error) {
	key, err := NewDurationKey(family, queryType, responseType, startEvent, endEvent, subnetID)
	if err != nil {
		return nil, err
	}
	return NewMonitoredDurationForKey(key, intervalDuration)
}

// NewMonitoredDurationForKey wraps an already validated key.
func NewMonitoredDurationForKey(key *DurationKey, intervalDuration time.Duration) (*MonitoredDuration, error) {
	if key == nil {
		return nil, validationErrorf("MonitoredDuration: key is empty")
	}
	if intervalDuration <= 0 {
		return nil, validationErrorf(
			"MonitoredDuration: interval duration %s is invalid, it must be greater than 0",
			intervalDuration)
	}
	return &MonitoredDuration{
		key:              *key,
		intervalDuration: intervalDuration,
	}, nil
}

// Key returns a copy of the identity key.
func (m *MonitoredDuration) Key() *DurationKey {
	key := m.key
	return &key
}

func (m *MonitoredDuration) Label() string { return m.key.Label() }

func (m *MonitoredDuration) IntervalDuration() time.Duration { return m.intervalDuration }

// CurrentInterval returns the in-progress interval, or nil before the first
// sample.
func (m *MonitoredDuration) CurrentInterval() *DurationDataInterval { return m.current }

// PreviousInterval returns the last completed interval, or nil before the
// first rollover.
func (m *MonitoredDuration) PreviousInterval() *DurationDataInterval { return m.previous }

// AddSample feeds one elapsed-time sample observed at now. It returns true
// when the sample caused a rollover, i.e. PreviousInterval now holds a
// just-completed aggregate ready for reporting.
func (m *MonitoredDuration) AddSample(now time.Time, sample time.Duration) bool {
	doReport := false
	if m.current == nil {
		m.current = NewDurationDataInterval(now)
	} else if now.Sub(m.current.StartTime()) > m.intervalDuration {
		m.previous = m.current
		m.current = NewDurationDataInterval(now)
		doReport = true
	}

	m.current.AddDuration(sample)
	return doReport
}

// ExpiresAt returns the instant the current interval stops accepting
// samples, or the zero time when no interval is open.
func (m *MonitoredDuration) ExpiresAt() time.Time {
	if m.current == nil {
		return time.Time{}
	}
	return m.current.StartTime().Add(m.intervalDuration)
}

// IsIdle reports whether no sample has arrived since the current interval
// expired, or ever.
func (m *MonitoredDuration) IsIdle(now time.Time) bool {
	if m.current == nil {
		return true
	}
	return now.After(m.ExpiresAt())
}

// Clear discards both intervals, returning to the empty state.
func (m *MonitoredDuration) Clear() {
	m.current = nil
	m.previous = nil
}

// Copy returns a deep copy sharing no state with the receiver.
func (m *MonitoredDuration) Copy() *MonitoredDuration {
	dup := &MonitoredDuration{
		key:              m.key,
		intervalDuration: m.intervalDuration,
	}
	if m.current != nil {
		dup.current = m.current.copy()
	}
	if m.previous != nil {
		dup.previous = m.previous.copy()
	}
	return dup
}
