// Package alarm raises and clears report-threshold alarms over monitored
// durations. An alarm triggers when a completed interval's average crosses
// its high-water mark and clears once the average falls back to or below the
// low-water mark.
package alarm

import (
	"time"

	"github.com/PeterWatsonDavies/kea/internal/perfmon"
)

// State describes where an alarm is in its lifecycle.
type State int

const (
	// StateClear means the observed averages are within bounds.
	StateClear State = iota
	// StateTriggered means the high-water mark has been crossed and the
	// condition has not yet cleared.
	StateTriggered
	// StateDisabled means the alarm ignores samples entirely.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateClear:
		return "clear"
	case StateTriggered:
		return "triggered"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Alarm watches the reported averages for one duration key.
type Alarm struct {
	key            perfmon.DurationKey
	lowWater       time.Duration
	highWater      time.Duration
	state          State
	stateChangedAt time.Time
	lastReportedAt time.Time
}

// NewAlarm validates the water marks: both must be positive and the
// high-water mark strictly above the low-water mark.
func NewAlarm(key *perfmon.DurationKey, lowWater, highWater time.Duration) (*Alarm, error) {
	if key == nil {
		return nil, perfmon.NewValidationError("Alarm: key is empty")
	}
	if lowWater <= 0 {
		return nil, perfmon.NewValidationError(
			"Alarm: low water %s must be greater than zero", lowWater)
	}
	if highWater <= lowWater {
		return nil, perfmon.NewValidationError(
			"Alarm: high water %s must be greater than low water %s", highWater, lowWater)
	}
	return &Alarm{
		key:       *key,
		lowWater:  lowWater,
		highWater: highWater,
		state:     StateClear,
	}, nil
}

// Key returns a copy of the watched duration key.
func (a *Alarm) Key() *perfmon.DurationKey {
	key := a.key
	return &key
}

func (a *Alarm) LowWater() time.Duration  { return a.lowWater }
func (a *Alarm) HighWater() time.Duration { return a.highWater }
func (a *Alarm) State() State             { return a.state }

// StateChangedAt returns when the alarm last changed state.
func (a *Alarm) StateChangedAt() time.Time { return a.stateChangedAt }

// Disable stops the alarm from evaluating samples until Reset is called.
func (a *Alarm) Disable(now time.Time) {
	a.setState(StateDisabled, now)
}

// Reset returns a disabled or triggered alarm to the clear state.
func (a *Alarm) Reset(now time.Time) {
	a.setState(StateClear, now)
}

func (a *Alarm) setState(state State, now time.Time) {
	a.state = state
	a.stateChangedAt = now
	a.lastReportedAt = time.Time{}
}

// CheckSample evaluates one reported average at now. It returns true when
// the caller should emit an alarm report: on the clear-to-triggered
// transition, when a triggered alarm is due for a re-report (no more often
// than reportInterval), and on the triggered-to-clear transition.
func (a *Alarm) CheckSample(average time.Duration, now time.Time, reportInterval time.Duration) bool {
	if a.state == StateDisabled {
		return false
	}

	if average > a.highWater {
		if a.state == StateClear {
			a.setState(StateTriggered, now)
			a.lastReportedAt = now
			return true
		}
		if now.Sub(a.lastReportedAt) > reportInterval {
			a.lastReportedAt = now
			return true
		}
		return false
	}

	if a.state == StateTriggered && average <= a.lowWater {
		a.setState(StateClear, now)
		return true
	}
	return false
}

// Copy returns a deep copy of the alarm.
func (a *Alarm) Copy() *Alarm {
	dup := *a
	return &dup
}
