// Package monitor owns the per-family duration stores and drives the
// classify -> sample -> report cycle: it turns the timestamped events of one
// protocol exchange into samples for every configured event pair, and on
// interval rollover hands the sealed aggregate to the reporter, the alarm
// store, and the statistics registry.
package monitor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PeterWatsonDavies/kea/internal/alarm"
	"github.com/PeterWatsonDavies/kea/internal/config"
	"github.com/PeterWatsonDavies/kea/internal/dhcp"
	"github.com/PeterWatsonDavies/kea/internal/perfmon"
	"github.com/PeterWatsonDavies/kea/internal/pktevent"
	"github.com/PeterWatsonDavies/kea/internal/stats"
)

// IntervalReport carries one just-completed interval out of the monitor.
type IntervalReport struct {
	Key           *perfmon.DurationKey
	Interval      *perfmon.DurationDataInterval
	IntervalWidth time.Duration
}

// AlarmEvent signals an alarm state change or re-report.
type AlarmEvent struct {
	Alarm   *alarm.Alarm
	Average time.Duration
}

// Reporter consumes completed intervals and alarm events. Implementations
// must be safe for concurrent use; the monitor may report from any goroutine
// feeding it samples.
type Reporter interface {
	ReportInterval(report IntervalReport)
	ReportAlarm(event AlarmEvent)
}

// pairRule is one configured pair with its message types resolved to codes.
type pairRule struct {
	cfg          config.DurationPair
	family       dhcp.Family
	queryType    dhcp.MsgType
	responseType dhcp.MsgType
}

// matches reports whether an exchange contributes to this rule. A NOTYPE
// query or response in the rule acts as a wildcard.
func (r pairRule) matches(family dhcp.Family, queryType, responseType dhcp.MsgType) bool {
	if r.family != family {
		return false
	}
	if r.queryType != 0 && r.queryType != queryType {
		return false
	}
	if r.responseType != 0 && r.responseType != responseType {
		return false
	}
	return true
}

// Monitor aggregates elapsed-time samples for every configured event pair.
// The two family stores are independent; there is no cross-store
// coordination.
type Monitor struct {
	cfg   *config.Config
	clock pktevent.Clock
	// mu serializes the get-modify-update cycle in addSample. The stores
	// linearize individual operations, but a concurrent read-modify-write
	// on one key would still lose samples without it.
	mu       sync.Mutex
	v4       *perfmon.MonitoredDurationStore
	v6       *perfmon.MonitoredDurationStore
	alarms   *alarm.Store
	registry *stats.Registry
	reporter Reporter
	rules    []pairRule
}

// New builds a monitor from a validated configuration. reporter may be nil
// when the caller only wants the stores and statistics. clock may be nil to
// use the system clock.
func New(cfg *config.Config, clock pktevent.Clock, reporter Reporter) (*Monitor, error) {
	if cfg == nil {
		return nil, perfmon.NewValidationError("monitor: config is empty")
	}
	if clock == nil {
		clock = pktevent.SystemClock{}
	}

	v4, err := perfmon.NewMonitoredDurationStore(dhcp.FamilyV4, cfg.IntervalWidth)
	if err != nil {
		return nil, err
	}
	v6, err := perfmon.NewMonitoredDurationStore(dhcp.FamilyV6, cfg.IntervalWidth)
	if err != nil {
		return nil, err
	}

	rules := make([]pairRule, 0, len(cfg.MonitoredPairs))
	for i, pair := range cfg.MonitoredPairs {
		rule, err := resolveRule(pair)
		if err != nil {
			return nil, fmt.Errorf("monitored_pairs[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}

	return &Monitor{
		cfg:      cfg,
		clock:    clock,
		v4:       v4,
		v6:       v6,
		alarms:   alarm.NewStore(),
		registry: stats.NewRegistry(cfg.StatsRetention),
		reporter: reporter,
		rules:    rules,
	}, nil
}

func resolveRule(pair config.DurationPair) (pairRule, error) {
	family, err := config.ParseFamily(pair.Family)
	if err != nil {
		return pairRule{}, err
	}
	// Validate the pairing once up front by building a throwaway key.
	key, err := pair.Key(dhcp.GlobalSubnetID)
	if err != nil {
		return pairRule{}, err
	}
	return pairRule{
		cfg:          pair,
		family:       family,
		queryType:    key.QueryType(),
		responseType: key.ResponseType(),
	}, nil
}

// Store returns the duration store for family.
func (m *Monitor) Store(family dhcp.Family) *perfmon.MonitoredDurationStore {
	if family == dhcp.FamilyV6 {
		return m.v6
	}
	return m.v4
}

// Alarms returns the alarm store.
func (m *Monitor) Alarms() *alarm.Store { return m.alarms }

// Stats returns the statistics registry.
func (m *Monitor) Stats() *stats.Registry { return m.registry }

// ProcessEvents feeds one classified exchange into every matching rule. The
// exchange contributes a sample at the subnet scope and at the global
// (subnet 0) roll-up scope. Rules whose event labels are missing from the
// exchange are skipped; other errors abort processing.
func (m *Monitor) ProcessEvents(family dhcp.Family, queryType, responseType dhcp.MsgType,
	subnetID dhcp.SubnetID, events []pktevent.Event) error {
	if !m.cfg.EnableMonitoring {
		return nil
	}
	if !family.Valid() {
		return perfmon.NewValidationError("monitor: family must be v4 or v6, got %s", family)
	}

	store := m.Store(family)
	for _, rule := range m.rules {
		if !rule.matches(family, queryType, responseType) {
			continue
		}
		elapsed, err := pktevent.ElapsedBetween(events, rule.cfg.StartEvent, rule.cfg.EndEvent)
		if err != nil {
			// The exchange did not pass through both instrumented
			// points; nothing to sample for this rule.
			continue
		}

		scopes := []dhcp.SubnetID{subnetID}
		if subnetID != dhcp.GlobalSubnetID {
			scopes = append(scopes, dhcp.GlobalSubnetID)
		}
		for _, scope := range scopes {
			key, err := rule.cfg.Key(scope)
			if err != nil {
				return err
			}
			if err := m.addSample(store, rule, key, elapsed); err != nil {
				return err
			}
		}
	}
	return nil
}

// addSample routes one sample into the store, persisting the mutated entry
// and reporting on rollover.
func (m *Monitor) addSample(store *perfmon.MonitoredDurationStore, rule pairRule,
	key *perfmon.DurationKey, elapsed time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()

	mond, err := store.GetDuration(key)
	if err != nil {
		return err
	}
	if mond == nil {
		_, err := store.AddDuration(key, elapsed, now)
		if err == nil || !errors.Is(err, perfmon.ErrDuplicateKey) {
			return err
		}
		// A caller outside this monitor inserted the entry between our
		// get and add; fall through to the update path.
		mond, err = store.GetDuration(key)
		if err != nil || mond == nil {
			return err
		}
	}

	doReport := mond.AddSample(now, elapsed)
	if err := store.UpdateDuration(mond); err != nil {
		return err
	}
	if doReport {
		m.report(rule, key, mond.PreviousInterval(), now)
	}
	return nil
}

// report publishes a sealed interval: reporter first, then statistics, then
// the alarm evaluation.
func (m *Monitor) report(rule pairRule, key *perfmon.DurationKey,
	interval *perfmon.DurationDataInterval, now time.Time) {
	if interval == nil {
		return
	}

	if m.reporter != nil {
		m.reporter.ReportInterval(IntervalReport{
			Key:           key,
			Interval:      interval,
			IntervalWidth: m.cfg.IntervalWidth,
		})
	}

	average := interval.AverageDuration()
	m.registry.SetDuration(StatName(key, "average"), average, now)
	m.registry.AddInteger(StatName(key, "occurrences"), int64(interval.Occurrences()), now)

	if m.cfg.AlarmsEnabled && rule.cfg.AlarmEnabled {
		m.checkAlarm(rule, key, average, now)
	}
}

func (m *Monitor) checkAlarm(rule pairRule, key *perfmon.DurationKey,
	average time.Duration, now time.Time) {
	a, err := m.alarms.Get(key)
	if err != nil {
		return
	}
	if a == nil {
		a, err = alarm.NewAlarm(key, rule.cfg.LowWater, rule.cfg.HighWater)
		if err != nil {
			return
		}
		if _, err := m.alarms.Add(a); err != nil && !errors.Is(err, perfmon.ErrDuplicateKey) {
			return
		}
		a, err = m.alarms.Get(key)
		if err != nil || a == nil {
			return
		}
	}

	shouldReport := a.CheckSample(average, now, m.cfg.AlarmReportInterval)
	if err := m.alarms.Update(a); err != nil {
		// The alarm was deleted between our get and update. The state
		// transition goes with it; do not report from a dropped alarm.
		return
	}
	if shouldReport && m.reporter != nil {
		m.reporter.ReportAlarm(AlarmEvent{Alarm: a, Average: average})
	}
}

// Clear empties both duration stores, the alarms, and the statistics.
func (m *Monitor) Clear() {
	m.v4.Clear()
	m.v6.Clear()
	m.alarms.Clear()
	m.registry.RemoveAll()
}

// StatName builds the registry name for one key's statistic, e.g.
// "perfmon.DHCPDISCOVER-DHCPOFFER.socket_received-buffer_read.1.average".
func StatName(key *perfmon.DurationKey, suffix string) string {
	var sb strings.Builder
	sb.WriteString("perfmon.")
	sb.WriteString(key.Label())
	sb.WriteString(".")
	sb.WriteString(suffix)
	return sb.String()
}
