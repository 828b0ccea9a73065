// Package config models and loads the monitor's configuration: which event
// pairs to watch, the aggregation interval width, alarm thresholds, and the
// settings of the replay front end.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the fully merged configuration for a monitoring run.
type Config struct {
	// EnableMonitoring gates sample collection entirely.
	EnableMonitoring bool `mapstructure:"enable_monitoring"`
	// IntervalWidth is the aggregation window length for every store.
	IntervalWidth time.Duration `mapstructure:"interval_width"`

	AlarmsEnabled       bool          `mapstructure:"enable_alarms"`
	AlarmReportInterval time.Duration `mapstructure:"alarm_report_interval"`
	// StatsRetention is how many samples each published statistic keeps.
	StatsRetention int `mapstructure:"stats_retention"`

	// MonitoredPairs may come inline from the main config file or from a
	// separate YAML document named by PairsFile.
	MonitoredPairs []DurationPair `mapstructure:"monitored_pairs"`
	PairsFile      string         `mapstructure:"pairs_file"`

	Replay  ReplayConfig  `mapstructure:"replay"`
	Tracing TracingConfig `mapstructure:"tracing"`

	JSONOutput bool   `mapstructure:"json_output"`
	ReportFile string `mapstructure:"report_file"`
	ConfigFile string `mapstructure:"-"`
}

// DurationPair selects one event pair to monitor, with optional alarm
// thresholds. Message types are given by their canonical names; an empty
// name means NOTYPE.
type DurationPair struct {
	Family       string        `mapstructure:"family" yaml:"family"`
	QueryType    string        `mapstructure:"query_type" yaml:"query_type"`
	ResponseType string        `mapstructure:"response_type" yaml:"response_type"`
	StartEvent   string        `mapstructure:"start_event" yaml:"start_event"`
	EndEvent     string        `mapstructure:"end_event" yaml:"end_event"`
	AlarmEnabled bool          `mapstructure:"enable_alarm" yaml:"enable_alarm"`
	LowWater     time.Duration `mapstructure:"low_water" yaml:"low_water"`
	HighWater    time.Duration `mapstructure:"high_water" yaml:"high_water"`
}

// ReplayConfig controls the event-log replay front end.
type ReplayConfig struct {
	// EventLog is the path of a JSON-lines exchange log.
	EventLog string `mapstructure:"event_log"`
	// Rate throttles replayed exchanges per second; 0 means unpaced.
	Rate int `mapstructure:"rate"`
}

// TracingConfig mirrors the OTLP exporter settings of the replay run.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether an exporter endpoint was configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// Defaults applied before any file or flag is read.
const (
	DefaultIntervalWidth       = 60 * time.Second
	DefaultAlarmReportInterval = 5 * time.Minute
)

// ValidationError accumulates every problem found in a configuration so the
// operator can fix them in one pass.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	var issues []string

	if c.IntervalWidth < time.Second {
		issues = append(issues, fmt.Sprintf("interval_width must be at least 1s, got %s", c.IntervalWidth))
	}
	if c.AlarmReportInterval <= 0 {
		issues = append(issues, "alarm_report_interval must be greater than zero")
	}
	if c.StatsRetention < 0 {
		issues = append(issues, "stats_retention must be >= 0")
	}
	if c.Replay.Rate < 0 {
		issues = append(issues, "replay.rate must be >= 0")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing.sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	for i, pair := range c.MonitoredPairs {
		issues = append(issues, validatePairConfig(i, pair)...)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validatePairConfig(idx int, pair DurationPair) []string {
	var issues []string
	prefix := fmt.Sprintf("monitored_pairs[%d]", idx)

	switch strings.ToLower(pair.Family) {
	case "v4", "v6":
	default:
		issues = append(issues, fmt.Sprintf("%s: family must be v4 or v6, got %q", prefix, pair.Family))
	}
	if strings.TrimSpace(pair.StartEvent) == "" {
		issues = append(issues, fmt.Sprintf("%s: start_event is required", prefix))
	}
	if strings.TrimSpace(pair.EndEvent) == "" {
		issues = append(issues, fmt.Sprintf("%s: end_event is required", prefix))
	}
	if pair.AlarmEnabled {
		if pair.LowWater <= 0 {
			issues = append(issues, fmt.Sprintf("%s: low_water must be greater than zero when the alarm is enabled", prefix))
		}
		if pair.HighWater <= pair.LowWater {
			issues = append(issues, fmt.Sprintf("%s: high_water must be greater than low_water", prefix))
		}
	}
	return issues
}
