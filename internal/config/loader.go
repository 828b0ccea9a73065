package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader merges a JSON/YAML configuration file with command-line flags.
// Flags win over file settings, file settings win over defaults.
type Loader struct{}

// ErrHelpRequested is returned when the user asks for usage output.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// RegisterFlags registers all CLI flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "perfmon",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Monitoring flags
	flags.Bool("enable-monitoring", true, "Collect duration samples")
	flags.DurationP("interval-width", "i", DefaultIntervalWidth, "Aggregation interval width (e.g. 30s, 1m)")
	flags.String("pairs-file", "", "Path to a YAML document listing the monitored event pairs")

	// Alarm flags
	flags.Bool("enable-alarms", false, "Evaluate alarm thresholds on completed intervals")
	flags.Duration("alarm-report-interval", DefaultAlarmReportInterval, "Minimum spacing between repeated alarm reports")

	// Stats flags
	flags.Int("stats-retention", 0, "Samples retained per published statistic (0 uses the default)")

	// Replay flags
	flags.String("event-log", "", "Path to a JSON-lines exchange log to replay")
	flags.IntP("rate", "r", 0, "Replayed exchanges per second (0 means unpaced)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted reports")
	flags.String("report-file", "", "Append interval reports to the specified file")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}

// Load parses args and any referenced configuration file into a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelpRequested
		}
		return nil, err
	}
	flags := cmd.Flags()

	cfg := &Config{
		EnableMonitoring:    true,
		IntervalWidth:       DefaultIntervalWidth,
		AlarmReportInterval: DefaultAlarmReportInterval,
	}

	configPath, _ := flags.GetString("config")
	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfgViper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("decoding config file: %w", err)
		}
		cfg.ConfigFile = configPath
	}

	if err := applyFlagOverrides(cfg, flags); err != nil {
		return nil, err
	}

	if cfg.PairsFile != "" {
		pairs, err := LoadPairsFile(cfg.PairsFile)
		if err != nil {
			return nil, err
		}
		cfg.MonitoredPairs = append(cfg.MonitoredPairs, pairs...)
	}

	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags over file-derived settings.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	overrides := map[string]func() error{
		"enable-monitoring": func() error {
			v, err := flags.GetBool("enable-monitoring")
			cfg.EnableMonitoring = v
			return err
		},
		"interval-width": func() error {
			v, err := flags.GetDuration("interval-width")
			cfg.IntervalWidth = v
			return err
		},
		"pairs-file": func() error {
			v, err := flags.GetString("pairs-file")
			cfg.PairsFile = v
			return err
		},
		"enable-alarms": func() error {
			v, err := flags.GetBool("enable-alarms")
			cfg.AlarmsEnabled = v
			return err
		},
		"alarm-report-interval": func() error {
			v, err := flags.GetDuration("alarm-report-interval")
			cfg.AlarmReportInterval = v
			return err
		},
		"stats-retention": func() error {
			v, err := flags.GetInt("stats-retention")
			cfg.StatsRetention = v
			return err
		},
		"event-log": func() error {
			v, err := flags.GetString("event-log")
			cfg.Replay.EventLog = v
			return err
		},
		"rate": func() error {
			v, err := flags.GetInt("rate")
			cfg.Replay.Rate = v
			return err
		},
		"json-output": func() error {
			v, err := flags.GetBool("json-output")
			cfg.JSONOutput = v
			return err
		},
		"report-file": func() error {
			v, err := flags.GetString("report-file")
			cfg.ReportFile = v
			return err
		},
	}

	var applyErr error
	flags.Visit(func(f *pflag.Flag) {
		if applyErr != nil {
			return
		}
		if apply, ok := overrides[f.Name]; ok {
			applyErr = apply()
		}
	})
	return applyErr
}
