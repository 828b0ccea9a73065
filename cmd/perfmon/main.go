package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/PeterWatsonDavies/kea/internal/config"
	"github.com/PeterWatsonDavies/kea/internal/monitor"
	"github.com/PeterWatsonDavies/kea/internal/output"
	"github.com/PeterWatsonDavies/kea/internal/replay"
	"github.com/PeterWatsonDavies/kea/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Replay.EventLog == "" {
		return fmt.Errorf("an event log is required (--event-log)")
	}

	runID := output.NewRunID()
	summary := output.NewSummary()

	var sink io.Writer = os.Stdout
	if cfg.ReportFile != "" {
		fileSink, err := output.NewFileSink(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer fileSink.Close()
		sink = fileSink
	}
	reporter := output.NewWriter(sink, cfg.JSONOutput, runID, summary)

	mon, err := monitor.New(cfg, nil, reporter)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: tracing shutdown: %v\n", err)
		}
	}()

	ctx, span := tracing.StartRunSpan(ctx, provider.Tracer(), runID, cfg.Replay.EventLog)

	eventLog, err := os.Open(cfg.Replay.EventLog)
	if err != nil {
		tracing.EndSpan(span, err)
		return fmt.Errorf("opening event log: %w", err)
	}
	defer eventLog.Close()

	player := replay.New(mon, cfg.Replay.Rate)
	result, runErr := player.Run(ctx, eventLog)
	tracing.EndSpan(span, runErr,
		attribute.Int("perfmon.exchanges_processed", result.Processed),
		attribute.Int("perfmon.exchanges_skipped", result.Skipped),
	)

	fmt.Fprintf(os.Stderr, "run %s: %d exchanges processed, %d skipped\n",
		runID, result.Processed, result.Skipped)
	summary.Write(os.Stderr)

	return runErr
}
