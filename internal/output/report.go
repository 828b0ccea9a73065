// Package output renders completed intervals and alarm events for operators:
// plain text or JSON lines per report, plus a run-level latency summary.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/PeterWatsonDavies/kea/internal/monitor"
)

// NewRunID returns a fresh ULID identifying one monitoring run. Reports
// carry it so interleaved runs writing to the same file stay separable.
func NewRunID() string {
	return ulid.Make().String()
}

// IntervalRecord is the JSON shape of one completed interval.
type IntervalRecord struct {
	RunID         string    `json:"run_id"`
	Kind          string    `json:"kind"`
	Label         string    `json:"label"`
	SubnetID      uint32    `json:"subnet_id"`
	IntervalStart time.Time `json:"interval_start"`
	IntervalEnd   time.Time `json:"interval_end"`
	Occurrences   uint64    `json:"occurrences"`
	MinMs         float64   `json:"min_ms"`
	MaxMs         float64   `json:"max_ms"`
	AvgMs         float64   `json:"avg_ms"`
	TotalMs       float64   `json:"total_ms"`
}

// AlarmRecord is the JSON shape of one alarm event.
type AlarmRecord struct {
	RunID       string  `json:"run_id"`
	Kind        string  `json:"kind"`
	Label       string  `json:"label"`
	State       string  `json:"state"`
	AvgMs       float64 `json:"avg_ms"`
	LowWaterMs  float64 `json:"low_water_ms"`
	HighWaterMs float64 `json:"high_water_ms"`
}

// Writer renders monitor reports to an io.Writer and folds them into the
// run summary. It implements monitor.Reporter and is safe for concurrent
// use.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	json    bool
	runID   string
	summary *Summary
}

// NewWriter creates a reporter writing to w. summary may be nil.
func NewWriter(w io.Writer, jsonOutput bool, runID string, summary *Summary) *Writer {
	return &Writer{
		w:       w,
		json:    jsonOutput,
		runID:   runID,
		summary: summary,
	}
}

// ReportInterval renders one sealed interval.
func (wr *Writer) ReportInterval(report monitor.IntervalReport) {
	avg := report.Interval.AverageDuration()
	if wr.summary != nil {
		wr.summary.RecordInterval(avg)
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()
	if wr.json {
		rec := IntervalRecord{
			RunID:         wr.runID,
			Kind:          "interval",
			Label:         report.Key.Label(),
			SubnetID:      uint32(report.Key.SubnetID()),
			IntervalStart: report.Interval.StartTime(),
			IntervalEnd:   report.Interval.StartTime().Add(report.IntervalWidth),
			Occurrences:   report.Interval.Occurrences(),
			MinMs:         toMs(report.Interval.MinDuration()),
			MaxMs:         toMs(report.Interval.MaxDuration()),
			AvgMs:         toMs(avg),
			TotalMs:       toMs(report.Interval.TotalDuration()),
		}
		wr.writeJSON(rec)
		return
	}
	fmt.Fprintf(wr.w, "[%s] %s occurrences=%d min=%s max=%s avg=%s total=%s\n",
		report.Interval.StartTime().Format(time.RFC3339),
		report.Key.Label(),
		report.Interval.Occurrences(),
		report.Interval.MinDuration(),
		report.Interval.MaxDuration(),
		avg,
		report.Interval.TotalDuration())
}

// ReportAlarm renders one alarm event.
func (wr *Writer) ReportAlarm(event monitor.AlarmEvent) {
	if wr.summary != nil {
		wr.summary.RecordAlarm()
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()
	if wr.json {
		rec := AlarmRecord{
			RunID:       wr.runID,
			Kind:        "alarm",
			Label:       event.Alarm.Key().Label(),
			State:       event.Alarm.State().String(),
			AvgMs:       toMs(event.Average),
			LowWaterMs:  toMs(event.Alarm.LowWater()),
			HighWaterMs: toMs(event.Alarm.HighWater()),
		}
		wr.writeJSON(rec)
		return
	}
	fmt.Fprintf(wr.w, "ALARM %s %s avg=%s low=%s high=%s\n",
		event.Alarm.Key().Label(),
		event.Alarm.State(),
		event.Average,
		event.Alarm.LowWater(),
		event.Alarm.HighWater())
}

func (wr *Writer) writeJSON(rec interface{}) {
	data, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(wr.w, "{\"error\":%q}\n", err.Error())
		return
	}
	wr.w.Write(data)
	io.WriteString(wr.w, "\n")
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var _ monitor.Reporter = (*Writer)(nil)
