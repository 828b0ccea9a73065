package replay_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PeterWatsonDavies/kea/internal/config"
	"github.com/PeterWatsonDavies/kea/internal/dhcp"
	"github.com/PeterWatsonDavies/kea/internal/monitor"
	"github.com/PeterWatsonDavies/kea/internal/pktevent"
	"github.com/PeterWatsonDavies/kea/internal/replay"
)

const sampleLine = `{"family":"v4","query_type":"DHCPDISCOVER","response_type":"DHCPOFFER","subnet_id":5,"events":[{"label":"socket_received","at":"2026-03-01T12:00:00Z"},{"label":"buffer_read","at":"2026-03-01T12:00:00.010Z"}]}`

func replayConfig() *config.Config {
	return &config.Config{
		EnableMonitoring:    true,
		IntervalWidth:       time.Minute,
		AlarmReportInterval: config.DefaultAlarmReportInterval,
		MonitoredPairs: []config.DurationPair{
			{
				Family:       "v4",
				QueryType:    "DHCPDISCOVER",
				ResponseType: "DHCPOFFER",
				StartEvent:   pktevent.SocketReceived,
				EndEvent:     pktevent.BufferRead,
			},
		},
	}
}

func TestParseExchange(t *testing.T) {
	exchange, err := replay.ParseExchange([]byte(sampleLine))
	if err != nil {
		t.Fatalf("ParseExchange failed: %v", err)
	}

	if exchange.Family != dhcp.FamilyV4 {
		t.Errorf("expected v4, got %s", exchange.Family)
	}
	if exchange.QueryType != dhcp.V4Discover || exchange.ResponseType != dhcp.V4Offer {
		t.Error("expected message names resolved to codes")
	}
	if exchange.SubnetID != 5 {
		t.Errorf("expected subnet 5, got %d", exchange.SubnetID)
	}
	if len(exchange.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(exchange.Events))
	}
	elapsed := exchange.Events[1].At.Sub(exchange.Events[0].At)
	if elapsed != 10*time.Millisecond {
		t.Errorf("expected 10ms between events, got %s", elapsed)
	}
}

func TestParseExchangeErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"invalid json", `{not json`},
		{"missing family", `{"events":[{"label":"a","at":"2026-03-01T12:00:00Z"}]}`},
		{"bad query type", `{"family":"v4","query_type":"BOGUS","events":[{"label":"a","at":"2026-03-01T12:00:00Z"}]}`},
		{"bad timestamp", `{"family":"v4","events":[{"label":"a","at":"yesterday"}]}`},
		{"no events", `{"family":"v4"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := replay.ParseExchange([]byte(tc.line)); err == nil {
				t.Errorf("expected parse error for %q", tc.line)
			}
		})
	}
}

func TestPlayerRun(t *testing.T) {
	m, err := monitor.New(replayConfig(), pktevent.NewManualClock(time.Now()), nil)
	if err != nil {
		t.Fatalf("monitor.New failed: %v", err)
	}

	log := strings.Join([]string{sampleLine, "", "not json", sampleLine}, "\n")
	player := replay.New(m, 0)
	result, err := player.Run(context.Background(), strings.NewReader(log))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Processed != 2 {
		t.Errorf("expected 2 processed exchanges, got %d", result.Processed)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped line, got %d", result.Skipped)
	}

	// Subnet 5 entry plus the global roll-up.
	if got := m.Store(dhcp.FamilyV4).Count(); got != 2 {
		t.Errorf("expected 2 store entries, got %d", got)
	}
}

func TestPlayerRunCancelled(t *testing.T) {
	m, err := monitor.New(replayConfig(), pktevent.NewManualClock(time.Now()), nil)
	if err != nil {
		t.Fatalf("monitor.New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Paced replay has to wait on the limiter, which observes the context.
	player := replay.New(m, 1)
	log := strings.Repeat(sampleLine+"\n", 10)
	_, err = player.Run(ctx, strings.NewReader(log))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
