// Package replay feeds a recorded exchange log through the monitor. The log
// is JSON lines: one exchange per line carrying its classification and the
// timestamped events observed while it was processed.
package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/PeterWatsonDavies/kea/internal/config"
	"github.com/PeterWatsonDavies/kea/internal/dhcp"
	"github.com/PeterWatsonDavies/kea/internal/monitor"
	"github.com/PeterWatsonDavies/kea/internal/pktevent"
)

// Exchange is one classified protocol exchange from the log.
type Exchange struct {
	Family       dhcp.Family
	QueryType    dhcp.MsgType
	ResponseType dhcp.MsgType
	SubnetID     dhcp.SubnetID
	Events       []pktevent.Event
}

// Result summarizes one replay pass.
type Result struct {
	Processed int
	Skipped   int
}

// Player pushes logged exchanges into a monitor, optionally paced.
type Player struct {
	mon           *monitor.Monitor
	ratePerSecond int
}

// New creates a player. ratePerSecond of 0 replays as fast as possible.
func New(mon *monitor.Monitor, ratePerSecond int) *Player {
	return &Player{mon: mon, ratePerSecond: ratePerSecond}
}

// Run replays every line of r until EOF or context cancellation. Lines that
// fail to parse or process are counted as skipped; the replay keeps going.
func (p *Player) Run(ctx context.Context, r io.Reader) (Result, error) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if p.ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.ratePerSecond), p.ratePerSecond)
	}

	var result Result
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		exchange, err := ParseExchange(line)
		if err != nil {
			result.Skipped++
			continue
		}
		err = p.mon.ProcessEvents(exchange.Family, exchange.QueryType,
			exchange.ResponseType, exchange.SubnetID, exchange.Events)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Processed++
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("reading event log: %w", err)
	}
	return result, nil
}

// ParseExchange decodes one log line, e.g.
//
//	{"family":"v4","query_type":"DHCPDISCOVER","response_type":"DHCPOFFER",
//	 "subnet_id":5,"events":[{"label":"socket_received","at":"2026-03-01T12:00:00Z"}]}
func ParseExchange(line []byte) (Exchange, error) {
	if !gjson.ValidBytes(line) {
		return Exchange{}, fmt.Errorf("invalid JSON")
	}

	family, err := config.ParseFamily(gjson.GetBytes(line, "family").String())
	if err != nil {
		return Exchange{}, err
	}

	exchange := Exchange{
		Family:   family,
		SubnetID: dhcp.SubnetID(gjson.GetBytes(line, "subnet_id").Uint()),
	}

	if name := gjson.GetBytes(line, "query_type").String(); name != "" {
		exchange.QueryType, err = dhcp.ParseMsgType(family, name)
		if err != nil {
			return Exchange{}, err
		}
	}
	if name := gjson.GetBytes(line, "response_type").String(); name != "" {
		exchange.ResponseType, err = dhcp.ParseMsgType(family, name)
		if err != nil {
			return Exchange{}, err
		}
	}

	var parseErr error
	gjson.GetBytes(line, "events").ForEach(func(_, value gjson.Result) bool {
		at, err := time.Parse(time.RFC3339Nano, value.Get("at").String())
		if err != nil {
			parseErr = fmt.Errorf("event timestamp: %w", err)
			return false
		}
		exchange.Events = append(exchange.Events, pktevent.Event{
			Label: value.Get("label").String(),
			At:    at,
		})
		return true
	})
	if parseErr != nil {
		return Exchange{}, parseErr
	}
	if len(exchange.Events) == 0 {
		return Exchange{}, fmt.Errorf("exchange has no events")
	}
	return exchange, nil
}
