package pktevent_test

import (
	"testing"
	"time"

	"github.com/PeterWatsonDavies/kea/internal/pktevent"
)

func TestElapsedBetween(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []pktevent.Event{
		{Label: pktevent.SocketReceived, At: base},
		{Label: pktevent.BufferRead, At: base.Add(3 * time.Millisecond)},
		{Label: pktevent.ProcessCompleted, At: base.Add(10 * time.Millisecond)},
	}

	elapsed, err := pktevent.ElapsedBetween(events, pktevent.SocketReceived, pktevent.ProcessCompleted)
	if err != nil {
		t.Fatalf("ElapsedBetween failed: %v", err)
	}
	if elapsed != 10*time.Millisecond {
		t.Errorf("expected 10ms, got %s", elapsed)
	}
}

func TestElapsedBetweenMissingEvent(t *testing.T) {
	events := []pktevent.Event{{Label: pktevent.SocketReceived, At: time.Now()}}

	if _, err := pktevent.ElapsedBetween(events, pktevent.SocketReceived, pktevent.BufferRead); err == nil {
		t.Error("expected error for missing end event")
	}
	if _, err := pktevent.ElapsedBetween(events, pktevent.BufferRead, pktevent.SocketReceived); err == nil {
		t.Error("expected error for missing start event")
	}
}

func TestElapsedBetweenNegative(t *testing.T) {
	base := time.Now()
	events := []pktevent.Event{
		{Label: pktevent.BufferRead, At: base},
		{Label: pktevent.SocketReceived, At: base.Add(time.Millisecond)},
	}

	if _, err := pktevent.ElapsedBetween(events, pktevent.SocketReceived, pktevent.BufferRead); err == nil {
		t.Error("expected error when the end event precedes the start event")
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := pktevent.NewManualClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("expected %s, got %s", start, clock.Now())
	}
	clock.Advance(time.Minute)
	if !clock.Now().Equal(start.Add(time.Minute)) {
		t.Errorf("expected clock advanced by 1m, got %s", clock.Now())
	}
	clock.Set(start)
	if !clock.Now().Equal(start) {
		t.Errorf("expected clock reset, got %s", clock.Now())
	}
}
