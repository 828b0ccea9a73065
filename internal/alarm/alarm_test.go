package alarm_test

import (
	"errors"
	"testing"
	"time"

	"github.com/PeterWatsonDavies/kea/internal/alarm"
	"github.com/PeterWatsonDavies/kea/internal/dhcp"
	"github.com/PeterWatsonDavies/kea/internal/perfmon"
)

func testKey(t *testing.T, subnet dhcp.SubnetID) *perfmon.DurationKey {
	t.Helper()
	key, err := perfmon.NewDurationKey(dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer,
		"socket_received", "buffer_read", subnet)
	if err != nil {
		t.Fatalf("failed to build key: %v", err)
	}
	return key
}

func TestNewAlarmValidation(t *testing.T) {
	key := testKey(t, 1)

	if _, err := alarm.NewAlarm(nil, time.Millisecond, time.Second); err == nil {
		t.Error("expected error for nil key")
	}
	if _, err := alarm.NewAlarm(key, 0, time.Second); err == nil {
		t.Error("expected error for zero low water")
	}
	if _, err := alarm.NewAlarm(key, time.Second, time.Second); err == nil {
		t.Error("expected error when high water does not exceed low water")
	}

	a, err := alarm.NewAlarm(key, 10*time.Millisecond, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.State() != alarm.StateClear {
		t.Errorf("expected new alarm clear, got %s", a.State())
	}
}

func TestAlarmTriggerReportAndClear(t *testing.T) {
	a, err := alarm.NewAlarm(testKey(t, 1), 10*time.Millisecond, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reportInterval := time.Minute

	// Below high water: nothing to report.
	if a.CheckSample(50*time.Millisecond, now, reportInterval) {
		t.Error("expected no report below high water")
	}

	// Crossing high water triggers and reports.
	now = now.Add(time.Second)
	if !a.CheckSample(150*time.Millisecond, now, reportInterval) {
		t.Error("expected report on clear-to-triggered transition")
	}
	if a.State() != alarm.StateTriggered {
		t.Errorf("expected triggered state, got %s", a.State())
	}

	// Still high, but inside the report interval: suppressed.
	now = now.Add(30 * time.Second)
	if a.CheckSample(150*time.Millisecond, now, reportInterval) {
		t.Error("expected re-report suppressed inside the report interval")
	}

	// Past the report interval: re-report.
	now = now.Add(2 * time.Minute)
	if !a.CheckSample(150*time.Millisecond, now, reportInterval) {
		t.Error("expected re-report after the report interval elapsed")
	}

	// Between the water marks: triggered but silent.
	now = now.Add(time.Second)
	if a.CheckSample(50*time.Millisecond, now, reportInterval) {
		t.Error("expected no report between the water marks")
	}
	if a.State() != alarm.StateTriggered {
		t.Errorf("expected alarm still triggered, got %s", a.State())
	}

	// At or below low water: clears and reports.
	now = now.Add(time.Second)
	if !a.CheckSample(10*time.Millisecond, now, reportInterval) {
		t.Error("expected report on triggered-to-clear transition")
	}
	if a.State() != alarm.StateClear {
		t.Errorf("expected clear state, got %s", a.State())
	}
}

func TestAlarmDisabled(t *testing.T) {
	a, err := alarm.NewAlarm(testKey(t, 1), 10*time.Millisecond, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Now()

	a.Disable(now)
	if a.CheckSample(time.Hour, now, time.Minute) {
		t.Error("expected disabled alarm to ignore samples")
	}

	a.Reset(now)
	if a.State() != alarm.StateClear {
		t.Errorf("expected reset alarm clear, got %s", a.State())
	}
	if !a.CheckSample(time.Hour, now, time.Minute) {
		t.Error("expected reset alarm to trigger again")
	}
}

func TestAlarmStoreRoundTrip(t *testing.T) {
	store := alarm.NewStore()

	for _, subnet := range []dhcp.SubnetID{3, 1, 2} {
		a, err := alarm.NewAlarm(testKey(t, subnet), 10*time.Millisecond, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := store.Add(a); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 alarms, got %d", len(all))
	}
	for i, want := range []dhcp.SubnetID{1, 2, 3} {
		if got := all[i].Key().SubnetID(); got != want {
			t.Errorf("expected alarm %d for subnet %d, got %d", i, want, got)
		}
	}

	// Duplicate add rejected.
	dup, err := alarm.NewAlarm(testKey(t, 1), 10*time.Millisecond, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Add(dup); !errors.Is(err, perfmon.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Update persists caller-side state changes.
	got, err := store.Get(testKey(t, 2))
	if err != nil || got == nil {
		t.Fatalf("Get failed: %v", err)
	}
	got.Disable(time.Now())
	if err := store.Update(got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ = store.Get(testKey(t, 2))
	if got.State() != alarm.StateDisabled {
		t.Errorf("expected disabled after update, got %s", got.State())
	}

	// Delete then absent.
	held, _ := store.Get(testKey(t, 2))
	if err := store.Delete(testKey(t, 2)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, _ = store.Get(testKey(t, 2))
	if got != nil {
		t.Error("expected alarm absent after delete")
	}

	// A copy held across the delete can no longer be written back.
	if err := store.Update(held); !errors.Is(err, perfmon.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating a deleted alarm, got %v", err)
	}

	store.Clear()
	if store.Count() != 0 {
		t.Error("expected empty store after Clear")
	}
}

func TestAlarmStoreCopyOut(t *testing.T) {
	store := alarm.NewStore()
	a, err := alarm.NewAlarm(testKey(t, 1), 10*time.Millisecond, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Add(a); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, _ := store.Get(testKey(t, 1))
	got.Disable(time.Now())

	stored, _ := store.Get(testKey(t, 1))
	if stored.State() != alarm.StateClear {
		t.Error("expected store unaffected by mutating a returned copy")
	}

	if err := store.Update(nil); err == nil {
		t.Error("expected error updating nil alarm")
	}
}
