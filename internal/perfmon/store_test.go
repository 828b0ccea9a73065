package perfmon_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PeterWatsonDavies/kea/internal/dhcp"
	"github.com/PeterWatsonDavies/kea/internal/perfmon"
)

func mustStore(t *testing.T, family dhcp.Family) *perfmon.MonitoredDurationStore {
	t.Helper()
	store, err := perfmon.NewMonitoredDurationStore(family, time.Minute)
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store
}

func TestStoreInvalidConstruction(t *testing.T) {
	if _, err := perfmon.NewMonitoredDurationStore(dhcp.FamilyV4, 0); err == nil {
		t.Error("expected error for zero interval duration")
	}
	if _, err := perfmon.NewMonitoredDurationStore(dhcp.FamilyV4, -time.Second); err == nil {
		t.Error("expected error for negative interval duration")
	}
	if _, err := perfmon.NewMonitoredDurationStore(dhcp.Family(3), time.Minute); err == nil {
		t.Error("expected error for invalid family")
	}
}

func TestStoreAddAndGet(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	added, err := store.AddDuration(key, 25*time.Millisecond, now)
	if err != nil {
		t.Fatalf("AddDuration failed: %v", err)
	}
	if added.CurrentInterval() == nil || added.CurrentInterval().Occurrences() != 1 {
		t.Error("expected the initial sample applied to the new entry")
	}

	got, err := store.GetDuration(key)
	if err != nil {
		t.Fatalf("GetDuration failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored entry")
	}
	if got.CurrentInterval().TotalDuration() != 25*time.Millisecond {
		t.Errorf("expected total 25ms, got %s", got.CurrentInterval().TotalDuration())
	}
}

func TestStoreAddWithoutInitialSample(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", 1)

	added, err := store.AddDuration(key, 0, time.Now())
	if err != nil {
		t.Fatalf("AddDuration failed: %v", err)
	}
	if added.CurrentInterval() != nil {
		t.Error("expected no interval when the initial sample is zero")
	}
}

func TestStoreAddDuplicateKey(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", 1)
	now := time.Now()

	if _, err := store.AddDuration(key, 0, now); err != nil {
		t.Fatalf("first AddDuration failed: %v", err)
	}
	_, err := store.AddDuration(key, 0, now)
	if !errors.Is(err, perfmon.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if got := store.Count(); got != 1 {
		t.Errorf("expected store unchanged after duplicate add, got %d entries", got)
	}
}

func TestStoreRejectsNilKey(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	var verr *perfmon.ValidationError

	if _, err := store.AddDuration(nil, 0, time.Now()); !errors.As(err, &verr) {
		t.Errorf("AddDuration(nil): expected ValidationError, got %v", err)
	}
	if _, err := store.GetDuration(nil); !errors.As(err, &verr) {
		t.Errorf("GetDuration(nil): expected ValidationError, got %v", err)
	}
	if err := store.UpdateDuration(nil); !errors.As(err, &verr) {
		t.Errorf("UpdateDuration(nil): expected ValidationError, got %v", err)
	}
	if err := store.DeleteDuration(nil); !errors.As(err, &verr) {
		t.Errorf("DeleteDuration(nil): expected ValidationError, got %v", err)
	}
}

func TestStoreRejectsFamilyMismatch(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	v6key := mustKey(t, dhcp.FamilyV6, dhcp.V6Solicit, dhcp.V6Advertise, "s", "e", 1)

	_, err := store.AddDuration(v6key, 0, time.Now())
	var verr *perfmon.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for v6 key in v4 store, got %v", err)
	}
	if got := store.Count(); got != 0 {
		t.Errorf("expected store unchanged, got %d entries", got)
	}
}

func TestStoreGetAbsentKey(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", 1)

	got, err := store.GetDuration(key)
	if err != nil {
		t.Fatalf("GetDuration failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil result for absent key")
	}
}

func TestStoreUpdate(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	added, err := store.AddDuration(key, 0, now)
	if err != nil {
		t.Fatalf("AddDuration failed: %v", err)
	}

	// Mutating the returned copy does not touch the store until it is
	// handed back through UpdateDuration.
	added.AddSample(now, 40*time.Millisecond)
	stored, _ := store.GetDuration(key)
	if stored.CurrentInterval() != nil {
		t.Fatal("expected store untouched by caller-side mutation")
	}

	if err := store.UpdateDuration(added); err != nil {
		t.Fatalf("UpdateDuration failed: %v", err)
	}
	stored, _ = store.GetDuration(key)
	if stored.CurrentInterval() == nil || stored.CurrentInterval().Occurrences() != 1 {
		t.Error("expected update to persist the mutated state")
	}
}

func TestStoreUpdateNotFound(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	mond, err := perfmon.NewMonitoredDuration(dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer,
		"s", "e", 1, time.Minute)
	if err != nil {
		t.Fatalf("failed to build monitored duration: %v", err)
	}

	if err := store.UpdateDuration(mond); !errors.Is(err, perfmon.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", 1)

	// Deleting an absent key is a no-op.
	if err := store.DeleteDuration(key); err != nil {
		t.Fatalf("expected no error deleting absent key, got %v", err)
	}

	if _, err := store.AddDuration(key, 0, time.Now()); err != nil {
		t.Fatalf("AddDuration failed: %v", err)
	}
	if err := store.DeleteDuration(key); err != nil {
		t.Fatalf("DeleteDuration failed: %v", err)
	}

	got, _ := store.GetDuration(key)
	if got != nil {
		t.Error("expected entry absent after delete")
	}
	if len(store.GetAll()) != 0 {
		t.Error("expected GetAll empty after delete")
	}
}

func TestStoreGetAllOrderedCopies(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	now := time.Now()

	// Insert out of key order.
	for _, subnet := range []dhcp.SubnetID{30, 10, 20} {
		key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", subnet)
		if _, err := store.AddDuration(key, 0, now); err != nil {
			t.Fatalf("AddDuration failed for subnet %d: %v", subnet, err)
		}
	}

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	for i, want := range []dhcp.SubnetID{10, 20, 30} {
		if got := all[i].Key().SubnetID(); got != want {
			t.Errorf("expected entry %d to have subnet %d, got %d", i, want, got)
		}
	}

	// Returned values are independent copies.
	all[0].AddSample(now, time.Millisecond)
	stored, _ := store.GetDuration(all[0].Key())
	if stored.CurrentInterval() != nil {
		t.Error("expected store unaffected by mutating a GetAll copy")
	}
}

func TestStoreClear(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	now := time.Now()
	for _, subnet := range []dhcp.SubnetID{1, 2} {
		key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", subnet)
		if _, err := store.AddDuration(key, 0, now); err != nil {
			t.Fatalf("AddDuration failed: %v", err)
		}
	}

	store.Clear()
	if got := store.Count(); got != 0 {
		t.Errorf("expected empty store after Clear, got %d entries", got)
	}
}

func TestStoreConcurrentDistinctAdds(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	now := time.Now()
	workers := 16

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		subnet := dhcp.SubnetID(i + 1)
		go func() {
			defer wg.Done()
			key, err := perfmon.NewDurationKey(dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer,
				"s", "e", subnet)
			if err != nil {
				errs <- err
				return
			}
			if _, err := store.AddDuration(key, time.Millisecond, now); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	if got := len(store.GetAll()); got != workers {
		t.Errorf("expected %d entries, got %d", workers, got)
	}
}

func TestStoreConcurrentDuplicateAdds(t *testing.T) {
	store := mustStore(t, dhcp.FamilyV4)
	key := mustKey(t, dhcp.FamilyV4, dhcp.V4Discover, dhcp.V4Offer, "s", "e", 1)
	now := time.Now()
	workers := 16

	var wg sync.WaitGroup
	var successes, duplicates int64
	var mu sync.Mutex
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.AddDuration(key, 0, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, perfmon.ErrDuplicateKey):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly one successful add, got %d", successes)
	}
	if duplicates != int64(workers-1) {
		t.Errorf("expected %d duplicate failures, got %d", workers-1, duplicates)
	}
	if got := store.Count(); got != 1 {
		t.Errorf("expected 1 entry, got %d", got)
	}
}
