package perfmon

import (
	"sort"
	"sync"
	"time"

	"github.com/PeterWatsonDavies/kea/internal/dhcp"
)

// MonitoredDurationStore is a thread-safe, key-ordered collection of
// MonitoredDuration values for a single protocol family. Every value that
// crosses the store boundary is a deep copy: callers never hold a reference
// into the store's index, and mutating a returned value does nothing until
// it is handed back through UpdateDuration.
type MonitoredDurationStore struct {
	family           dhcp.Family
	intervalDuration time.Duration

	mu sync.Mutex
	// durations stays sorted by key so GetAll is ordered and lookups are
	// binary searches.
	durations []*MonitoredDuration
}

// NewMonitoredDurationStore creates an empty store. New entries created by
// AddDuration use intervalDuration as their window length.
func NewMonitoredDurationStore(family dhcp.Family, intervalDuration time.Duration) (*MonitoredDurationStore, error) {
	if !family.Valid() {
		return nil, validationErrorf("MonitoredDurationStore: family must be v4 or v6, got %s", family)
	}
	if intervalDuration <= 0 {
		return nil, validationErrorf(
			"MonitoredDurationStore: invalid interval duration %s, must be greater than zero",
			intervalDuration)
	}
	return &MonitoredDurationStore{
		family:           family,
		intervalDuration: intervalDuration,
	}, nil
}

func (s *MonitoredDurationStore) Family() dhcp.Family { return s.family }

func (s *MonitoredDurationStore) IntervalDuration() time.Duration { return s.intervalDuration }

// search returns the insertion index for key and whether an entry with an
// equal key is already there. Callers must hold s.mu.
func (s *MonitoredDurationStore) search(key *DurationKey) (int, bool) {
	idx := sort.Search(len(s.durations), func(i int) bool {
		return s.durations[i].key.Compare(key) >= 0
	})
	found := idx < len(s.durations) && s.durations[idx].key.Compare(key) == 0
	return idx, found
}

// AddDuration creates a MonitoredDuration for key using the store's default
// interval width, applies initialSample (when positive) as a first sample
// observed at now, and inserts it. The new value is constructed before the
// lock is taken so no validation runs inside the critical section. Returns
// ErrDuplicateKey when an entry with an equal key already exists.
func (s *MonitoredDurationStore) AddDuration(key *DurationKey, initialSample time.Duration, now time.Time) (*MonitoredDuration, error) {
	if key == nil {
		return nil, validationErrorf("MonitoredDurationStore: AddDuration - key is empty")
	}
	if key.Family() != s.family {
		return nil, validationErrorf("MonitoredDurationStore: AddDuration - cannot add %s key to %s store",
			key.Family(), s.family)
	}

	mond, err := NewMonitoredDurationForKey(key, s.intervalDuration)
	if err != nil {
		return nil, err
	}
	if initialSample > 0 {
		mond.AddSample(now, initialSample)
	}

	s.mu.Lock()
	idx, found := s.search(key)
	if found {
		s.mu.Unlock()
		return nil, ErrDuplicateKey
	}
	s.durations = append(s.durations, nil)
	copy(s.durations[idx+1:], s.durations[idx:])
	s.durations[idx] = mond
	s.mu.Unlock()

	return mond.Copy(), nil
}

// GetDuration returns a deep copy of the entry matching key, or nil when no
// such entry exists. Absence is a normal outcome, not an error.
func (s *MonitoredDurationStore) GetDuration(key *DurationKey) (*MonitoredDuration, error) {
	if key == nil {
		return nil, validationErrorf("MonitoredDurationStore: GetDuration - key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, found := s.search(key)
	if !found {
		return nil, nil
	}
	return s.durations[idx].Copy(), nil
}

// UpdateDuration replaces the stored entry matching duration's key with a
// copy of duration. The entry is replaced wholesale rather than mutated in
// place: key fields double as index fields, so editing them inside the
// sorted slice would corrupt the ordering. Returns ErrNotFound when no
// entry matches.
func (s *MonitoredDurationStore) UpdateDuration(duration *MonitoredDuration) error {
	if duration == nil {
		return validationErrorf("MonitoredDurationStore: UpdateDuration - duration is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, found := s.search(&duration.key)
	if !found {
		return ErrNotFound
	}
	s.durations[idx] = duration.Copy()
	return nil
}

// DeleteDuration removes the entry matching key. Absence is a no-op.
func (s *MonitoredDurationStore) DeleteDuration(key *DurationKey) error {
	if key == nil {
		return validationErrorf("MonitoredDurationStore: DeleteDuration - key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, found := s.search(key)
	if !found {
		return nil
	}
	s.durations = append(s.durations[:idx], s.durations[idx+1:]...)
	return nil
}

// GetAll returns a key-ordered list of deep copies of every entry.
func (s *MonitoredDurationStore) GetAll() []*MonitoredDuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*MonitoredDuration, 0, len(s.durations))
	for _, mond := range s.durations {
		all = append(all, mond.Copy())
	}
	return all
}

// Count returns the number of entries.
func (s *MonitoredDurationStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.durations)
}

// Clear removes every entry.
func (s *MonitoredDurationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = nil
}
