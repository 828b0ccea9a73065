package alarm

import (
	"sort"
	"sync"

	"github.com/PeterWatsonDavies/kea/internal/perfmon"
)

// Store is a thread-safe, key-ordered collection of alarms. It follows the
// same ownership model as the duration store: one mutex, copy-out on every
// boundary crossing, replace-and-reindex on update.
type Store struct {
	mu     sync.Mutex
	alarms []*Alarm
}

// NewStore creates an empty alarm store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) search(key *perfmon.DurationKey) (int, bool) {
	idx := sort.Search(len(s.alarms), func(i int) bool {
		return s.alarms[i].key.Compare(key) >= 0
	})
	found := idx < len(s.alarms) && s.alarms[idx].key.Compare(key) == 0
	return idx, found
}

// Add inserts a copy of the alarm. Returns ErrDuplicateKey when an alarm
// with an equal key is already present.
func (s *Store) Add(a *Alarm) (*Alarm, error) {
	if a == nil {
		return nil, perfmon.NewValidationError("alarm store: Add - alarm is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, found := s.search(&a.key)
	if found {
		return nil, perfmon.ErrDuplicateKey
	}
	stored := a.Copy()
	s.alarms = append(s.alarms, nil)
	copy(s.alarms[idx+1:], s.alarms[idx:])
	s.alarms[idx] = stored
	return stored.Copy(), nil
}

// Get returns a copy of the alarm matching key, or nil when absent.
func (s *Store) Get(key *perfmon.DurationKey) (*Alarm, error) {
	if key == nil {
		return nil, perfmon.NewValidationError("alarm store: Get - key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, found := s.search(key)
	if !found {
		return nil, nil
	}
	return s.alarms[idx].Copy(), nil
}

// Update replaces the stored alarm matching a's key. Returns ErrNotFound
// when no such alarm exists.
func (s *Store) Update(a *Alarm) error {
	if a == nil {
		return perfmon.NewValidationError("alarm store: Update - alarm is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, found := s.search(&a.key)
	if !found {
		return perfmon.ErrNotFound
	}
	s.alarms[idx] = a.Copy()
	return nil
}

// Delete removes the alarm matching key. Absence is a no-op.
func (s *Store) Delete(key *perfmon.DurationKey) error {
	if key == nil {
		return perfmon.NewValidationError("alarm store: Delete - key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, found := s.search(key)
	if !found {
		return nil
	}
	s.alarms = append(s.alarms[:idx], s.alarms[idx+1:]...)
	return nil
}

// GetAll returns key-ordered copies of every alarm.
func (s *Store) GetAll() []*Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*Alarm, 0, len(s.alarms))
	for _, a := range s.alarms {
		all = append(all, a.Copy())
	}
	return all
}

// Count returns the number of alarms.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alarms)
}

// Clear removes every alarm.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarms = nil
}
