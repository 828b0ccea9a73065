// Package stats keeps an in-process registry of named observations. The
// monitor publishes interval aggregates here so operators can read them back
// without touching the duration stores.
package stats

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Kind is the value type an observation was first recorded with. Once set,
// all later samples must match.
type Kind int

const (
	KindInteger Kind = iota
	KindDuration
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// ErrKindMismatch is returned when a sample's type disagrees with the
// observation's established kind.
var ErrKindMismatch = errors.New("observation kind mismatch")

// Sample is one recorded value and when it was observed.
type Sample struct {
	Integer  int64
	Duration time.Duration
	At       time.Time
}

// Observation is a snapshot of one named statistic: its kind and its
// retained samples, newest first.
type Observation struct {
	Name    string
	Kind    Kind
	Samples []Sample
}

// Latest returns the most recent sample.
func (o Observation) Latest() (Sample, bool) {
	if len(o.Samples) == 0 {
		return Sample{}, false
	}
	return o.Samples[0], true
}

type observation struct {
	kind    Kind
	samples []Sample
}

// Registry is a mutex-guarded collection of observations. Snapshots leave
// the registry as copies.
type Registry struct {
	mu         sync.Mutex
	maxSamples int
	stats      map[string]*observation
}

// DefaultMaxSamples is how many samples each observation retains unless
// configured otherwise.
const DefaultMaxSamples = 20

// NewRegistry creates an empty registry retaining up to maxSamples samples
// per observation; zero or negative means DefaultMaxSamples.
func NewRegistry(maxSamples int) *Registry {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Registry{
		maxSamples: maxSamples,
		stats:      make(map[string]*observation),
	}
}

// SetInteger records an absolute integer value for name.
func (r *Registry) SetInteger(name string, value int64, at time.Time) error {
	return r.record(name, KindInteger, Sample{Integer: value, At: at}, false)
}

// AddInteger adds value to the latest integer sample for name.
func (r *Registry) AddInteger(name string, value int64, at time.Time) error {
	return r.record(name, KindInteger, Sample{Integer: value, At: at}, true)
}

// SetDuration records an absolute duration value for name.
func (r *Registry) SetDuration(name string, value time.Duration, at time.Time) error {
	return r.record(name, KindDuration, Sample{Duration: value, At: at}, false)
}

// AddDuration adds value to the latest duration sample for name.
func (r *Registry) AddDuration(name string, value time.Duration, at time.Time) error {
	return r.record(name, KindDuration, Sample{Duration: value, At: at}, true)
}

func (r *Registry) record(name string, kind Kind, sample Sample, incremental bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	obs, ok := r.stats[name]
	if !ok {
		obs = &observation{kind: kind}
		r.stats[name] = obs
	} else if obs.kind != kind {
		return fmt.Errorf("%w: %q is %s, sample is %s", ErrKindMismatch, name, obs.kind, kind)
	}

	if incremental && len(obs.samples) > 0 {
		prev := obs.samples[0]
		sample.Integer += prev.Integer
		sample.Duration += prev.Duration
	}

	obs.samples = append([]Sample{sample}, obs.samples...)
	if len(obs.samples) > r.maxSamples {
		obs.samples = obs.samples[:r.maxSamples]
	}
	return nil
}

// Get returns a snapshot of the named observation, or false when it has
// never been recorded.
func (r *Registry) Get(name string) (Observation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obs, ok := r.stats[name]
	if !ok {
		return Observation{}, false
	}
	snap := Observation{
		Name:    name,
		Kind:    obs.kind,
		Samples: make([]Sample, len(obs.samples)),
	}
	copy(snap.Samples, obs.samples)
	return snap, true
}

// Names returns the sorted names of every recorded observation.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.stats))
	for name := range r.stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove deletes the named observation. Absence is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stats, name)
}

// RemoveAll drops every observation.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = make(map[string]*observation)
}
