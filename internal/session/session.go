// Package session holds the in-memory aggregation of strafe samples for one
// practice session.
package session

import (
	"sync"
	"time"

	"github.com/verte-zerg/strafeval/internal/model"
)

// Snapshot is an immutable point-in-time view of the store. Slices are in
// arrival order and must not be modified by callers.
type Snapshot struct {
	Version    uint64
	StartedAt  time.Time
	Total      []model.Sample
	Early      []time.Duration
	Late       []time.Duration
	Perfect    []time.Duration
	ShotDelays []time.Duration
}

// Recent returns up to n samples, newest first.
func (s Snapshot) Recent(n int) []model.Sample {
	if n <= 0 || n > len(s.Total) {
		n = len(s.Total)
	}
	out := make([]model.Sample, 0, n)
	for i := len(s.Total) - 1; i >= len(s.Total)-n; i-- {
		out = append(out, s.Total[i])
	}
	return out
}

// Empty reports whether no sample has been recorded.
func (s Snapshot) Empty() bool {
	return len(s.Total) == 0
}

type collections struct {
	startedAt  time.Time
	total      []model.Sample
	early      []time.Duration
	late       []time.Duration
	perfect    []time.Duration
	shotDelays []time.Duration
}

// Store aggregates samples for the lifetime of a session. The five
// collections are guarded as one unit.
type Store struct {
	mu       sync.Mutex
	state    *collections
	version  uint64
	now      func() time.Time
	onChange []func(Snapshot)
}

// New returns an empty store.
func New() *Store {
	s := &Store{now: time.Now}
	s.state = &collections{startedAt: s.now()}
	return s
}

// OnChange registers fn to be called with the new snapshot after every
// record or reset. Callbacks run outside the store lock.
func (s *Store) OnChange(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Record appends a sample.
func (s *Store) Record(sample model.Sample) {
	s.mu.Lock()
	st := s.state
	st.total = append(st.total, sample)
	switch sample.Classification {
	case model.Early:
		st.early = append(st.early, sample.Duration)
	case model.Late:
		st.late = append(st.late, sample.Duration)
	case model.Perfect:
		st.perfect = append(st.perfect, sample.Duration)
	}
	if sample.ShotDelay != nil {
		st.shotDelays = append(st.shotDelays, *sample.ShotDelay)
	}
	s.version++
	snap, hooks := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	notify(hooks, snap)
}

// Reset clears all collections in a single state swap.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = &collections{startedAt: s.now()}
	s.version++
	snap, hooks := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	notify(hooks, snap)
}

// Snapshot returns the current contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Version returns a counter that increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Slices are clipped so an append by a snapshot holder cannot write into the
// store's backing arrays.
func (s *Store) snapshotLocked() Snapshot {
	st := s.state
	return Snapshot{
		Version:    s.version,
		StartedAt:  st.startedAt,
		Total:      st.total[:len(st.total):len(st.total)],
		Early:      st.early[:len(st.early):len(st.early)],
		Late:       st.late[:len(st.late):len(st.late)],
		Perfect:    st.perfect[:len(st.perfect):len(st.perfect)],
		ShotDelays: st.shotDelays[:len(st.shotDelays):len(st.shotDelays)],
	}
}

func notify(hooks []func(Snapshot), snap Snapshot) {
	for _, fn := range hooks {
		fn(snap)
	}
}
