package pipeline

import (
	"sync"
	"time"

	"github.com/seismoscope/quake-feed-service/internal/domain"
)

// Snapshot is the normalized dataset produced by one successful fetch pass.
// It is immutable once stored; a new fetch replaces it wholesale, and a
// failed fetch leaves the previous one untouched.
type Snapshot struct {
	Records   []domain.EventRecord
	Window    domain.TimeWindow
	FetchedAt time.Time
	Dropped   int
}

// Store holds the latest snapshot for readers. It is the explicit owner of
// the "last fetched dataset" state: the only invalidation trigger is a newer
// snapshot replacing the current one.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	set  bool
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{}
}

// Latest returns the current snapshot and whether one exists yet.
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.set
}

// Replace installs a new snapshot, superseding the previous one.
func (s *Store) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.set = true
}
