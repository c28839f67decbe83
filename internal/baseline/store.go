// Package baseline holds the read-mostly published baseline snapshots.
// The routine learner builds a complete per-household BaselineSet off to
// the side and publishes it by swapping a pointer, so hot-path readers
// never observe a half-updated baseline.
package baseline

import (
	"sync"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// Store maps household ids to their current published baseline snapshot.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*models.BaselineSet
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{snapshots: make(map[string]*models.BaselineSet)}
}

// Get returns the current snapshot for a household, or nil when no
// baseline has been learned yet. The returned set must be treated as
// immutable.
func (s *Store) Get(householdID string) *models.BaselineSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[householdID]
}

// Publish atomically replaces a household's snapshot. A nil set is
// rejected as a no-op: an aborted learner run must not clear the previous
// valid baseline.
func (s *Store) Publish(set *models.BaselineSet) {
	if set == nil || set.HouseholdID == "" {
		return
	}
	s.mu.Lock()
	s.snapshots[set.HouseholdID] = set
	s.mu.Unlock()
}

// Households lists the households with a published baseline.
func (s *Store) Households() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	return ids
}
