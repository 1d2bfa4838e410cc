// Package memstore provides the in-memory dish store and menu timeline.
//
// Both collections live behind a single lock so the cross-store delete
// guard (a referenced dish cannot be deleted) is checked atomically with
// the delete itself; there is no window in which a timeline write can
// reference a dish a concurrent delete is removing.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

// Store owns the dish collection and the menu timeline.
// Use Dishes and Timeline for the contract-typed views.
type Store struct {
	mu sync.RWMutex

	dishes     map[uuid.UUID]dishstore.Dish
	byName     map[string]uuid.UUID
	byPublicID map[string]uuid.UUID

	// deleted retains every strong id ever removed, so state queries
	// answer IS_DELETED forever instead of reverting to DOES_NOT_EXIST.
	deleted map[uuid.UUID]struct{}

	days map[string]timeline.DayMenu
}

// New creates an empty store.
func New() *Store {
	return &Store{
		dishes:     make(map[uuid.UUID]dishstore.Dish),
		byName:     make(map[string]uuid.UUID),
		byPublicID: make(map[string]uuid.UUID),
		deleted:    make(map[uuid.UUID]struct{}),
		days:       make(map[string]timeline.DayMenu),
	}
}

// Dishes returns the dish store view.
func (s *Store) Dishes() *DishStore {
	return &DishStore{s: s}
}

// Timeline returns the menu timeline view.
func (s *Store) Timeline() *TimelineStore {
	return &TimelineStore{s: s}
}

func dayKey(t time.Time) string {
	return timeline.DateOf(t).Format(time.DateOnly)
}

// usesDishLocked reports whether any day menu references the dish.
// Callers hold s.mu.
func (s *Store) usesDishLocked(strongID uuid.UUID) bool {
	for _, day := range s.days {
		if day.Uses(strongID) {
			return true
		}
	}
	return false
}
