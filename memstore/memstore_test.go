package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/dishstore/storetest"
	"github.com/wellfedcat/wellfedcat/memstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (dishstore.EditableStore, timeline.EditableStore) {
		s := memstore.New()
		return s.Dishes(), s.Timeline()
	})
}

func TestSnapshotsAreDetached(t *testing.T) {
	ctx := context.Background()
	dishes := memstore.New().Dishes()

	created, err := dishes.Create(ctx, "granola", "Granola", dishstore.NewMealTimeSet(dishstore.Breakfast))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Mutating a returned snapshot must not leak into the store.
	created.SuitableFor[dishstore.Supper] = struct{}{}

	stored, err := dishes.GetByStrongID(ctx, created.StrongID)
	if err != nil {
		t.Fatalf("GetByStrongID: %v", err)
	}
	if stored.SuitableFor.Contains(dishstore.Supper) {
		t.Error("store shares meal time set with returned snapshot")
	}
}

func TestStoredDayMenusAreDetached(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	dishes, days := s.Dishes(), s.Timeline()

	granola, err := dishes.Create(ctx, "granola", "Granola", dishstore.NewMealTimeSet(dishstore.Breakfast))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	day := timeline.NewDayMenu(day0())
	day.Add(dishstore.Breakfast, granola.StrongID)
	if err := days.PutDay(ctx, day); err != nil {
		t.Fatalf("PutDay: %v", err)
	}

	// Mutating the caller's value after the put must not affect the store.
	day.Add(dishstore.Breakfast, granola.StrongID)

	stored, err := days.Day(ctx, day0())
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if got := len(stored.Meals[dishstore.Breakfast]); got != 1 {
		t.Errorf("stored day menu has %d breakfast entries, want 1", got)
	}
}

func day0() time.Time {
	return time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
}
