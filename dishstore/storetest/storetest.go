// Package storetest provides the shared conformance suite for dish store
// implementations, plus the fixed dish fixture the suite is seeded with.
//
// Backend packages run the same suite against their own factories, so
// every implementation is held to the identical contract:
//
//	func TestContract(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) (dishstore.EditableStore, timeline.EditableStore) {
//	        s := memstore.New()
//	        return s.Dishes(), s.Timeline()
//	    })
//	}
package storetest

import (
	"context"
	"testing"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

// Factory builds a fresh, empty pair of interdependent stores for one
// subtest. Implementations backed by shared state (one database, one
// lock) must return views of the same instance.
type Factory func(t *testing.T) (dishstore.EditableStore, timeline.EditableStore)

// DishData describes one fixture dish before creation.
type DishData struct {
	PublicID    string
	Name        string
	SuitableFor dishstore.MealTimeSet
}

// FixtureDishes returns the fixed fixture set the suite seeds stores with.
func FixtureDishes() []DishData {
	return []DishData{
		{"boiled_eggs", "Boiled Eggs", dishstore.NewMealTimeSet(dishstore.Breakfast, dishstore.Supper)},
		{"sandwich", "Sandwich", dishstore.NewMealTimeSet(dishstore.Breakfast, dishstore.Supper)},
		{"granola", "Granola", dishstore.NewMealTimeSet(dishstore.Breakfast)},
		{"omelette", "Omelette", dishstore.NewMealTimeSet(dishstore.Supper)},
		{"yoghurt", "Yoghurt", dishstore.NewMealTimeSet(dishstore.Breakfast)},
		{"oatmeal", "Oatmeal", dishstore.NewMealTimeSet(dishstore.Supper)},
		{"steak", "Steak", dishstore.NewMealTimeSet(dishstore.Lunch)},
		{"pasta_carbonara", "Pasta Carbonara", dishstore.NewMealTimeSet(dishstore.Lunch, dishstore.Supper)},
		{"pizza", "Pizza", dishstore.NewMealTimeSet(dishstore.Breakfast, dishstore.Lunch, dishstore.Supper)},
	}
}

// Seed creates the fixture dishes in the store and returns the created
// snapshots keyed by public id.
func Seed(t *testing.T, s dishstore.EditableStore) map[string]dishstore.Dish {
	t.Helper()
	ctx := context.Background()

	seeded := make(map[string]dishstore.Dish)
	for _, d := range FixtureDishes() {
		dish, err := s.Create(ctx, d.PublicID, d.Name, d.SuitableFor)
		if err != nil {
			t.Fatalf("seed %s: %v", d.PublicID, err)
		}
		seeded[d.PublicID] = dish
	}
	return seeded
}

// Run executes the full conformance suite against the factory.
func Run(t *testing.T, factory Factory) {
	t.Run("Lookups", func(t *testing.T) { runLookups(t, factory) })
	t.Run("Create", func(t *testing.T) { runCreate(t, factory) })
	t.Run("Update", func(t *testing.T) { runUpdate(t, factory) })
	t.Run("Delete", func(t *testing.T) { runDelete(t, factory) })
	t.Run("TimelineGuard", func(t *testing.T) { runTimelineGuard(t, factory) })
	t.Run("Concurrency", func(t *testing.T) { runConcurrency(t, factory) })
}
