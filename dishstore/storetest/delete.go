package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

func runDelete(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("Lifecycle", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)
		omelette := seeded["omelette"]

		status, err := dishes.Delete(ctx, omelette.StrongID)
		if err != nil || status != dishstore.DeleteSuccess {
			t.Fatalf("Delete = %s, %v", status, err)
		}

		if _, err := dishes.GetByStrongID(ctx, omelette.StrongID); !errors.Is(err, dishstore.ErrNotFound) {
			t.Errorf("deleted dish still resolves by strong id: %v", err)
		}
		if _, err := dishes.GetByName(ctx, "Omelette"); !errors.Is(err, dishstore.ErrNotFound) {
			t.Errorf("deleted dish still resolves by name: %v", err)
		}
		if state, _ := dishes.State(ctx, omelette.StrongID); state != dishstore.DishDeleted {
			t.Errorf("State = %s, want IS_DELETED", state)
		}

		// Freed public id and name are reusable, independently.
		recreated, err := dishes.Create(ctx, "omelette", "Cheese Omelette", dishstore.NewMealTimeSet(dishstore.Supper))
		if err != nil {
			t.Fatalf("create reusing freed public id: %v", err)
		}
		if recreated.StrongID == omelette.StrongID {
			t.Error("strong id was reused")
		}
		if _, err := dishes.Create(ctx, "omelette2", "Omelette", dishstore.NewMealTimeSet(dishstore.Supper)); err != nil {
			t.Errorf("create reusing freed name: %v", err)
		}

		// The old strong id stays deleted forever.
		if state, _ := dishes.State(ctx, omelette.StrongID); state != dishstore.DishDeleted {
			t.Errorf("State after reuse = %s, want IS_DELETED", state)
		}
	})

	t.Run("NeverExisted", func(t *testing.T) {
		dishes, _ := factory(t)
		Seed(t, dishes)

		id := uuid.New()
		status, err := dishes.Delete(ctx, id)
		if err != nil || status != dishstore.DeleteDoesNotExist {
			t.Errorf("Delete = %s, %v; want DOES_NOT_EXIST", status, err)
		}
		if state, _ := dishes.State(ctx, id); state != dishstore.DishDoesNotExist {
			t.Errorf("State = %s, want DOES_NOT_EXIST", state)
		}
	})

	t.Run("Twice", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)
		yoghurt := seeded["yoghurt"]

		if status, err := dishes.Delete(ctx, yoghurt.StrongID); err != nil || status != dishstore.DeleteSuccess {
			t.Fatalf("first Delete = %s, %v", status, err)
		}
		status, err := dishes.Delete(ctx, yoghurt.StrongID)
		if err != nil || status != dishstore.DeleteDoesNotExist {
			t.Errorf("second Delete = %s, %v; want DOES_NOT_EXIST", status, err)
		}
		// Deleted never reverts to never-existed.
		if state, _ := dishes.State(ctx, yoghurt.StrongID); state != dishstore.DishDeleted {
			t.Errorf("State = %s, want IS_DELETED", state)
		}
	})

	t.Run("BySnapshot", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)

		status, err := dishes.DeleteDish(ctx, seeded["oatmeal"])
		if err != nil || status != dishstore.DeleteSuccess {
			t.Errorf("DeleteDish = %s, %v", status, err)
		}
	})
}

func runTimelineGuard(t *testing.T, factory Factory) {
	ctx := context.Background()
	monday := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)

	t.Run("ReferencedDishIsNotDeletable", func(t *testing.T) {
		dishes, days := factory(t)
		seeded := Seed(t, dishes)
		steak := seeded["steak"]

		day := timeline.NewDayMenu(monday)
		day.Add(dishstore.Lunch, steak.StrongID)
		if err := days.PutDay(ctx, day); err != nil {
			t.Fatalf("PutDay: %v", err)
		}

		status, err := dishes.Delete(ctx, steak.StrongID)
		if err != nil || status != dishstore.DeleteUsedInMenuTimeline {
			t.Fatalf("Delete = %s, %v; want USED_IN_MENU_TIMELINE", status, err)
		}
		// The dish remains live and unchanged.
		got, err := dishes.GetByStrongID(ctx, steak.StrongID)
		if err != nil {
			t.Fatalf("dish vanished after guarded delete: %v", err)
		}
		if !got.Equal(steak) {
			t.Errorf("guarded delete changed the dish: %v", got)
		}

		// Removing the reference makes the delete succeed.
		if err := days.RemoveDay(ctx, monday); err != nil {
			t.Fatalf("RemoveDay: %v", err)
		}
		status, err = dishes.Delete(ctx, steak.StrongID)
		if err != nil || status != dishstore.DeleteSuccess {
			t.Fatalf("Delete after release = %s, %v", status, err)
		}

		// The freed name is available again.
		if _, err := dishes.Create(ctx, "steak_new", "Steak", dishstore.NewMealTimeSet(dishstore.Lunch)); err != nil {
			t.Errorf("create reusing name of deleted dish: %v", err)
		}
	})

	t.Run("UpdateWhileReferencedIsAllowed", func(t *testing.T) {
		dishes, days := factory(t)
		seeded := Seed(t, dishes)
		pizza := seeded["pizza"]

		day := timeline.NewDayMenu(monday)
		day.Add(dishstore.Supper, pizza.StrongID)
		if err := days.PutDay(ctx, day); err != nil {
			t.Fatalf("PutDay: %v", err)
		}

		status, err := dishes.UpdateDish(ctx, pizza, dishstore.Modification{}.WithName("Pizza Margherita"))
		if err != nil || status != dishstore.UpdateSuccess {
			t.Errorf("update of referenced dish = %s, %v", status, err)
		}
		if used, err := days.UsesDish(ctx, pizza.StrongID); err != nil || !used {
			t.Errorf("reference lost across update: used=%v, err=%v", used, err)
		}
	})

	t.Run("PutDayRejectsUnknownDish", func(t *testing.T) {
		dishes, days := factory(t)
		seeded := Seed(t, dishes)

		day := timeline.NewDayMenu(monday)
		day.Add(dishstore.Breakfast, uuid.New())
		if err := days.PutDay(ctx, day); !errors.Is(err, timeline.ErrUnknownDish) {
			t.Errorf("expected ErrUnknownDish for never-created reference, got %v", err)
		}

		sandwich := seeded["sandwich"]
		if status, err := dishes.Delete(ctx, sandwich.StrongID); err != nil || status != dishstore.DeleteSuccess {
			t.Fatalf("Delete = %s, %v", status, err)
		}
		day = timeline.NewDayMenu(monday)
		day.Add(dishstore.Breakfast, sandwich.StrongID)
		if err := days.PutDay(ctx, day); !errors.Is(err, timeline.ErrUnknownDish) {
			t.Errorf("expected ErrUnknownDish for deleted reference, got %v", err)
		}
	})

	t.Run("DayLookups", func(t *testing.T) {
		dishes, days := factory(t)
		seeded := Seed(t, dishes)

		day := timeline.NewDayMenu(monday)
		day.Add(dishstore.Breakfast, seeded["granola"].StrongID)
		day.Add(dishstore.Lunch, seeded["steak"].StrongID)
		if err := days.PutDay(ctx, day); err != nil {
			t.Fatalf("PutDay: %v", err)
		}
		next := timeline.NewDayMenu(monday.AddDate(0, 0, 1))
		next.Add(dishstore.Lunch, seeded["pizza"].StrongID)
		if err := days.PutDay(ctx, next); err != nil {
			t.Fatalf("PutDay: %v", err)
		}

		got, err := days.Day(ctx, monday)
		if err != nil {
			t.Fatalf("Day: %v", err)
		}
		if !got.Uses(seeded["granola"].StrongID) {
			t.Error("stored day menu lost its breakfast reference")
		}

		week, err := days.Range(ctx, monday, monday.AddDate(0, 0, 6))
		if err != nil {
			t.Fatalf("Range: %v", err)
		}
		if len(week) != 2 {
			t.Fatalf("Range returned %d days, want 2", len(week))
		}
		if !week[0].Date.Before(week[1].Date) {
			t.Error("Range results not in date order")
		}

		if _, err := days.Day(ctx, monday.AddDate(0, 0, 2)); !errors.Is(err, timeline.ErrNotFound) {
			t.Errorf("expected ErrNotFound for empty day, got %v", err)
		}
		if err := days.RemoveDay(ctx, monday.AddDate(0, 0, 2)); !errors.Is(err, timeline.ErrNotFound) {
			t.Errorf("expected ErrNotFound removing empty day, got %v", err)
		}
	})
}
