package storetest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
)

func storeSize(t *testing.T, s dishstore.EditableStore) int {
	t.Helper()
	all, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	return len(all)
}

func runCreate(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		dishes, _ := factory(t)
		Seed(t, dishes)

		created, err := dishes.Create(ctx, "hamburger", "Hamburger", dishstore.NewMealTimeSet(dishstore.Lunch))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if created.Version != 1 {
			t.Errorf("Version = %d, want 1", created.Version)
		}
		if created.StrongID == (uuid.UUID{}) {
			t.Error("Create did not assign a strong id")
		}

		// Retrievable by all three lookup keys.
		if got, err := dishes.GetByPublicID(ctx, "hamburger"); err != nil || !got.Equal(created) {
			t.Errorf("GetByPublicID after create: %v, err %v", got, err)
		}
		if got, err := dishes.GetByName(ctx, "Hamburger"); err != nil || !got.Equal(created) {
			t.Errorf("GetByName after create: %v, err %v", got, err)
		}
		if got, err := dishes.GetByStrongID(ctx, created.StrongID); err != nil || !got.Equal(created) {
			t.Errorf("GetByStrongID after create: %v, err %v", got, err)
		}
		if state, _ := dishes.State(ctx, created.StrongID); state != dishstore.DishExists {
			t.Errorf("State = %s, want EXISTS", state)
		}
	})

	t.Run("PublicIDTaken", func(t *testing.T) {
		dishes, _ := factory(t)
		Seed(t, dishes)
		before := storeSize(t, dishes)

		// "granola" is taken by the fixture; the name is new.
		_, err := dishes.Create(ctx, "granola", "Granola111", dishstore.NewMealTimeSet(dishstore.Breakfast))
		if !errors.Is(err, dishstore.ErrDuplicateValue) {
			t.Fatalf("expected ErrDuplicateValue, got %v", err)
		}
		if got := storeSize(t, dishes); got != before {
			t.Errorf("store size changed on rejected create: %d -> %d", before, got)
		}
		// The rejected name must not have been claimed.
		if _, err := dishes.GetByName(ctx, "Granola111"); !errors.Is(err, dishstore.ErrNotFound) {
			t.Errorf("rejected create left name behind: %v", err)
		}
	})

	t.Run("NameTaken", func(t *testing.T) {
		dishes, _ := factory(t)
		Seed(t, dishes)
		before := storeSize(t, dishes)

		// "Steak" is taken by the fixture; the public id is new.
		_, err := dishes.Create(ctx, "steak2", "Steak", dishstore.NewMealTimeSet(dishstore.Lunch, dishstore.Supper))
		if !errors.Is(err, dishstore.ErrDuplicateValue) {
			t.Fatalf("expected ErrDuplicateValue, got %v", err)
		}
		if got := storeSize(t, dishes); got != before {
			t.Errorf("store size changed on rejected create: %d -> %d", before, got)
		}
		if _, err := dishes.GetByPublicID(ctx, "steak2"); !errors.Is(err, dishstore.ErrNotFound) {
			t.Errorf("rejected create left public id behind: %v", err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		dishes, _ := factory(t)
		before := storeSize(t, dishes)

		tests := []struct {
			name     string
			publicID string
			dishName string
			wantErr  error
		}{
			{"bad public id chars", "pasta carbonara", "Pasta", dishstore.ErrInvalidPublicID},
			{"empty public id", "", "Pasta", dishstore.ErrEmptyPublicID},
			{"public id too long", strings.Repeat("a", dishstore.MaxPublicIDLength+1), "Pasta", dishstore.ErrPublicIDTooLong},
			{"empty name", "pasta", "", dishstore.ErrEmptyName},
			{"name too long", "pasta", strings.Repeat("x", dishstore.MaxNameLength+1), dishstore.ErrNameTooLong},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := dishes.Create(ctx, tt.publicID, tt.dishName, nil)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Create = %v, want %v", err, tt.wantErr)
				}
				// Validation failures are distinguishable from conflicts.
				if errors.Is(err, dishstore.ErrDuplicateValue) {
					t.Error("validation failure reported as uniqueness conflict")
				}
			})
		}
		if got := storeSize(t, dishes); got != before {
			t.Errorf("store size changed on invalid creates: %d -> %d", before, got)
		}
	})
}

func runUpdate(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("Success_ThenStaleResubmit", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)
		granola := seeded["granola"]

		mod := dishstore.Modification{}.WithName("Granola Bar")
		status, err := dishes.UpdateDish(ctx, granola, mod)
		if err != nil || status != dishstore.UpdateSuccess {
			t.Fatalf("UpdateDish = %s, %v", status, err)
		}

		fresh, err := dishes.GetByStrongID(ctx, granola.StrongID)
		if err != nil {
			t.Fatalf("GetByStrongID after update: %v", err)
		}
		if fresh.Version != granola.Version+1 {
			t.Errorf("Version = %d, want %d", fresh.Version, granola.Version+1)
		}
		if fresh.Name != "Granola Bar" {
			t.Errorf("Name = %q, want %q", fresh.Name, "Granola Bar")
		}
		if fresh.PublicID != granola.PublicID {
			t.Errorf("absent field changed: PublicID = %q", fresh.PublicID)
		}
		if !fresh.SuitableFor.Equal(granola.SuitableFor) {
			t.Errorf("absent field changed: SuitableFor = %v", fresh.SuitableFor.Slice())
		}

		// The old name is freed, the new one resolves.
		if _, err := dishes.GetByName(ctx, "Granola"); !errors.Is(err, dishstore.ErrNotFound) {
			t.Errorf("old name still resolves: %v", err)
		}
		if _, err := dishes.GetByName(ctx, "Granola Bar"); err != nil {
			t.Errorf("new name does not resolve: %v", err)
		}

		// The submitted snapshot is stale by definition now.
		status, err = dishes.UpdateDish(ctx, granola, mod)
		if err != nil || status != dishstore.UpdateVersionMismatch {
			t.Errorf("stale resubmit = %s, %v; want VERSION_MISMATCH", status, err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)
		steak := seeded["steak"]

		if status, err := dishes.Delete(ctx, steak.StrongID); err != nil || status != dishstore.DeleteSuccess {
			t.Fatalf("Delete = %s, %v", status, err)
		}

		status, err := dishes.UpdateDish(ctx, steak, dishstore.Modification{}.WithName("Tuna Steak"))
		if err != nil || status != dishstore.UpdateNotFound {
			t.Errorf("update of deleted dish = %s, %v; want NOT_FOUND", status, err)
		}

		never, _ := dishstore.Restore(uuid.New(), "ghost", "Ghost", nil, 1)
		status, err = dishes.UpdateDish(ctx, never, dishstore.Modification{}.WithName("Phantom"))
		if err != nil || status != dishstore.UpdateNotFound {
			t.Errorf("update of never-created dish = %s, %v; want NOT_FOUND", status, err)
		}
	})

	t.Run("DuplicateValue", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)

		_, err := dishes.UpdateDish(ctx, seeded["granola"], dishstore.Modification{}.WithName("Steak"))
		if !errors.Is(err, dishstore.ErrDuplicateValue) {
			t.Errorf("expected ErrDuplicateValue for name conflict, got %v", err)
		}
		_, err = dishes.UpdateDish(ctx, seeded["granola"], dishstore.Modification{}.WithPublicID("steak"))
		if !errors.Is(err, dishstore.ErrDuplicateValue) {
			t.Errorf("expected ErrDuplicateValue for public id conflict, got %v", err)
		}

		// The failed updates must not have bumped the version.
		fresh, err := dishes.GetByStrongID(ctx, seeded["granola"].StrongID)
		if err != nil {
			t.Fatalf("GetByStrongID: %v", err)
		}
		if fresh.Version != seeded["granola"].Version {
			t.Errorf("failed update changed version to %d", fresh.Version)
		}
	})

	t.Run("KeepingOwnValueIsNotAConflict", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)
		granola := seeded["granola"]

		// Re-submitting the current name alongside a meal time change
		// conflicts with nobody.
		mod := dishstore.Modification{}.
			WithName(granola.Name).
			WithSuitableFor(dishstore.Breakfast, dishstore.Supper)
		status, err := dishes.UpdateDish(ctx, granola, mod)
		if err != nil || status != dishstore.UpdateSuccess {
			t.Errorf("UpdateDish = %s, %v", status, err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)

		_, err := dishes.UpdateDish(ctx, seeded["granola"], dishstore.Modification{}.WithPublicID("granola bar"))
		if !errors.Is(err, dishstore.ErrInvalidPublicID) {
			t.Errorf("expected ErrInvalidPublicID, got %v", err)
		}
	})

	t.Run("FreedValueReusableAfterChange", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)

		status, err := dishes.UpdateDish(ctx, seeded["granola"], dishstore.Modification{}.WithPublicID("granola_old"))
		if err != nil || status != dishstore.UpdateSuccess {
			t.Fatalf("UpdateDish = %s, %v", status, err)
		}

		// "granola" was changed away from, so a new dish may take it.
		if _, err := dishes.Create(ctx, "granola", "Granola Clusters", dishstore.NewMealTimeSet(dishstore.Breakfast)); err != nil {
			t.Errorf("create reusing freed public id: %v", err)
		}
	})
}
