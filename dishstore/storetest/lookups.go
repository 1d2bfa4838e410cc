package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
)

func runLookups(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("All_MatchesFixture", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)

		all, err := dishes.All(ctx)
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if len(all) != len(seeded) {
			t.Fatalf("All returned %d dishes, want %d", len(all), len(seeded))
		}
		// Order is not guaranteed; compare as a set keyed by public id.
		for _, got := range all {
			want, ok := seeded[got.PublicID]
			if !ok {
				t.Errorf("unexpected dish %q in All", got.PublicID)
				continue
			}
			if !got.Equal(want) {
				t.Errorf("dish %q differs from seeded snapshot: got %v, want %v", got.PublicID, got, want)
			}
		}
	})

	t.Run("All_EmptyStore", func(t *testing.T) {
		dishes, _ := factory(t)
		all, err := dishes.All(ctx)
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("All on empty store returned %d dishes", len(all))
		}
	})

	t.Run("GetByName", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)

		got, err := dishes.GetByName(ctx, "Pasta Carbonara")
		if err != nil {
			t.Fatalf("GetByName: %v", err)
		}
		if !got.Equal(seeded["pasta_carbonara"]) {
			t.Errorf("GetByName returned %v", got)
		}

		if _, err := dishes.GetByName(ctx, "Pasta Bolognese"); !errors.Is(err, dishstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown name, got %v", err)
		}
	})

	t.Run("GetByPublicID", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)

		got, err := dishes.GetByPublicID(ctx, "granola")
		if err != nil {
			t.Fatalf("GetByPublicID: %v", err)
		}
		if !got.Equal(seeded["granola"]) {
			t.Errorf("GetByPublicID returned %v", got)
		}

		if _, err := dishes.GetByPublicID(ctx, "pelmeni"); !errors.Is(err, dishstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown public id, got %v", err)
		}
	})

	t.Run("GetByStrongID", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)

		want := seeded["steak"]
		got, err := dishes.GetByStrongID(ctx, want.StrongID)
		if err != nil {
			t.Fatalf("GetByStrongID: %v", err)
		}
		if !got.Equal(want) {
			t.Errorf("GetByStrongID returned %v", got)
		}

		if _, err := dishes.GetByStrongID(ctx, uuid.New()); !errors.Is(err, dishstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown strong id, got %v", err)
		}
	})

	t.Run("State_NeverCreated", func(t *testing.T) {
		dishes, _ := factory(t)
		Seed(t, dishes)

		state, err := dishes.State(ctx, uuid.New())
		if err != nil {
			t.Fatalf("State: %v", err)
		}
		if state != dishstore.DishDoesNotExist {
			t.Errorf("State = %s, want DOES_NOT_EXIST", state)
		}
	})
}
