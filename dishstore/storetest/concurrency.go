package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/wellfedcat/wellfedcat/dishstore"
)

func runConcurrency(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("RacingUpdates_ExactlyOneWins", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)
		pizza := seeded["pizza"]

		const racers = 8
		var wg sync.WaitGroup
		results := make([]dishstore.UpdateStatus, racers)
		errs := make([]error, racers)

		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				mod := dishstore.Modification{}.WithSuitableFor(dishstore.Lunch)
				results[i], errs[i] = dishes.UpdateDish(ctx, pizza, mod)
			}(i)
		}
		wg.Wait()

		var wins, mismatches int
		for i := 0; i < racers; i++ {
			if errs[i] != nil {
				t.Fatalf("racer %d errored: %v", i, errs[i])
			}
			switch results[i] {
			case dishstore.UpdateSuccess:
				wins++
			case dishstore.UpdateVersionMismatch:
				mismatches++
			default:
				t.Errorf("racer %d got %s", i, results[i])
			}
		}
		if wins != 1 {
			t.Errorf("%d racers succeeded against one version, want exactly 1", wins)
		}
		if mismatches != racers-1 {
			t.Errorf("%d racers observed VERSION_MISMATCH, want %d", mismatches, racers-1)
		}

		fresh, err := dishes.GetByStrongID(ctx, pizza.StrongID)
		if err != nil {
			t.Fatalf("GetByStrongID: %v", err)
		}
		if fresh.Version != pizza.Version+1 {
			t.Errorf("stored version = %d, want %d", fresh.Version, pizza.Version+1)
		}
	})

	t.Run("RacingCreates_AtMostOneWins", func(t *testing.T) {
		dishes, _ := factory(t)
		Seed(t, dishes)

		const racers = 8
		var wg sync.WaitGroup
		errs := make([]error, racers)

		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = dishes.Create(ctx, "borscht", "Borscht", dishstore.NewMealTimeSet(dishstore.Lunch))
			}(i)
		}
		wg.Wait()

		var wins int
		for i := 0; i < racers; i++ {
			switch {
			case errs[i] == nil:
				wins++
			case errors.Is(errs[i], dishstore.ErrDuplicateValue):
			default:
				t.Errorf("racer %d got unexpected error: %v", i, errs[i])
			}
		}
		if wins != 1 {
			t.Errorf("%d racing creates succeeded for one public id, want exactly 1", wins)
		}

		all, err := dishes.All(ctx)
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		var count int
		for _, d := range all {
			if d.PublicID == "borscht" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("store holds %d borscht dishes, want 1", count)
		}
	})

	t.Run("ReadsDoNotTear", func(t *testing.T) {
		dishes, _ := factory(t)
		seeded := Seed(t, dishes)
		granola := seeded["granola"]

		done := make(chan struct{})
		go func() {
			defer close(done)
			current := granola
			// Update i commits version i+2, so even versions carry
			// "Granola Bar" and odd versions carry "Granola".
			for i := 0; i < 50; i++ {
				name := "Granola"
				if i%2 == 0 {
					name = "Granola Bar"
				}
				status, err := dishes.UpdateDish(ctx, current, dishstore.Modification{}.WithName(name))
				if err != nil || status != dishstore.UpdateSuccess {
					return
				}
				var gerr error
				current, gerr = dishes.GetByStrongID(ctx, granola.StrongID)
				if gerr != nil {
					return
				}
			}
		}()

		// Every observed snapshot must be internally coherent: the name
		// matches what that snapshot's version wrote.
		for i := 0; i < 200; i++ {
			got, err := dishes.GetByStrongID(ctx, granola.StrongID)
			if err != nil {
				t.Fatalf("GetByStrongID: %v", err)
			}
			wantName := "Granola"
			if got.Version%2 == 0 {
				wantName = "Granola Bar"
			}
			if got.Name != wantName {
				t.Fatalf("torn read: version %d with name %q", got.Version, got.Name)
			}
		}
		<-done
	})
}
