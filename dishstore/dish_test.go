package dishstore_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
)

func TestValidatePublicID(t *testing.T) {
	tests := []struct {
		name     string
		publicID string
		wantErr  error
	}{
		{"simple", "granola", nil},
		{"with digits and underscore", "steak_2", nil},
		{"mixed case", "PastaCarbonara", nil},
		{"max length", strings.Repeat("a", dishstore.MaxPublicIDLength), nil},
		{"empty", "", dishstore.ErrEmptyPublicID},
		{"too long", strings.Repeat("a", dishstore.MaxPublicIDLength+1), dishstore.ErrPublicIDTooLong},
		{"space", "pasta carbonara", dishstore.ErrInvalidPublicID},
		{"hyphen", "pasta-carbonara", dishstore.ErrInvalidPublicID},
		{"non-ascii letter", "blinchikiй", dishstore.ErrInvalidPublicID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dishstore.ValidatePublicID(tt.publicID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePublicID(%q) = %v, want %v", tt.publicID, err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name     string
		dishName string
		wantErr  error
	}{
		{"simple", "Granola", nil},
		{"with spaces", "Pasta Carbonara", nil},
		{"unicode", "Блинчики", nil},
		{"max length", strings.Repeat("x", dishstore.MaxNameLength), nil},
		{"max length unicode", strings.Repeat("ы", dishstore.MaxNameLength), nil},
		{"empty", "", dishstore.ErrEmptyName},
		{"too long", strings.Repeat("x", dishstore.MaxNameLength+1), dishstore.ErrNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dishstore.ValidateName(tt.dishName)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.dishName, err, tt.wantErr)
			}
		})
	}
}

func TestRestore(t *testing.T) {
	id := uuid.New()

	dish, err := dishstore.Restore(id, "granola", "Granola", dishstore.NewMealTimeSet(dishstore.Breakfast), 3)
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if dish.StrongID != id {
		t.Errorf("StrongID = %s, want %s", dish.StrongID, id)
	}
	if dish.Version != 3 {
		t.Errorf("Version = %d, want 3", dish.Version)
	}

	if _, err := dishstore.Restore(id, "bad id!", "Granola", nil, 1); !errors.Is(err, dishstore.ErrInvalidPublicID) {
		t.Errorf("expected ErrInvalidPublicID for malformed public id, got %v", err)
	}
	if _, err := dishstore.Restore(id, "granola", "", nil, 1); !errors.Is(err, dishstore.ErrEmptyName) {
		t.Errorf("expected ErrEmptyName for empty name, got %v", err)
	}
	if _, err := dishstore.Restore(id, "granola", "Granola", nil, 0); err == nil {
		t.Error("expected error for version 0")
	}
}

func TestRestore_ClonesMealTimes(t *testing.T) {
	times := dishstore.NewMealTimeSet(dishstore.Breakfast)
	dish, err := dishstore.Restore(uuid.New(), "granola", "Granola", times, 1)
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}

	times[dishstore.Supper] = struct{}{}
	if dish.SuitableFor.Contains(dishstore.Supper) {
		t.Error("snapshot shares meal time set with caller")
	}
}

func TestDishEqual(t *testing.T) {
	a, _ := dishstore.Restore(uuid.New(), "granola", "Granola", dishstore.NewMealTimeSet(dishstore.Breakfast), 1)
	b := a.Clone()

	if !a.Equal(b) {
		t.Error("identical snapshots should be equal")
	}

	c := b
	c.Name = "Granola Bar"
	c.Version = a.Version // same version, different content
	if a.Equal(c) {
		t.Error("snapshots with different names should not be equal")
	}

	other, _ := dishstore.Restore(uuid.New(), "granola2", "Granola", dishstore.NewMealTimeSet(dishstore.Breakfast), 2)
	if a.Equal(other) {
		t.Error("snapshots of different dishes should not be equal")
	}
	if a.Same(other) {
		t.Error("Same should be false for different strong ids")
	}
}

func TestDishEqual_PanicsOnVersionSkew(t *testing.T) {
	a, _ := dishstore.Restore(uuid.New(), "granola", "Granola", dishstore.NewMealTimeSet(dishstore.Breakfast), 1)
	stale := a
	a.Version = 2

	defer func() {
		if recover() == nil {
			t.Error("comparing same dish at different versions should panic")
		}
	}()
	a.Equal(stale)
}

func TestDishClone_Independent(t *testing.T) {
	a, _ := dishstore.Restore(uuid.New(), "pizza", "Pizza", dishstore.NewMealTimeSet(dishstore.Lunch), 1)
	b := a.Clone()
	b.SuitableFor[dishstore.Supper] = struct{}{}

	if a.SuitableFor.Contains(dishstore.Supper) {
		t.Error("clone shares meal time set with original")
	}
}
