package dynamostore_test

import (
	"errors"
	"testing"

	"github.com/wellfedcat/wellfedcat/dynamostore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := dynamostore.DefaultConfig()

	if cfg.DishTable != "wellfedcat_dishes" {
		t.Errorf("DishTable = %q", cfg.DishTable)
	}
	if cfg.ConstraintTable != "wellfedcat_unique_constraints" {
		t.Errorf("ConstraintTable = %q", cfg.ConstraintTable)
	}
	if cfg.RefTable != "wellfedcat_dish_refs" {
		t.Errorf("RefTable = %q", cfg.RefTable)
	}
	if cfg.TimelineTable != "wellfedcat_day_menus" {
		t.Errorf("TimelineTable = %q", cfg.TimelineTable)
	}
}

func TestNew_EmptyConfigGetsDefaults(t *testing.T) {
	// Nil client is fine for construction; config validation must not
	// leave empty table names behind.
	s := dynamostore.New(nil, dynamostore.Config{})
	if s == nil {
		t.Fatal("expected non-nil Store")
	}
	if s.Dishes() == nil {
		t.Error("expected non-nil dish view")
	}
	if s.Timeline() == nil {
		t.Error("expected non-nil timeline view")
	}
}

func TestNew_PreservesCustomTableNames(t *testing.T) {
	cfg := dynamostore.Config{
		DishTable:       "custom_dishes",
		ConstraintTable: "custom_constraints",
		RefTable:        "custom_refs",
		TimelineTable:   "custom_days",
	}
	if s := dynamostore.New(nil, cfg); s == nil {
		t.Fatal("expected non-nil Store")
	}
}

func TestErrConcurrentModification(t *testing.T) {
	if dynamostore.ErrConcurrentModification.Error() == "" {
		t.Error("sentinel has empty message")
	}
	if !errors.Is(dynamostore.ErrConcurrentModification, dynamostore.ErrConcurrentModification) {
		t.Error("sentinel does not match itself")
	}
}
