// Package dynamostore persists the dish store and menu timeline in
// DynamoDB.
//
// # Tables
//
//   - DishTable: one item per strong id, live or tombstoned. Deletion
//     sets a deleted_at attribute instead of removing the item, so a
//     strong id's state stays IS_DELETED forever.
//   - ConstraintTable: one item per live unique value (dish name, dish
//     public id), written transactionally with the dish item. Conditional
//     puts on this table are what reject duplicate values under
//     concurrency.
//   - RefTable: one reference-count item per dish referenced by the menu
//     timeline, maintained transactionally by timeline writes. Dish
//     deletion includes a condition check on this item, which closes the
//     window between "check references" and "delete".
//   - TimelineTable: one item per day menu, keyed by date.
//
// All multi-item invariants are enforced with TransactWriteItems plus
// condition expressions; no operation observes partial commits.
package dynamostore

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ErrConcurrentModification is returned when an operation loses a race it
// cannot classify as one of the contract's enumerated outcomes (e.g. a
// delete racing an update that changed the dish's unique values). The
// caller should re-fetch and retry.
var ErrConcurrentModification = errors.New("dynamostore: dish was modified concurrently")

// Config holds table configuration for the store.
type Config struct {
	// DishTable holds one item per dish strong id.
	// Default: "wellfedcat_dishes"
	DishTable string

	// ConstraintTable holds one item per live unique value.
	// Default: "wellfedcat_unique_constraints"
	ConstraintTable string

	// RefTable holds one reference-count item per timeline-referenced dish.
	// Default: "wellfedcat_dish_refs"
	RefTable string

	// TimelineTable holds one item per day menu.
	// Default: "wellfedcat_day_menus"
	TimelineTable string
}

// DefaultConfig returns the default table names.
func DefaultConfig() Config {
	return Config{
		DishTable:       "wellfedcat_dishes",
		ConstraintTable: "wellfedcat_unique_constraints",
		RefTable:        "wellfedcat_dish_refs",
		TimelineTable:   "wellfedcat_day_menus",
	}
}

// validate ensures config values are usable.
func (c *Config) validate() {
	if c.DishTable == "" {
		c.DishTable = "wellfedcat_dishes"
	}
	if c.ConstraintTable == "" {
		c.ConstraintTable = "wellfedcat_unique_constraints"
	}
	if c.RefTable == "" {
		c.RefTable = "wellfedcat_dish_refs"
	}
	if c.TimelineTable == "" {
		c.TimelineTable = "wellfedcat_day_menus"
	}
}

// Store provides DynamoDB-backed dish and timeline storage.
// Use Dishes and Timeline for the contract-typed views.
type Store struct {
	client *dynamodb.Client
	config Config
}

// New creates a new Store instance.
func New(client *dynamodb.Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
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
