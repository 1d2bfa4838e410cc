// Package sqlitestore persists the dish store and menu timeline in a
// single SQLite database.
//
// Both views share one database and one write lock, so the cross-store
// delete guard runs inside the same transaction as the delete. Uniqueness
// of public id and name is additionally enforced by partial unique
// indexes scoped to live rows; deleted rows stay behind as tombstones so
// a strong id's state remains IS_DELETED forever.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Config holds configuration for the SQLite store.
type Config struct {
	// Path is the database file path. Default: "wellfedcat.db".
	Path string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Path: "wellfedcat.db"}
}

func (c *Config) validate() {
	if c.Path == "" {
		c.Path = "wellfedcat.db"
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS dish (
	strong_id  TEXT PRIMARY KEY,
	public_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	meal_times TEXT NOT NULL,
	version    INTEGER NOT NULL,
	deleted    INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS dish_live_public_id ON dish(public_id) WHERE deleted = 0;
CREATE UNIQUE INDEX IF NOT EXISTS dish_live_name ON dish(name) WHERE deleted = 0;

CREATE TABLE IF NOT EXISTS day_menu_dish (
	day       TEXT NOT NULL,
	meal_time TEXT NOT NULL,
	position  INTEGER NOT NULL,
	strong_id TEXT NOT NULL REFERENCES dish(strong_id),
	PRIMARY KEY (day, meal_time, position)
);
CREATE INDEX IF NOT EXISTS day_menu_dish_strong_id ON day_menu_dish(strong_id);
`

// Store owns the database connection. Use Dishes and Timeline for the
// contract-typed views.
type Store struct {
	db *sql.DB

	// mu serializes mutations. SQLite allows a single writer anyway;
	// taking the lock up front turns driver-level busy errors into
	// plain queueing and keeps read snapshots coherent.
	mu sync.Mutex
}

// Open opens (creating if necessary) the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	cfg.validate()

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", cfg.Path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dishes returns the dish store view.
func (s *Store) Dishes() *DishStore {
	return &DishStore{s: s}
}

// Timeline returns the menu timeline view.
func (s *Store) Timeline() *TimelineStore {
	return &TimelineStore{s: s}
}
