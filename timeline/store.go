package timeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the read side of the menu timeline.
type Store interface {
	// Day returns the day menu for a date, or ErrNotFound.
	Day(ctx context.Context, date time.Time) (DayMenu, error)

	// Range returns the day menus with from <= date <= to, in date order.
	// Days without a menu are simply absent from the result.
	Range(ctx context.Context, from, to time.Time) ([]DayMenu, error)

	// UsesDish reports whether any day menu references the dish. This is
	// the predicate the dish store consults before deleting.
	UsesDish(ctx context.Context, strongID uuid.UUID) (bool, error)
}

// EditableStore extends Store with mutations.
type EditableStore interface {
	Store

	// PutDay stores or replaces the day menu for its date. Every
	// referenced strong id must belong to a live dish (ErrUnknownDish
	// otherwise), checked atomically with the write.
	PutDay(ctx context.Context, day DayMenu) error

	// RemoveDay deletes the day menu for a date, releasing its dish
	// references. Returns ErrNotFound if no menu exists for the date.
	RemoveDay(ctx context.Context, date time.Time) error
}
