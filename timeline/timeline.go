// Package timeline models the menu timeline: which dishes are scheduled
// into which meal slots on which days.
//
// Timeline entries reference dishes by strong id only. The timeline store
// and the dish store enforce one cross-store invariant together: a dish
// referenced by any day menu cannot be deleted, and a day menu cannot
// reference a dish that is missing or deleted.
package timeline

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
)

var (
	// ErrNotFound is returned when no day menu exists for a date.
	ErrNotFound = errors.New("timeline: day menu not found")

	// ErrUnknownDish is returned when a day menu references a strong id
	// with no live dish behind it.
	ErrUnknownDish = errors.New("timeline: day menu references unknown dish")

	// ErrInvalidMealTime is returned when a day menu uses a meal time
	// outside the known set.
	ErrInvalidMealTime = errors.New("timeline: invalid meal time")
)

// DateOf truncates t to its calendar day in UTC. All timeline dates are
// normalized through this.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayMenu is the set of dishes scheduled for one day, per meal time.
type DayMenu struct {
	Date  time.Time
	Meals map[dishstore.MealTime][]uuid.UUID
}

// NewDayMenu returns an empty day menu for the given date.
func NewDayMenu(date time.Time) DayMenu {
	return DayMenu{
		Date:  DateOf(date),
		Meals: make(map[dishstore.MealTime][]uuid.UUID),
	}
}

// Add schedules a dish into a meal slot.
func (d *DayMenu) Add(meal dishstore.MealTime, strongID uuid.UUID) {
	if d.Meals == nil {
		d.Meals = make(map[dishstore.MealTime][]uuid.UUID)
	}
	d.Meals[meal] = append(d.Meals[meal], strongID)
}

// Dishes returns every strong id referenced by the day menu,
// duplicates removed.
func (d DayMenu) Dishes() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, mt := range dishstore.MealTimes() {
		for _, id := range d.Meals[mt] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Uses reports whether the day menu references the dish.
func (d DayMenu) Uses(strongID uuid.UUID) bool {
	for _, ids := range d.Meals {
		for _, id := range ids {
			if id == strongID {
				return true
			}
		}
	}
	return false
}

// Validate checks the day menu's meal times against the known set.
func (d DayMenu) Validate() error {
	for mt := range d.Meals {
		if !mt.Valid() {
			return ErrInvalidMealTime
		}
	}
	return nil
}

// Clone returns an independent copy of the day menu.
func (d DayMenu) Clone() DayMenu {
	c := DayMenu{Date: d.Date, Meals: make(map[dishstore.MealTime][]uuid.UUID, len(d.Meals))}
	for mt, ids := range d.Meals {
		c.Meals[mt] = append([]uuid.UUID(nil), ids...)
	}
	return c
}

// Menu is a consecutive run of day menus, e.g. a week's plan.
type Menu []DayMenu

// Dishes returns every strong id referenced by any day of the menu,
// duplicates removed.
func (m Menu) Dishes() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, day := range m {
		for _, id := range day.Dishes() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
