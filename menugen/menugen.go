// Package menugen fills menu timelines from the dish store.
//
// It is a pure consumer of the dish store's read contract: it picks, for
// each meal slot, a suitable dish while minimizing repetition, preferring
// dishes that have not been picked recently.
package menugen

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

// ErrNoSuitableDish is returned when the store holds no dish suitable
// for the requested meal time.
var ErrNoSuitableDish = errors.New("menugen: no dish suitable for meal time")

// Picker chooses dishes per meal time, least-recently-picked first.
// A Picker keeps its pick history in memory and is not safe for
// concurrent use.
type Picker struct {
	dishes dishstore.Store
	rng    *rand.Rand

	// lastPicked maps strong id to the tick of its most recent pick.
	lastPicked map[uuid.UUID]int
	tick       int
}

// NewPicker creates a picker over the store's read contract.
func NewPicker(dishes dishstore.Store) *Picker {
	return NewPickerSeeded(dishes, time.Now().UnixNano())
}

// NewPickerSeeded creates a picker with a fixed random seed for
// reproducible tie-breaking.
func NewPickerSeeded(dishes dishstore.Store, seed int64) *Picker {
	return &Picker{
		dishes:     dishes,
		rng:        rand.New(rand.NewSource(seed)),
		lastPicked: make(map[uuid.UUID]int),
	}
}

// Pick returns a dish suitable for the meal time and records the pick.
// Among the suitable dishes it prefers the one picked longest ago;
// never-picked dishes come first, ties break randomly.
func (p *Picker) Pick(ctx context.Context, mealTime dishstore.MealTime) (dishstore.Dish, error) {
	all, err := p.dishes.All(ctx)
	if err != nil {
		return dishstore.Dish{}, err
	}

	var candidates []dishstore.Dish
	for _, d := range all {
		if d.SuitableFor.Contains(mealTime) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return dishstore.Dish{}, ErrNoSuitableDish
	}

	best := -1
	bestTick := 0
	ties := 0
	for i, d := range candidates {
		tick, picked := p.lastPicked[d.StrongID]
		if !picked {
			tick = -1
		}
		switch {
		case best == -1 || tick < bestTick:
			best, bestTick, ties = i, tick, 1
		case tick == bestTick:
			// Reservoir-style random tie-break.
			ties++
			if p.rng.Intn(ties) == 0 {
				best = i
			}
		}
	}

	chosen := candidates[best]
	p.lastPicked[chosen.StrongID] = p.tick
	p.tick++
	return chosen, nil
}

// Manager generates and fills menu timelines.
type Manager struct {
	picker *Picker
}

// NewManager creates a manager picking from the store's read contract.
func NewManager(dishes dishstore.Store) *Manager {
	return &Manager{picker: NewPicker(dishes)}
}

// NewManagerSeeded creates a manager with a fixed random seed.
func NewManagerSeeded(dishes dishstore.Store, seed int64) *Manager {
	return &Manager{picker: NewPickerSeeded(dishes, seed)}
}

// Fill assigns one dish to every meal slot of every day in the menu.
func (m *Manager) Fill(ctx context.Context, menu timeline.Menu) error {
	for i := range menu {
		for _, mt := range dishstore.MealTimes() {
			dish, err := m.picker.Pick(ctx, mt)
			if err != nil {
				return err
			}
			menu[i].Meals[mt] = []uuid.UUID{dish.StrongID}
		}
	}
	return nil
}

// Generate builds a filled menu of daysCount consecutive days starting
// at startDay.
func (m *Manager) Generate(ctx context.Context, startDay time.Time, daysCount int) (timeline.Menu, error) {
	menu := make(timeline.Menu, 0, daysCount)
	day := timeline.DateOf(startDay)
	for i := 0; i < daysCount; i++ {
		menu = append(menu, timeline.NewDayMenu(day))
		day = day.AddDate(0, 0, 1)
	}
	if err := m.Fill(ctx, menu); err != nil {
		return nil, err
	}
	return menu, nil
}

// GenerateWeek builds a filled seven-day menu starting at startDay.
func (m *Manager) GenerateWeek(ctx context.Context, startDay time.Time) (timeline.Menu, error) {
	return m.Generate(ctx, startDay, 7)
}
