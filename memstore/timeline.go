package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

// TimelineStore is the in-memory implementation of timeline.EditableStore.
// It also serves as the dish store's reference guard.
type TimelineStore struct {
	s *Store
}

var (
	_ timeline.EditableStore   = (*TimelineStore)(nil)
	_ dishstore.ReferenceGuard = (*TimelineStore)(nil)
)

// Day returns the day menu for a date.
func (t *TimelineStore) Day(ctx context.Context, date time.Time) (timeline.DayMenu, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	day, ok := t.s.days[dayKey(date)]
	if !ok {
		return timeline.DayMenu{}, timeline.ErrNotFound
	}
	return day.Clone(), nil
}

// Range returns the day menus between from and to inclusive, in date order.
func (t *TimelineStore) Range(ctx context.Context, from, to time.Time) ([]timeline.DayMenu, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	first, last := timeline.DateOf(from), timeline.DateOf(to)
	var out []timeline.DayMenu
	for _, day := range t.s.days {
		if day.Date.Before(first) || day.Date.After(last) {
			continue
		}
		out = append(out, day.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UsesDish reports whether any day menu references the dish.
func (t *TimelineStore) UsesDish(ctx context.Context, strongID uuid.UUID) (bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.usesDishLocked(strongID), nil
}

// PutDay stores or replaces the day menu for its date. Every referenced
// dish must be live; the check shares the store lock with dish deletion.
func (t *TimelineStore) PutDay(ctx context.Context, day timeline.DayMenu) error {
	if err := day.Validate(); err != nil {
		return err
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, id := range day.Dishes() {
		if _, ok := t.s.dishes[id]; !ok {
			return fmt.Errorf("%w: %s", timeline.ErrUnknownDish, id)
		}
	}
	clone := day.Clone()
	clone.Date = timeline.DateOf(day.Date)
	t.s.days[dayKey(day.Date)] = clone
	return nil
}

// RemoveDay deletes the day menu for a date, releasing its references.
func (t *TimelineStore) RemoveDay(ctx context.Context, date time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	key := dayKey(date)
	if _, ok := t.s.days[key]; !ok {
		return timeline.ErrNotFound
	}
	delete(t.s.days, key)
	return nil
}
