package sqlitestore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

// TimelineStore is the SQLite implementation of timeline.EditableStore.
// It also serves as the dish store's reference guard.
type TimelineStore struct {
	s *Store
}

var (
	_ timeline.EditableStore   = (*TimelineStore)(nil)
	_ dishstore.ReferenceGuard = (*TimelineStore)(nil)
)

func dayKey(t time.Time) string {
	return timeline.DateOf(t).Format(time.DateOnly)
}

// Day returns the day menu for a date.
func (t *TimelineStore) Day(ctx context.Context, date time.Time) (timeline.DayMenu, error) {
	rows, err := t.s.db.QueryContext(ctx,
		`SELECT meal_time, strong_id FROM day_menu_dish WHERE day = ? ORDER BY meal_time, position`,
		dayKey(date))
	if err != nil {
		return timeline.DayMenu{}, fmt.Errorf("sqlitestore: query day menu: %w", err)
	}
	defer func() { _ = rows.Close() }()

	day := timeline.NewDayMenu(date)
	found := false
	for rows.Next() {
		var mealTime, strongID string
		if err := rows.Scan(&mealTime, &strongID); err != nil {
			return timeline.DayMenu{}, fmt.Errorf("sqlitestore: scan day menu: %w", err)
		}
		id, err := uuid.Parse(strongID)
		if err != nil {
			return timeline.DayMenu{}, fmt.Errorf("sqlitestore: corrupt strong id %q: %w", strongID, err)
		}
		day.Add(dishstore.MealTime(mealTime), id)
		found = true
	}
	if err := rows.Err(); err != nil {
		return timeline.DayMenu{}, fmt.Errorf("sqlitestore: iterate day menu: %w", err)
	}
	if !found {
		return timeline.DayMenu{}, timeline.ErrNotFound
	}
	return day, nil
}

// Range returns the day menus between from and to inclusive, in date order.
func (t *TimelineStore) Range(ctx context.Context, from, to time.Time) ([]timeline.DayMenu, error) {
	rows, err := t.s.db.QueryContext(ctx,
		`SELECT day, meal_time, strong_id FROM day_menu_dish WHERE day BETWEEN ? AND ? ORDER BY day, meal_time, position`,
		dayKey(from), dayKey(to))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query day menus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []timeline.DayMenu
	for rows.Next() {
		var day, mealTime, strongID string
		if err := rows.Scan(&day, &mealTime, &strongID); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan day menu: %w", err)
		}
		date, err := time.ParseInLocation(time.DateOnly, day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: corrupt day %q: %w", day, err)
		}
		id, err := uuid.Parse(strongID)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: corrupt strong id %q: %w", strongID, err)
		}
		if len(out) == 0 || !out[len(out)-1].Date.Equal(date) {
			out = append(out, timeline.NewDayMenu(date))
		}
		out[len(out)-1].Add(dishstore.MealTime(mealTime), id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: iterate day menus: %w", err)
	}
	return out, nil
}

// UsesDish reports whether any day menu references the dish.
func (t *TimelineStore) UsesDish(ctx context.Context, strongID uuid.UUID) (bool, error) {
	var n int
	err := t.s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM day_menu_dish WHERE strong_id = ?`, strongID.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlitestore: count references: %w", err)
	}
	return n > 0, nil
}

// PutDay stores or replaces the day menu for its date. Dish liveness is
// checked inside the same transaction as the write.
func (t *TimelineStore) PutDay(ctx context.Context, day timeline.DayMenu) error {
	if err := day.Validate(); err != nil {
		return err
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	tx, err := t.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range day.Dishes() {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM dish WHERE deleted = 0 AND strong_id = ?`, id.String()).Scan(&n)
		if err != nil {
			return fmt.Errorf("sqlitestore: check dish: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", timeline.ErrUnknownDish, id)
		}
	}

	key := dayKey(day.Date)
	if _, err := tx.ExecContext(ctx, `DELETE FROM day_menu_dish WHERE day = ?`, key); err != nil {
		return fmt.Errorf("sqlitestore: clear day menu: %w", err)
	}
	for _, mt := range dishstore.MealTimes() {
		for pos, id := range day.Meals[mt] {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO day_menu_dish (day, meal_time, position, strong_id) VALUES (?, ?, ?, ?)`,
				key, string(mt), pos, id.String())
			if err != nil {
				return fmt.Errorf("sqlitestore: insert day menu dish: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit day menu: %w", err)
	}
	return nil
}

// RemoveDay deletes the day menu for a date, releasing its references.
func (t *TimelineStore) RemoveDay(ctx context.Context, date time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	res, err := t.s.db.ExecContext(ctx, `DELETE FROM day_menu_dish WHERE day = ?`, dayKey(date))
	if err != nil {
		return fmt.Errorf("sqlitestore: delete day menu: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: rows affected: %w", err)
	}
	if n == 0 {
		return timeline.ErrNotFound
	}
	return nil
}
