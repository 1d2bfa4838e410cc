package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
)

// DishStore is the SQLite implementation of dishstore.EditableStore.
type DishStore struct {
	s *Store
}

var _ dishstore.EditableStore = (*DishStore)(nil)

func encodeMealTimes(set dishstore.MealTimeSet) string {
	times := set.Slice()
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func decodeMealTimes(s string) dishstore.MealTimeSet {
	set := dishstore.NewMealTimeSet()
	if s == "" {
		return set
	}
	for _, part := range strings.Split(s, ",") {
		set[dishstore.MealTime(part)] = struct{}{}
	}
	return set
}

// scanDish rebuilds a snapshot from one dish row, re-running contract
// validation on the persisted values.
func scanDish(strongID, publicID, name, mealTimes string, version int) (dishstore.Dish, error) {
	id, err := uuid.Parse(strongID)
	if err != nil {
		return dishstore.Dish{}, fmt.Errorf("sqlitestore: corrupt strong id %q: %w", strongID, err)
	}
	return dishstore.Restore(id, publicID, name, decodeMealTimes(mealTimes), version)
}

const liveDishColumns = `strong_id, public_id, name, meal_times, version`

func (d *DishStore) getBy(ctx context.Context, where string, arg any) (dishstore.Dish, error) {
	row := d.s.db.QueryRowContext(ctx,
		`SELECT `+liveDishColumns+` FROM dish WHERE deleted = 0 AND `+where, arg)

	var strongID, publicID, name, mealTimes string
	var version int
	if err := row.Scan(&strongID, &publicID, &name, &mealTimes, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dishstore.Dish{}, dishstore.ErrNotFound
		}
		return dishstore.Dish{}, fmt.Errorf("sqlitestore: query dish: %w", err)
	}
	return scanDish(strongID, publicID, name, mealTimes, version)
}

// All returns every live dish, in no particular order.
func (d *DishStore) All(ctx context.Context) ([]dishstore.Dish, error) {
	rows, err := d.s.db.QueryContext(ctx,
		`SELECT `+liveDishColumns+` FROM dish WHERE deleted = 0`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query dishes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []dishstore.Dish{}
	for rows.Next() {
		var strongID, publicID, name, mealTimes string
		var version int
		if err := rows.Scan(&strongID, &publicID, &name, &mealTimes, &version); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan dish: %w", err)
		}
		dish, err := scanDish(strongID, publicID, name, mealTimes, version)
		if err != nil {
			return nil, err
		}
		out = append(out, dish)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: iterate dishes: %w", err)
	}
	return out, nil
}

// GetByName returns the live dish with the given name.
func (d *DishStore) GetByName(ctx context.Context, name string) (dishstore.Dish, error) {
	return d.getBy(ctx, `name = ?`, name)
}

// GetByPublicID returns the live dish with the given public id.
func (d *DishStore) GetByPublicID(ctx context.Context, publicID string) (dishstore.Dish, error) {
	return d.getBy(ctx, `public_id = ?`, publicID)
}

// GetByStrongID returns the live dish with the given strong id.
func (d *DishStore) GetByStrongID(ctx context.Context, strongID uuid.UUID) (dishstore.Dish, error) {
	return d.getBy(ctx, `strong_id = ?`, strongID.String())
}

func liveValueTaken(ctx context.Context, tx *sql.Tx, column, value string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dish WHERE deleted = 0 AND `+column+` = ?`, value).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlitestore: check %s uniqueness: %w", column, err)
	}
	return n > 0, nil
}

// Create stores a new dish with a fresh strong id and version 1.
func (d *DishStore) Create(ctx context.Context, publicID, name string, suitableFor dishstore.MealTimeSet) (dishstore.Dish, error) {
	if err := dishstore.ValidatePublicID(publicID); err != nil {
		return dishstore.Dish{}, err
	}
	if err := dishstore.ValidateName(name); err != nil {
		return dishstore.Dish{}, err
	}

	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	tx, err := d.s.db.BeginTx(ctx, nil)
	if err != nil {
		return dishstore.Dish{}, fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if taken, err := liveValueTaken(ctx, tx, "public_id", publicID); err != nil {
		return dishstore.Dish{}, err
	} else if taken {
		return dishstore.Dish{}, dishstore.ErrDuplicateValue
	}
	if taken, err := liveValueTaken(ctx, tx, "name", name); err != nil {
		return dishstore.Dish{}, err
	} else if taken {
		return dishstore.Dish{}, dishstore.ErrDuplicateValue
	}

	dish := dishstore.Dish{
		StrongID:    uuid.New(),
		PublicID:    publicID,
		Name:        name,
		SuitableFor: suitableFor.Clone(),
		Version:     1,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO dish (strong_id, public_id, name, meal_times, version, deleted) VALUES (?, ?, ?, ?, 1, 0)`,
		dish.StrongID.String(), publicID, name, encodeMealTimes(suitableFor))
	if err != nil {
		return dishstore.Dish{}, fmt.Errorf("sqlitestore: insert dish: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return dishstore.Dish{}, fmt.Errorf("sqlitestore: commit create: %w", err)
	}
	return dish, nil
}

// Delete removes the dish unless a timeline entry still references it.
// The reference check runs inside the delete transaction.
func (d *DishStore) Delete(ctx context.Context, strongID uuid.UUID) (dishstore.DeleteStatus, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	tx, err := d.s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int
	err = tx.QueryRowContext(ctx,
		`SELECT deleted FROM dish WHERE strong_id = ?`, strongID.String()).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && deleted != 0) {
		return dishstore.DeleteDoesNotExist, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: query dish: %w", err)
	}

	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM day_menu_dish WHERE strong_id = ?`, strongID.String()).Scan(&refs)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: count references: %w", err)
	}
	if refs > 0 {
		return dishstore.DeleteUsedInMenuTimeline, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE dish SET deleted = 1 WHERE strong_id = ?`, strongID.String()); err != nil {
		return 0, fmt.Errorf("sqlitestore: mark deleted: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlitestore: commit delete: %w", err)
	}
	return dishstore.DeleteSuccess, nil
}

// DeleteDish deletes using the snapshot's strong id.
func (d *DishStore) DeleteDish(ctx context.Context, dish dishstore.Dish) (dishstore.DeleteStatus, error) {
	return d.Delete(ctx, dish.StrongID)
}

// UpdateDish commits a new snapshot if the submitted one is still current.
func (d *DishStore) UpdateDish(ctx context.Context, dish dishstore.Dish, mod dishstore.Modification) (dishstore.UpdateStatus, error) {
	if err := mod.Validate(); err != nil {
		return 0, err
	}

	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	tx, err := d.s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var publicID, name, mealTimes string
	var version int
	err = tx.QueryRowContext(ctx,
		`SELECT public_id, name, meal_times, version FROM dish WHERE deleted = 0 AND strong_id = ?`,
		dish.StrongID.String()).Scan(&publicID, &name, &mealTimes, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return dishstore.UpdateNotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: query dish: %w", err)
	}
	if version != dish.Version {
		return dishstore.UpdateVersionMismatch, nil
	}

	current, err := dishstore.Restore(dish.StrongID, publicID, name, decodeMealTimes(mealTimes), version)
	if err != nil {
		return 0, err
	}

	// Re-validate only the touched uniqueness constraints.
	if mod.PublicID != nil && *mod.PublicID != current.PublicID {
		if taken, err := liveValueTaken(ctx, tx, "public_id", *mod.PublicID); err != nil {
			return 0, err
		} else if taken {
			return 0, dishstore.ErrDuplicateValue
		}
	}
	if mod.Name != nil && *mod.Name != current.Name {
		if taken, err := liveValueTaken(ctx, tx, "name", *mod.Name); err != nil {
			return 0, err
		} else if taken {
			return 0, dishstore.ErrDuplicateValue
		}
	}

	next := mod.Apply(current)
	res, err := tx.ExecContext(ctx,
		`UPDATE dish SET public_id = ?, name = ?, meal_times = ?, version = ? WHERE strong_id = ? AND version = ?`,
		next.PublicID, next.Name, encodeMealTimes(next.SuitableFor), next.Version,
		dish.StrongID.String(), dish.Version)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: update dish: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("sqlitestore: rows affected: %w", err)
	} else if n != 1 {
		return dishstore.UpdateVersionMismatch, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlitestore: commit update: %w", err)
	}
	return dishstore.UpdateSuccess, nil
}

// State reports the lifecycle state of a strong id.
func (d *DishStore) State(ctx context.Context, strongID uuid.UUID) (dishstore.State, error) {
	var deleted int
	err := d.s.db.QueryRowContext(ctx,
		`SELECT deleted FROM dish WHERE strong_id = ?`, strongID.String()).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return dishstore.DishDoesNotExist, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: query dish state: %w", err)
	}
	if deleted != 0 {
		return dishstore.DishDeleted, nil
	}
	return dishstore.DishExists, nil
}
