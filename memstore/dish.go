package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
)

// DishStore is the in-memory implementation of dishstore.EditableStore.
type DishStore struct {
	s *Store
}

var _ dishstore.EditableStore = (*DishStore)(nil)

// All returns a snapshot of every live dish, in no particular order.
func (d *DishStore) All(ctx context.Context) ([]dishstore.Dish, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	out := make([]dishstore.Dish, 0, len(d.s.dishes))
	for _, dish := range d.s.dishes {
		out = append(out, dish.Clone())
	}
	return out, nil
}

// GetByName returns the live dish with the given name.
func (d *DishStore) GetByName(ctx context.Context, name string) (dishstore.Dish, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	id, ok := d.s.byName[name]
	if !ok {
		return dishstore.Dish{}, dishstore.ErrNotFound
	}
	return d.s.dishes[id].Clone(), nil
}

// GetByPublicID returns the live dish with the given public id.
func (d *DishStore) GetByPublicID(ctx context.Context, publicID string) (dishstore.Dish, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	id, ok := d.s.byPublicID[publicID]
	if !ok {
		return dishstore.Dish{}, dishstore.ErrNotFound
	}
	return d.s.dishes[id].Clone(), nil
}

// GetByStrongID returns the live dish with the given strong id.
func (d *DishStore) GetByStrongID(ctx context.Context, strongID uuid.UUID) (dishstore.Dish, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	dish, ok := d.s.dishes[strongID]
	if !ok {
		return dishstore.Dish{}, dishstore.ErrNotFound
	}
	return dish.Clone(), nil
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

	if _, taken := d.s.byPublicID[publicID]; taken {
		return dishstore.Dish{}, dishstore.ErrDuplicateValue
	}
	if _, taken := d.s.byName[name]; taken {
		return dishstore.Dish{}, dishstore.ErrDuplicateValue
	}

	dish := dishstore.Dish{
		StrongID:    uuid.New(),
		PublicID:    publicID,
		Name:        name,
		SuitableFor: suitableFor.Clone(),
		Version:     1,
	}
	d.s.dishes[dish.StrongID] = dish
	d.s.byPublicID[publicID] = dish.StrongID
	d.s.byName[name] = dish.StrongID
	return dish.Clone(), nil
}

// Delete removes the dish unless a timeline entry still references it.
func (d *DishStore) Delete(ctx context.Context, strongID uuid.UUID) (dishstore.DeleteStatus, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	dish, ok := d.s.dishes[strongID]
	if !ok {
		return dishstore.DeleteDoesNotExist, nil
	}
	if d.s.usesDishLocked(strongID) {
		return dishstore.DeleteUsedInMenuTimeline, nil
	}

	delete(d.s.dishes, strongID)
	delete(d.s.byPublicID, dish.PublicID)
	delete(d.s.byName, dish.Name)
	d.s.deleted[strongID] = struct{}{}
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

	current, ok := d.s.dishes[dish.StrongID]
	if !ok {
		return dishstore.UpdateNotFound, nil
	}
	if current.Version != dish.Version {
		return dishstore.UpdateVersionMismatch, nil
	}

	// Re-validate only the touched uniqueness constraints.
	if mod.PublicID != nil && *mod.PublicID != current.PublicID {
		if _, taken := d.s.byPublicID[*mod.PublicID]; taken {
			return 0, dishstore.ErrDuplicateValue
		}
	}
	if mod.Name != nil && *mod.Name != current.Name {
		if _, taken := d.s.byName[*mod.Name]; taken {
			return 0, dishstore.ErrDuplicateValue
		}
	}

	next := mod.Apply(current)
	if next.PublicID != current.PublicID {
		delete(d.s.byPublicID, current.PublicID)
		d.s.byPublicID[next.PublicID] = next.StrongID
	}
	if next.Name != current.Name {
		delete(d.s.byName, current.Name)
		d.s.byName[next.Name] = next.StrongID
	}
	d.s.dishes[next.StrongID] = next
	return dishstore.UpdateSuccess, nil
}

// State reports the lifecycle state of a strong id.
func (d *DishStore) State(ctx context.Context, strongID uuid.UUID) (dishstore.State, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	if _, ok := d.s.dishes[strongID]; ok {
		return dishstore.DishExists, nil
	}
	if _, ok := d.s.deleted[strongID]; ok {
		return dishstore.DishDeleted, nil
	}
	return dishstore.DishDoesNotExist, nil
}
