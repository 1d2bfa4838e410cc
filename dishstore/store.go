package dishstore

import (
	"context"

	"github.com/google/uuid"
)

// Store is the read side of the dish store. All operations are
// side-effect-free and return point-in-time-consistent snapshots.
type Store interface {
	// All returns every currently live dish. The slice is empty when the
	// store is empty; order is not guaranteed.
	All(ctx context.Context) ([]Dish, error)

	// GetByName returns the live dish with the given name, or ErrNotFound.
	// At most one live dish can match, by the uniqueness invariant.
	GetByName(ctx context.Context, name string) (Dish, error)

	// GetByPublicID returns the live dish with the given public id,
	// or ErrNotFound.
	GetByPublicID(ctx context.Context, publicID string) (Dish, error)

	// GetByStrongID returns the live dish with the given strong id.
	// It returns ErrNotFound both when the id never existed and when the
	// dish was deleted; callers needing to distinguish use
	// [EditableStore.State].
	GetByStrongID(ctx context.Context, strongID uuid.UUID) (Dish, error)
}

// EditableStore extends Store with mutations.
//
// If the dish store and the menu timeline store are interdependent (as for
// a shared-database implementation), both must be built together so the
// delete guard in [EditableStore.Delete] sees timeline references
// atomically with the delete itself.
type EditableStore interface {
	Store

	// Create validates publicID and name, checks neither is used by a
	// live dish, and stores a new snapshot with a fresh strong id and
	// version 1. A uniqueness conflict returns ErrDuplicateValue with no
	// state change; validation failures return the corresponding
	// sentinel error.
	Create(ctx context.Context, publicID, name string, suitableFor MealTimeSet) (Dish, error)

	// Delete removes the live dish with the given strong id. On success
	// the dish's public id and name are freed for reuse while the strong
	// id's state becomes permanently DishDeleted. A dish referenced by
	// any menu timeline entry is not removed.
	Delete(ctx context.Context, strongID uuid.UUID) (DeleteStatus, error)

	// DeleteDish deletes using the snapshot's strong id.
	DeleteDish(ctx context.Context, dish Dish) (DeleteStatus, error)

	// UpdateDish applies the present fields of mod to the stored dish,
	// producing a new snapshot with dish.Version+1, provided the stored
	// version still equals dish.Version. After any outcome the submitted
	// snapshot is stale: re-fetch by strong id before another write.
	// A uniqueness conflict on a changed name or public id is returned
	// as ErrDuplicateValue, not as a status.
	UpdateDish(ctx context.Context, dish Dish, mod Modification) (UpdateStatus, error)

	// State reports the lifecycle state of a strong id. It is consistent
	// with GetByStrongID: DishExists iff the lookup succeeds.
	State(ctx context.Context, strongID uuid.UUID) (State, error)
}

// ReferenceGuard is the predicate the menu timeline collaborator exposes
// to the dish store: whether any timeline entry references the dish. A
// conforming implementation consults it synchronously with Delete, leaving
// no window in which a reference added concurrently outlives its dish.
type ReferenceGuard interface {
	UsesDish(ctx context.Context, strongID uuid.UUID) (bool, error)
}

// DeleteStatus enumerates the expected outcomes of Delete.
type DeleteStatus int

const (
	// DeleteSuccess means the dish was removed.
	DeleteSuccess DeleteStatus = iota
	// DeleteDoesNotExist means no live dish has that strong id
	// (never existed or already deleted).
	DeleteDoesNotExist
	// DeleteUsedInMenuTimeline means a timeline entry references the
	// dish; it remains live and unchanged.
	DeleteUsedInMenuTimeline
)

func (s DeleteStatus) String() string {
	switch s {
	case DeleteSuccess:
		return "SUCCESS"
	case DeleteDoesNotExist:
		return "DOES_NOT_EXIST"
	case DeleteUsedInMenuTimeline:
		return "USED_IN_MENU_TIMELINE"
	}
	return "UNKNOWN"
}

// UpdateStatus enumerates the expected outcomes of UpdateDish.
type UpdateStatus int

const (
	// UpdateSuccess means the new snapshot was committed.
	UpdateSuccess UpdateStatus = iota
	// UpdateVersionMismatch means another update committed since the
	// snapshot was fetched; this also fires when the same snapshot is
	// submitted twice.
	UpdateVersionMismatch
	// UpdateNotFound means no live dish has the snapshot's strong id.
	UpdateNotFound
)

func (s UpdateStatus) String() string {
	switch s {
	case UpdateSuccess:
		return "SUCCESS"
	case UpdateVersionMismatch:
		return "VERSION_MISMATCH"
	case UpdateNotFound:
		return "NOT_FOUND"
	}
	return "UNKNOWN"
}
