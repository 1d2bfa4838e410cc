// Package dishstore defines the versioned dish store contract for well-fed-cat.
//
// A Dish is an immutable snapshot of a stored dish at a particular version.
// Callers fetch a snapshot, derive a Modification from it and submit both
// back through [EditableStore.UpdateDish]; the store validates the snapshot
// version before committing, so two clients editing without refreshing in
// between cannot silently overwrite each other.
//
// # Identity
//
// Every dish carries two identifiers:
//
//   - The strong id (a UUID) is assigned once by the store, never changes
//     and is never reused, not even after deletion. It is the only
//     identifier safe for long-term external references.
//   - The public id is a short human-typable token ([A-Za-z0-9_]).
//     Together with the name it is unique among currently live dishes
//     only; deleting a dish, or changing either field away from a value,
//     frees that value for reuse.
//
// # Lifecycle
//
// [EditableStore.Create] assigns a fresh strong id and version 1. Each
// accepted update produces a new snapshot with version incremented by one;
// the snapshot used for the write is stale afterwards and must be
// re-fetched by strong id before another write. Deletion marks the strong
// id permanently as [DishDeleted], which [EditableStore.DishState]
// distinguishes from [DishDoesNotExist] for callers holding old ids.
//
// # Errors
//
// Expected negative outcomes are either enumerated statuses
// ([DeleteStatus], [UpdateStatus], [DishState]) or sentinel errors:
//
//   - [ErrNotFound] - lookup matched nothing live
//   - [ErrDuplicateValue] - name or public id already used by a live dish
//   - [ErrInvalidPublicID], [ErrEmptyPublicID], [ErrPublicIDTooLong],
//     [ErrEmptyName], [ErrNameTooLong] - input validation failures
//
// Backing-store faults (I/O, connectivity) are returned as distinct,
// implementation-wrapped errors and are never mapped onto the above.
package dishstore
