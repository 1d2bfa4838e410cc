package dishstore

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxNameLength is the maximum dish name length in characters.
	// Must stay coherent with persistence schemas.
	MaxNameLength = 100

	// MaxPublicIDLength is the maximum public id length in characters.
	// Must stay coherent with persistence schemas.
	MaxPublicIDLength = 50
)

// ValidatePublicID checks the public id against the store-wide character
// set and length rules. Every construction path, including restore from a
// backing store, runs through this.
func ValidatePublicID(publicID string) error {
	if publicID == "" {
		return ErrEmptyPublicID
	}
	if len(publicID) > MaxPublicIDLength {
		return fmt.Errorf("%w: %d > %d", ErrPublicIDTooLong, len(publicID), MaxPublicIDLength)
	}
	for _, c := range publicID {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidPublicID, publicID)
		}
	}
	return nil
}

// ValidateName checks the dish name against the store-wide length rule.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return fmt.Errorf("%w: %d > %d", ErrNameTooLong, n, MaxNameLength)
	}
	return nil
}

// Dish is an immutable snapshot of a stored dish at a particular version.
//
// Snapshots are created by stores, never by callers: Create assigns the
// strong id and version 1, and every accepted update yields a new snapshot
// with the version incremented by one. A snapshot that was submitted for a
// write is stale afterwards and must not be reused.
type Dish struct {
	// StrongID is the permanent, store-assigned identifier. It never
	// changes and is never reused, not even after deletion.
	StrongID uuid.UUID

	// PublicID is a short human-typable token ([A-Za-z0-9_]), unique
	// among currently live dishes only.
	PublicID string

	// Name is the display name, unique among currently live dishes only.
	Name string

	// SuitableFor lists the meal times this dish may be scheduled into.
	SuitableFor MealTimeSet

	// Version starts at 1 and increases by exactly 1 per accepted update.
	Version int
}

// Restore rebuilds a snapshot from persisted fields, re-running the same
// validation as creation. Store implementations use this when reading from
// a backing store; a failure here means the persisted row violates the
// contract's constants.
func Restore(strongID uuid.UUID, publicID, name string, suitableFor MealTimeSet, version int) (Dish, error) {
	if err := ValidatePublicID(publicID); err != nil {
		return Dish{}, err
	}
	if err := ValidateName(name); err != nil {
		return Dish{}, err
	}
	if version < 1 {
		return Dish{}, fmt.Errorf("dishstore: restore %s: version %d < 1", strongID, version)
	}
	return Dish{
		StrongID:    strongID,
		PublicID:    publicID,
		Name:        name,
		SuitableFor: suitableFor.Clone(),
		Version:     version,
	}, nil
}

// Same reports whether o is a snapshot of the same stored dish,
// regardless of version.
func (d Dish) Same(o Dish) bool {
	return d.StrongID == o.StrongID
}

// Equal reports whether two snapshots are field-wise equal.
//
// Comparing two snapshots of the same dish at different versions panics:
// it means the caller mixed handles fetched at different points in time,
// which the contract forbids. Use Same to compare identity only.
func (d Dish) Equal(o Dish) bool {
	if d.StrongID == o.StrongID && d.Version != o.Version {
		panic(fmt.Sprintf(
			"dishstore: comparing snapshots of dish %s at different versions (%d vs %d); stale handle retained across a write",
			d.StrongID, d.Version, o.Version,
		))
	}
	return d.StrongID == o.StrongID &&
		d.PublicID == o.PublicID &&
		d.Name == o.Name &&
		d.Version == o.Version &&
		d.SuitableFor.Equal(o.SuitableFor)
}

// Clone returns an independent copy of the snapshot.
func (d Dish) Clone() Dish {
	c := d
	c.SuitableFor = d.SuitableFor.Clone()
	return c
}

func (d Dish) String() string {
	return fmt.Sprintf("%s : %s : %v (v%d)", d.PublicID, d.Name, d.SuitableFor.Slice(), d.Version)
}
