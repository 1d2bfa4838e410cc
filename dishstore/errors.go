package dishstore

import "errors"

var (
	// ErrNotFound is returned by lookups that match no live dish,
	// including lookups by the strong id of a deleted dish.
	ErrNotFound = errors.New("dishstore: dish not found")

	// ErrDuplicateValue is returned when a create or update would give a
	// dish a name or public id already held by another live dish.
	ErrDuplicateValue = errors.New("dishstore: duplicate value for unique field")

	// ErrEmptyPublicID is returned when a public id is empty.
	ErrEmptyPublicID = errors.New("dishstore: public id is empty")

	// ErrInvalidPublicID is returned when a public id contains characters
	// outside [A-Za-z0-9_].
	ErrInvalidPublicID = errors.New("dishstore: public id must be composed of ascii letters, digits or underscore")

	// ErrPublicIDTooLong is returned when a public id exceeds MaxPublicIDLength.
	ErrPublicIDTooLong = errors.New("dishstore: public id too long")

	// ErrEmptyName is returned when a dish name is empty.
	ErrEmptyName = errors.New("dishstore: name is empty")

	// ErrNameTooLong is returned when a dish name exceeds MaxNameLength.
	ErrNameTooLong = errors.New("dishstore: name too long")
)
