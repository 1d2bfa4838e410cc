package dishstore

// Modification is a sparse patch submitted with a snapshot to
// [EditableStore.UpdateDish]. Nil fields mean "leave unchanged", so the
// store only re-validates the uniqueness constraints actually touched.
type Modification struct {
	// Name, if non-nil, is the new dish name.
	Name *string

	// PublicID, if non-nil, is the new public id.
	PublicID *string

	// SuitableFor, if non-nil, replaces the suitable meal time set.
	SuitableFor *MealTimeSet
}

// WithName returns a copy of m that also changes the name.
func (m Modification) WithName(name string) Modification {
	m.Name = &name
	return m
}

// WithPublicID returns a copy of m that also changes the public id.
func (m Modification) WithPublicID(publicID string) Modification {
	m.PublicID = &publicID
	return m
}

// WithSuitableFor returns a copy of m that also replaces the meal time set.
func (m Modification) WithSuitableFor(times ...MealTime) Modification {
	s := NewMealTimeSet(times...)
	m.SuitableFor = &s
	return m
}

// IsZero reports whether the modification changes nothing.
func (m Modification) IsZero() bool {
	return m.Name == nil && m.PublicID == nil && m.SuitableFor == nil
}

// Validate checks the present fields against the store-wide constants.
func (m Modification) Validate() error {
	if m.PublicID != nil {
		if err := ValidatePublicID(*m.PublicID); err != nil {
			return err
		}
	}
	if m.Name != nil {
		if err := ValidateName(*m.Name); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns the snapshot that results from applying the present fields
// of m to d, with the version incremented. It does not validate; stores
// call Validate first.
func (m Modification) Apply(d Dish) Dish {
	next := d.Clone()
	if m.Name != nil {
		next.Name = *m.Name
	}
	if m.PublicID != nil {
		next.PublicID = *m.PublicID
	}
	if m.SuitableFor != nil {
		next.SuitableFor = m.SuitableFor.Clone()
	}
	next.Version = d.Version + 1
	return next
}
