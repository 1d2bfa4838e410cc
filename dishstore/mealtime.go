package dishstore

import "sort"

// MealTime tags a meal slot a dish may be scheduled into.
type MealTime string

const (
	Breakfast MealTime = "BREAKFAST"
	Lunch     MealTime = "LUNCH"
	Supper    MealTime = "SUPPER"
)

// MealTimes lists all known meal times in day order.
func MealTimes() []MealTime {
	return []MealTime{Breakfast, Lunch, Supper}
}

// Valid reports whether m is one of the known meal times.
func (m MealTime) Valid() bool {
	switch m {
	case Breakfast, Lunch, Supper:
		return true
	}
	return false
}

// MealTimeSet is an unordered, duplicate-free set of meal times.
type MealTimeSet map[MealTime]struct{}

// NewMealTimeSet builds a set from the given meal times.
// Repeated meal times are ignored.
func NewMealTimeSet(times ...MealTime) MealTimeSet {
	s := make(MealTimeSet, len(times))
	for _, t := range times {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether the set includes t.
func (s MealTimeSet) Contains(t MealTime) bool {
	_, ok := s[t]
	return ok
}

// Equal reports whether both sets hold exactly the same meal times.
func (s MealTimeSet) Equal(o MealTimeSet) bool {
	if len(s) != len(o) {
		return false
	}
	for t := range s {
		if _, ok := o[t]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s MealTimeSet) Clone() MealTimeSet {
	c := make(MealTimeSet, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// Slice returns the set's members sorted lexicographically.
// Use this wherever a deterministic order is needed (display, marshaling).
func (s MealTimeSet) Slice() []MealTime {
	out := make([]MealTime, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
