package dishstore

// State is the lifecycle tag of a strong id within a store.
//
// Distinguishing DishDeleted from DishDoesNotExist matters for cache
// invalidation and for callers holding long-lived strong ids: a deleted
// id stays DishDeleted forever, it never reverts to DishDoesNotExist.
type State int

const (
	// DishExists means a live dish currently has this strong id.
	DishExists State = iota
	// DishDoesNotExist means no dish ever had this strong id.
	DishDoesNotExist
	// DishDeleted means a dish had this strong id and was deleted.
	DishDeleted
)

func (s State) String() string {
	switch s {
	case DishExists:
		return "EXISTS"
	case DishDoesNotExist:
		return "DOES_NOT_EXIST"
	case DishDeleted:
		return "IS_DELETED"
	}
	return "UNKNOWN"
}
