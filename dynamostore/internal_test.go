package dynamostore

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

// --- dishRecord Tests ---

func TestDishRecord_RoundTrip(t *testing.T) {
	id := uuid.New()
	dish, err := dishstore.Restore(id, "pelmeni", "Pelmeni",
		dishstore.NewMealTimeSet(dishstore.Lunch, dishstore.Supper), 3)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	rec := recordFromDish(dish)
	if rec.ID != id.String() {
		t.Errorf("ID = %q, want %q", rec.ID, id.String())
	}
	if rec.DeletedAt != 0 {
		t.Errorf("new record has DeletedAt %d", rec.DeletedAt)
	}
	if !rec.live() {
		t.Error("new record is not live")
	}

	back, err := rec.dish()
	if err != nil {
		t.Fatalf("dish: %v", err)
	}
	if !back.Equal(dish) {
		t.Errorf("round trip changed dish: %v vs %v", back, dish)
	}
}

func TestDishRecord_CorruptID(t *testing.T) {
	rec := dishRecord{ID: "not-a-uuid", PublicID: "x", Name: "X", Version: 1}
	if _, err := rec.dish(); err == nil {
		t.Error("expected error for corrupt strong id")
	}
}

func TestDishRecord_Tombstoned(t *testing.T) {
	rec := dishRecord{DeletedAt: time.Now().Unix()}
	if rec.live() {
		t.Error("tombstoned record reported live")
	}
}

func TestMealTimeStrings_Sorted(t *testing.T) {
	set := dishstore.NewMealTimeSet(dishstore.Supper, dishstore.Breakfast)
	got := mealTimeStrings(set)
	if len(got) != 2 || got[0] != "BREAKFAST" || got[1] != "SUPPER" {
		t.Errorf("mealTimeStrings = %v", got)
	}
}

func TestMealTimeSet_RoundTrip(t *testing.T) {
	set := dishstore.NewMealTimeSet(dishstore.Breakfast, dishstore.Lunch)
	if !mealTimeSet(mealTimeStrings(set)).Equal(set) {
		t.Error("meal time set did not survive the record round trip")
	}
}

// --- dayRecord Tests ---

func TestDayRecord_RoundTrip(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	day := timelineDay(t, "2024-05-13")
	day.Add(dishstore.Breakfast, a)
	day.Add(dishstore.Lunch, b)
	day.Add(dishstore.Lunch, a)

	rec := recordFromDay(day, 4)
	if rec.Day != "2024-05-13" {
		t.Errorf("Day = %q", rec.Day)
	}
	if rec.Rev != 4 {
		t.Errorf("Rev = %d, want 4", rec.Rev)
	}
	if got := rec.Meals["LUNCH"]; len(got) != 2 || got[0] != b.String() || got[1] != a.String() {
		t.Errorf("lunch slot order not preserved: %v", got)
	}

	back, err := rec.dayMenu()
	if err != nil {
		t.Fatalf("dayMenu: %v", err)
	}
	if !back.Date.Equal(day.Date) {
		t.Errorf("Date = %v, want %v", back.Date, day.Date)
	}
	if len(back.Meals[dishstore.Lunch]) != 2 {
		t.Errorf("lunch slot lost entries: %v", back.Meals[dishstore.Lunch])
	}
}

func TestDayRecord_CorruptDishID(t *testing.T) {
	rec := dayRecord{Day: "2024-05-13", Meals: map[string][]string{"LUNCH": {"garbage"}}}
	if _, err := rec.dayMenu(); err == nil {
		t.Error("expected error for corrupt dish id")
	}
}

func TestDayRecord_Expired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		ttl  int64
		want bool
	}{
		{"no ttl", 0, false},
		{"ttl in past", now.Unix() - 10, true},
		{"ttl now", now.Unix(), true},
		{"ttl in future", now.Unix() + 3600, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := dayRecord{TTL: tt.ttl}
			if got := rec.expired(now); got != tt.want {
				t.Errorf("expired = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- failedIndexes Tests ---

func TestFailedIndexes_NonTransactionError(t *testing.T) {
	if got := failedIndexes(errors.New("plain error")); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestFailedIndexes_SingleFailure(t *testing.T) {
	code := "ConditionalCheckFailed"
	txErr := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{},
			{Code: &code},
			{},
		},
	}

	got := failedIndexes(txErr)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("failedIndexes = %v, want [1]", got)
	}
}

func TestFailedIndexes_MultipleFailures(t *testing.T) {
	code := "ConditionalCheckFailed"
	txErr := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: &code},
			{},
			{Code: &code},
		},
	}

	got := failedIndexes(txErr)
	if len(got) != 2 || !containsIndex(got, 0) || !containsIndex(got, 2) {
		t.Errorf("failedIndexes = %v, want [0 2]", got)
	}
}

func TestFailedIndexes_OtherCode(t *testing.T) {
	code := "TransactionConflict"
	txErr := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: &code}},
	}

	// Cancelled but not by a condition: no indexes, and callers fall
	// through to the wrapped raw error.
	if got := failedIndexes(txErr); got != nil {
		t.Errorf("failedIndexes = %v, want nil", got)
	}
}

func TestFailedIndexes_NilCode(t *testing.T) {
	txErr := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: nil}},
	}
	if got := failedIndexes(txErr); got != nil {
		t.Errorf("failedIndexes = %v, want nil", got)
	}
}

// --- constraint item Tests ---

func TestConstraintPut_Shape(t *testing.T) {
	id := uuid.New()
	item := constraintPut("constraints", fieldName, "Granola", id)

	if item.Put == nil {
		t.Fatal("expected a Put item")
	}
	if *item.Put.TableName != "constraints" {
		t.Errorf("TableName = %q", *item.Put.TableName)
	}
	if *item.Put.ConditionExpression != "attribute_not_exists(pk)" {
		t.Errorf("ConditionExpression = %q", *item.Put.ConditionExpression)
	}
	if v, ok := item.Put.Item["dish_id"].(*types.AttributeValueMemberS); !ok || v.Value != id.String() {
		t.Error("expected dish_id to carry the strong id")
	}
}

func TestConstraintKeys_MatchPutKeys(t *testing.T) {
	item := constraintPut("constraints", fieldPublicID, "granola", uuid.New())
	key := constraintKey(fieldPublicID, "granola")

	putPK := item.Put.Item["pk"].(*types.AttributeValueMemberS).Value
	keyPK := key["pk"].(*types.AttributeValueMemberS).Value
	if putPK != keyPK {
		t.Errorf("put pk %q does not match lookup pk %q", putPK, keyPK)
	}
}

func TestConstraintKeys_DistinctPerField(t *testing.T) {
	// The same string as a name and as a public id must not collide.
	name := constraintKey(fieldName, "granola")["pk"].(*types.AttributeValueMemberS).Value
	publicID := constraintKey(fieldPublicID, "granola")["pk"].(*types.AttributeValueMemberS).Value
	if name == publicID {
		t.Error("name and public id constraint keys collided")
	}
}

// --- diffIDs Tests ---

func TestDiffIDs(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	added, removed := diffIDs([]uuid.UUID{a, b}, []uuid.UUID{b, c})
	if len(added) != 1 || added[0] != c {
		t.Errorf("added = %v, want [%s]", added, c)
	}
	if len(removed) != 1 || removed[0] != a {
		t.Errorf("removed = %v, want [%s]", removed, a)
	}
}

func TestDiffIDs_Empty(t *testing.T) {
	a := uuid.New()

	added, removed := diffIDs(nil, []uuid.UUID{a})
	if len(added) != 1 || len(removed) != 0 {
		t.Errorf("added = %v, removed = %v", added, removed)
	}

	added, removed = diffIDs([]uuid.UUID{a}, nil)
	if len(added) != 0 || len(removed) != 1 {
		t.Errorf("added = %v, removed = %v", added, removed)
	}

	added, removed = diffIDs([]uuid.UUID{a}, []uuid.UUID{a})
	if len(added) != 0 || len(removed) != 0 {
		t.Errorf("unchanged set produced added = %v, removed = %v", added, removed)
	}
}

// --- helpers ---

func timelineDay(t *testing.T, date string) timeline.DayMenu {
	t.Helper()
	d, err := time.ParseInLocation(time.DateOnly, date, time.UTC)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	return timeline.NewDayMenu(d)
}
