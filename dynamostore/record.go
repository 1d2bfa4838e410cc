package dynamostore

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/internal/keys"
)

const (
	dishEntityType = "dish"
	constraintSK   = "CONSTRAINT"

	fieldName     = "name"
	fieldPublicID = "public_id"
)

// dishRecord is the DishTable item shape.
type dishRecord struct {
	ID        string   `dynamodbav:"id"`
	PublicID  string   `dynamodbav:"public_id"`
	Name      string   `dynamodbav:"name"`
	MealTimes []string `dynamodbav:"meal_times,omitempty"`
	Version   int      `dynamodbav:"version"`
	DeletedAt int64    `dynamodbav:"deleted_at,omitempty"`
}

func (r dishRecord) live() bool {
	return r.DeletedAt == 0
}

// dish rebuilds a contract snapshot, re-running contract validation on
// the persisted values.
func (r dishRecord) dish() (dishstore.Dish, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return dishstore.Dish{}, fmt.Errorf("dynamostore: corrupt strong id %q: %w", r.ID, err)
	}
	return dishstore.Restore(id, r.PublicID, r.Name, mealTimeSet(r.MealTimes), r.Version)
}

func recordFromDish(d dishstore.Dish) dishRecord {
	return dishRecord{
		ID:        d.StrongID.String(),
		PublicID:  d.PublicID,
		Name:      d.Name,
		MealTimes: mealTimeStrings(d.SuitableFor),
		Version:   d.Version,
	}
}

func mealTimeStrings(set dishstore.MealTimeSet) []string {
	times := set.Slice()
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = string(t)
	}
	return out
}

func mealTimeSet(strs []string) dishstore.MealTimeSet {
	set := dishstore.NewMealTimeSet()
	for _, s := range strs {
		set[dishstore.MealTime(s)] = struct{}{}
	}
	return set
}

// dayRecord is the TimelineTable item shape. Rev guards replace-day
// races the same way version guards dish updates. TTL, when set, marks
// the day menu for retention expiry; the stream handler releases its
// dish references before DynamoDB removes the item.
type dayRecord struct {
	Day   string              `dynamodbav:"day"`
	Meals map[string][]string `dynamodbav:"meals"`
	Rev   int                 `dynamodbav:"rev"`
	TTL   int64               `dynamodbav:"ttl,omitempty"`
}

func (r dayRecord) expired(now time.Time) bool {
	return r.TTL != 0 && r.TTL <= now.Unix()
}

// refRecord is the RefTable item shape: how many timeline slots
// reference the dish.
type refRecord struct {
	ID   string `dynamodbav:"id"`
	Refs int    `dynamodbav:"refs"`
}

func dishKey(strongID uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: strongID.String()},
	}
}

func refKey(strongID uuid.UUID) map[string]types.AttributeValue {
	return dishKey(strongID)
}

func dayMenuKey(day string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"day": &types.AttributeValueMemberS{Value: day},
	}
}

func constraintKey(field, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: keys.UniqueConstraintPK(dishEntityType, field, value)},
		"sk": &types.AttributeValueMemberS{Value: constraintSK},
	}
}

// constraintPut claims a unique value for a dish. The conditional put
// fails if another live dish already holds the value.
func constraintPut(table, field, value string, strongID uuid.UUID) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(table),
			Item: map[string]types.AttributeValue{
				"pk":          &types.AttributeValueMemberS{Value: keys.UniqueConstraintPK(dishEntityType, field, value)},
				"sk":          &types.AttributeValueMemberS{Value: constraintSK},
				"entity_type": &types.AttributeValueMemberS{Value: dishEntityType},
				"field_name":  &types.AttributeValueMemberS{Value: field},
				"field_value": &types.AttributeValueMemberS{Value: value},
				"dish_id":     &types.AttributeValueMemberS{Value: strongID.String()},
			},
			ConditionExpression: aws.String("attribute_not_exists(pk)"),
		},
	}
}

// constraintDelete releases a unique value.
func constraintDelete(table, field, value string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(table),
			Key:       constraintKey(field, value),
		},
	}
}

// failedIndexes returns the transaction item indexes whose condition
// checks failed, or nil if err is not a cancelled transaction.
func failedIndexes(err error) []int {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return nil
	}
	var out []int
	for i, reason := range txErr.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			out = append(out, i)
		}
	}
	return out
}

func containsIndex(indexes []int, i int) bool {
	for _, idx := range indexes {
		if idx == i {
			return true
		}
	}
	return false
}

// marshalRecord marshals a record struct into a DynamoDB item.
func marshalRecord(v any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("dynamostore: marshal item: %w", err)
	}
	return item, nil
}
