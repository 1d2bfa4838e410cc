package dynamostore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
)

// DishStore is the DynamoDB implementation of dishstore.EditableStore.
type DishStore struct {
	s *Store
}

var _ dishstore.EditableStore = (*DishStore)(nil)

// getRecord fetches the dish item for a strong id with a consistent
// read. found is false when the id was never created.
func (d *DishStore) getRecord(ctx context.Context, strongID uuid.UUID) (dishRecord, bool, error) {
	out, err := d.s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.s.config.DishTable),
		Key:            dishKey(strongID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dishRecord{}, false, fmt.Errorf("dynamostore: get dish: %w", err)
	}
	if out.Item == nil {
		return dishRecord{}, false, nil
	}
	var rec dishRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return dishRecord{}, false, fmt.Errorf("dynamostore: unmarshal dish: %w", err)
	}
	return rec, true, nil
}

// All returns every live dish, in no particular order.
func (d *DishStore) All(ctx context.Context) ([]dishstore.Dish, error) {
	paginator := dynamodb.NewScanPaginator(d.s.client, &dynamodb.ScanInput{
		TableName:        aws.String(d.s.config.DishTable),
		FilterExpression: aws.String("attribute_not_exists(deleted_at)"),
	})

	var out []dishstore.Dish
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamostore: scan dishes: %w", err)
		}
		var recs []dishRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("dynamostore: unmarshal dishes: %w", err)
		}
		for _, rec := range recs {
			dish, err := rec.dish()
			if err != nil {
				return nil, err
			}
			out = append(out, dish)
		}
	}
	return out, nil
}

// GetByStrongID returns the live dish with the given strong id.
func (d *DishStore) GetByStrongID(ctx context.Context, strongID uuid.UUID) (dishstore.Dish, error) {
	rec, found, err := d.getRecord(ctx, strongID)
	if err != nil {
		return dishstore.Dish{}, err
	}
	if !found || !rec.live() {
		return dishstore.Dish{}, dishstore.ErrNotFound
	}
	return rec.dish()
}

// GetByName returns the live dish with the given name.
func (d *DishStore) GetByName(ctx context.Context, name string) (dishstore.Dish, error) {
	return d.getByConstraint(ctx, fieldName, name)
}

// GetByPublicID returns the live dish with the given public id.
func (d *DishStore) GetByPublicID(ctx context.Context, publicID string) (dishstore.Dish, error) {
	return d.getByConstraint(ctx, fieldPublicID, publicID)
}

// getByConstraint resolves a unique value to its owning dish through
// the constraint table. Constraint items only exist for live dishes.
func (d *DishStore) getByConstraint(ctx context.Context, field, value string) (dishstore.Dish, error) {
	out, err := d.s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.s.config.ConstraintTable),
		Key:            constraintKey(field, value),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dishstore.Dish{}, fmt.Errorf("dynamostore: get constraint: %w", err)
	}
	if out.Item == nil {
		return dishstore.Dish{}, dishstore.ErrNotFound
	}
	idAttr, ok := out.Item["dish_id"].(*types.AttributeValueMemberS)
	if !ok {
		return dishstore.Dish{}, fmt.Errorf("dynamostore: constraint item for %s %q has no dish_id", field, value)
	}
	id, err := uuid.Parse(idAttr.Value)
	if err != nil {
		return dishstore.Dish{}, fmt.Errorf("dynamostore: corrupt constraint dish_id %q: %w", idAttr.Value, err)
	}
	return d.GetByStrongID(ctx, id)
}

// Create stores a new dish with a fresh strong id and version 1. The
// dish item and both constraint claims commit in one transaction, so a
// rejected create leaves nothing behind.
func (d *DishStore) Create(ctx context.Context, publicID, name string, suitableFor dishstore.MealTimeSet) (dishstore.Dish, error) {
	if err := dishstore.ValidatePublicID(publicID); err != nil {
		return dishstore.Dish{}, err
	}
	if err := dishstore.ValidateName(name); err != nil {
		return dishstore.Dish{}, err
	}

	dish := dishstore.Dish{
		StrongID:    uuid.New(),
		PublicID:    publicID,
		Name:        name,
		SuitableFor: suitableFor.Clone(),
		Version:     1,
	}
	item, err := marshalRecord(recordFromDish(dish))
	if err != nil {
		return dishstore.Dish{}, err
	}

	_, err = d.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			constraintPut(d.s.config.ConstraintTable, fieldPublicID, publicID, dish.StrongID),
			constraintPut(d.s.config.ConstraintTable, fieldName, name, dish.StrongID),
			{
				Put: &types.Put{
					TableName:           aws.String(d.s.config.DishTable),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
		},
	})
	if err != nil {
		if failed := failedIndexes(err); failed != nil {
			switch {
			case containsIndex(failed, 0):
				return dishstore.Dish{}, fmt.Errorf("public id %q: %w", publicID, dishstore.ErrDuplicateValue)
			case containsIndex(failed, 1):
				return dishstore.Dish{}, fmt.Errorf("name %q: %w", name, dishstore.ErrDuplicateValue)
			}
			return dishstore.Dish{}, ErrConcurrentModification
		}
		return dishstore.Dish{}, fmt.Errorf("dynamostore: create dish: %w", err)
	}
	return dish, nil
}

// Delete tombstones the dish unless a timeline entry still references
// it. The reference check is a ConditionCheck inside the same
// transaction that writes the tombstone, so a concurrent PutDay cannot
// slip a reference in between check and delete.
func (d *DishStore) Delete(ctx context.Context, strongID uuid.UUID) (dishstore.DeleteStatus, error) {
	rec, found, err := d.getRecord(ctx, strongID)
	if err != nil {
		return 0, err
	}
	if !found || !rec.live() {
		return dishstore.DeleteDoesNotExist, nil
	}

	_, err = d.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				ConditionCheck: &types.ConditionCheck{
					TableName:           aws.String(d.s.config.RefTable),
					Key:                 refKey(strongID),
					ConditionExpression: aws.String("attribute_not_exists(id) OR refs = :zero"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":zero": &types.AttributeValueMemberN{Value: "0"},
					},
				},
			},
			{
				Update: &types.Update{
					TableName:        aws.String(d.s.config.DishTable),
					Key:              dishKey(strongID),
					UpdateExpression: aws.String("SET deleted_at = :now"),
					// The unique values must be the ones we are about to
					// release; a racing update would have swapped them.
					ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(deleted_at) AND public_id = :public_id AND #name = :name"),
					ExpressionAttributeNames: map[string]string{
						"#name": "name",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":now":       &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
						":public_id": &types.AttributeValueMemberS{Value: rec.PublicID},
						":name":      &types.AttributeValueMemberS{Value: rec.Name},
					},
				},
			},
			constraintDelete(d.s.config.ConstraintTable, fieldPublicID, rec.PublicID),
			constraintDelete(d.s.config.ConstraintTable, fieldName, rec.Name),
		},
	})
	if err != nil {
		if failed := failedIndexes(err); failed != nil {
			if containsIndex(failed, 0) {
				return dishstore.DeleteUsedInMenuTimeline, nil
			}
			return 0, ErrConcurrentModification
		}
		return 0, fmt.Errorf("dynamostore: delete dish: %w", err)
	}
	return dishstore.DeleteSuccess, nil
}

// DeleteDish deletes using the snapshot's strong id.
func (d *DishStore) DeleteDish(ctx context.Context, dish dishstore.Dish) (dishstore.DeleteStatus, error) {
	return d.Delete(ctx, dish.StrongID)
}

// UpdateDish commits a new snapshot if the submitted one is still
// current. Version enforcement is a condition expression on the dish
// item, so racing updates from the same snapshot admit exactly one
// winner.
func (d *DishStore) UpdateDish(ctx context.Context, dish dishstore.Dish, mod dishstore.Modification) (dishstore.UpdateStatus, error) {
	if err := mod.Validate(); err != nil {
		return 0, err
	}

	current, found, err := d.getRecord(ctx, dish.StrongID)
	if err != nil {
		return 0, err
	}
	if !found || !current.live() {
		return dishstore.UpdateNotFound, nil
	}
	if current.Version != dish.Version {
		return dishstore.UpdateVersionMismatch, nil
	}
	curDish, err := current.dish()
	if err != nil {
		return 0, err
	}
	next := mod.Apply(curDish)

	mealTimes, err := attributevalue.Marshal(mealTimeStrings(next.SuitableFor))
	if err != nil {
		return 0, fmt.Errorf("dynamostore: marshal meal times: %w", err)
	}

	// Constraint swaps only for values that actually change; keeping a
	// value is not a conflict with itself.
	var items []types.TransactWriteItem
	publicIDIdx, nameIdx := -1, -1
	if next.PublicID != curDish.PublicID {
		publicIDIdx = len(items)
		items = append(items,
			constraintPut(d.s.config.ConstraintTable, fieldPublicID, next.PublicID, dish.StrongID),
			constraintDelete(d.s.config.ConstraintTable, fieldPublicID, curDish.PublicID),
		)
	}
	if next.Name != curDish.Name {
		nameIdx = len(items)
		items = append(items,
			constraintPut(d.s.config.ConstraintTable, fieldName, next.Name, dish.StrongID),
			constraintDelete(d.s.config.ConstraintTable, fieldName, curDish.Name),
		)
	}
	updateIdx := len(items)
	items = append(items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(d.s.config.DishTable),
			Key:                 dishKey(dish.StrongID),
			UpdateExpression:    aws.String("SET public_id = :public_id, #name = :name, meal_times = :meal_times, #version = :next_version"),
			ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(deleted_at) AND #version = :expected_version"),
			ExpressionAttributeNames: map[string]string{
				"#name":    "name",
				"#version": "version",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":public_id":        &types.AttributeValueMemberS{Value: next.PublicID},
				":name":             &types.AttributeValueMemberS{Value: next.Name},
				":meal_times":       mealTimes,
				":next_version":     &types.AttributeValueMemberN{Value: strconv.Itoa(next.Version)},
				":expected_version": &types.AttributeValueMemberN{Value: strconv.Itoa(dish.Version)},
			},
		},
	})

	_, err = d.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return dishstore.UpdateSuccess, nil
	}
	failed := failedIndexes(err)
	if failed == nil {
		return 0, fmt.Errorf("dynamostore: update dish: %w", err)
	}
	switch {
	case publicIDIdx >= 0 && containsIndex(failed, publicIDIdx):
		return 0, fmt.Errorf("public id %q: %w", next.PublicID, dishstore.ErrDuplicateValue)
	case nameIdx >= 0 && containsIndex(failed, nameIdx):
		return 0, fmt.Errorf("name %q: %w", next.Name, dishstore.ErrDuplicateValue)
	case containsIndex(failed, updateIdx):
		// Lost a race between our read and this write; reclassify
		// against the item as it is now.
		latest, found, gerr := d.getRecord(ctx, dish.StrongID)
		if gerr != nil {
			return 0, gerr
		}
		if !found || !latest.live() {
			return dishstore.UpdateNotFound, nil
		}
		return dishstore.UpdateVersionMismatch, nil
	}
	return 0, ErrConcurrentModification
}

// State reports the lifecycle state of a strong id. Tombstoned items
// keep the id resolvable as IS_DELETED forever.
func (d *DishStore) State(ctx context.Context, strongID uuid.UUID) (dishstore.State, error) {
	rec, found, err := d.getRecord(ctx, strongID)
	if err != nil {
		return 0, err
	}
	if !found {
		return dishstore.DishDoesNotExist, nil
	}
	if !rec.live() {
		return dishstore.DishDeleted, nil
	}
	return dishstore.DishExists, nil
}
